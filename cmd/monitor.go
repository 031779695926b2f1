package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"winewarden/internal/report"
	"winewarden/internal/types"
	"winewarden/internal/wwpaths"
	"winewarden/utils"
)

var monitorSession string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive dashboard over recorded sessions",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorSession, "session", "", "session id to watch (default: most recent report)")
	rootCmd.AddCommand(monitorCmd)
}

// runMonitor redraws the selected session's report once a second until
// q or ctrl-c. The report file is re-read each tick; reports are written
// once, when a session ends, so a newly finished session shows up on the
// next tick.
func runMonitor(cmd *cobra.Command, args []string) error {
	state, err := utils.SetRawMode(os.Stdin)
	if err != nil {
		return fmt.Errorf("terminal raw mode: %w", err)
	}
	defer utils.RestoreMode(os.Stdin, state)

	keys := make(chan byte, 8)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(keys)
				return
			}
			if n > 0 {
				keys <- buf[0]
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if err := drawMonitor(); err != nil {
			// Keep the dashboard up even while no report exists yet.
			fmt.Printf("\x1b[2J\x1b[Hwinewarden monitor: %v\r\n(q to quit)\r\n", err)
		}
		select {
		case k, ok := <-keys:
			if !ok || k == 'q' || k == 3 { // 3 = ctrl-c in raw mode
				fmt.Print("\x1b[2J\x1b[H")
				return nil
			}
		case <-ticker.C:
		}
	}
}

func drawMonitor() error {
	path, err := monitorReportPath()
	if err != nil {
		return err
	}
	rep, err := report.Load(path)
	if err != nil {
		return err
	}

	width, _, err := utils.GetWinsize(os.Stdout)
	if err != nil {
		width = 80
	}

	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")
	fmt.Fprintf(&b, "winewarden monitor — session %s   (q to quit)\r\n", rep.SessionID)
	fmt.Fprintf(&b, "%s %s   tier %s   score %d (%s)\r\n\r\n",
		rep.Metadata.Executable,
		strings.Join(rep.Metadata.Args, " "),
		rep.Metadata.TrustTier,
		rep.TrustSignal.Score,
		rep.TrustSignal.Assessment)

	stats := table.NewWriter()
	stats.AppendHeader(table.Row{"Total", "Allowed", "Denied", "Redirected", "Virtualized", "Risks"})
	stats.AppendRow(table.Row{
		rep.Stats.Total, rep.Stats.Allowed, rep.Stats.Denied,
		rep.Stats.Redirected, rep.Stats.Virtualized, rep.Stats.SystemicRisk,
	})
	for _, line := range strings.Split(stats.Render(), "\n") {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	for _, ev := range tailEvents(rep.Events, 15) {
		line := fmt.Sprintf("%s  %-7s %-10s %s",
			ev.Attempt.Timestamp.Format("15:04:05"),
			ev.Attempt.Kind,
			monitorAction(ev.Decision.Action),
			monitorTarget(ev.Attempt.Target))
		if len(line) > width {
			line = line[:width]
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	_, err = os.Stdout.WriteString(b.String())
	return err
}

// monitorReportPath resolves the report to watch: an explicit --session
// id, or the most recently modified file in the reports directory.
func monitorReportPath() (string, error) {
	dir := wwpaths.ReportsDir()
	if monitorSession != "" {
		return filepath.Join(dir, monitorSession+".json"), nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read reports dir: %w", err)
	}
	var names []string
	modTimes := make(map[string]time.Time)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		names = append(names, e.Name())
		modTimes[e.Name()] = info.ModTime()
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no session reports in %s", dir)
	}
	sort.Slice(names, func(i, j int) bool {
		return modTimes[names[i]].After(modTimes[names[j]])
	})
	return filepath.Join(dir, names[0]), nil
}

func tailEvents(events []types.SessionEvent, n int) []types.SessionEvent {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}

func monitorAction(a types.DecisionAction) string {
	switch a {
	case types.ActionAllow:
		return color.GreenString("%-10s", a.String())
	case types.ActionDeny:
		return color.RedString("%-10s", a.String())
	default:
		return color.YellowString("%-10s", a.String())
	}
}

func monitorTarget(t types.AccessTarget) string {
	switch t.Kind {
	case types.TargetNetwork:
		return fmt.Sprintf("%s:%d", t.Network.Host, t.Network.Port)
	case types.TargetDevice, types.TargetSocket:
		return t.Name
	default:
		return t.Path
	}
}
