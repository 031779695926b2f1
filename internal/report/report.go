// Package report renders a SessionReport for the CLI's `report` command:
// human-readable tabular output and raw JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"winewarden/internal/types"
)

// Load reads and decodes a session report JSON file from path.
func Load(path string) (types.SessionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SessionReport{}, fmt.Errorf("read report %s: %w", path, err)
	}
	var rep types.SessionReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return types.SessionReport{}, fmt.Errorf("parse report %s: %w", path, err)
	}
	return rep, nil
}

// RenderJSON writes report to w as pretty-printed JSON.
func RenderJSON(w io.Writer, report types.SessionReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderHuman writes report to w as a human-readable summary: metadata,
// trust signal, a stats table, and a table of the session's events,
// decision actions colorized to match the Red/Yellow/Green tier
// semantics.
func RenderHuman(w io.Writer, report types.SessionReport) {
	fmt.Fprintf(w, "Session %s\n", report.SessionID)
	fmt.Fprintf(w, "  executable: %s %s\n", report.Metadata.Executable, strings.Join(report.Metadata.Args, " "))
	fmt.Fprintf(w, "  started:    %s\n", report.Metadata.StartedAt.Format("2006-01-02 15:04:05"))
	if report.Metadata.EndedAt != nil {
		fmt.Fprintf(w, "  ended:      %s\n", report.Metadata.EndedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "  trust tier: %s\n", tierColor(report.Metadata.TrustTier))
	fmt.Fprintf(w, "  trust score: %d (%s)\n\n", report.TrustSignal.Score, report.TrustSignal.Assessment)

	statsTable := table.NewWriter()
	statsTable.SetOutputMirror(w)
	statsTable.AppendHeader(table.Row{"Total", "Allowed", "Denied", "Redirected", "Virtualized", "Systemic Risks"})
	statsTable.AppendRow(table.Row{
		report.Stats.Total, report.Stats.Allowed, report.Stats.Denied,
		report.Stats.Redirected, report.Stats.Virtualized, report.Stats.SystemicRisk,
	})
	statsTable.Render()
	fmt.Fprintln(w)

	if report.Processes.ChildCount > 0 || len(report.Processes.Denied) > 0 {
		fmt.Fprintf(w, "processes: %d spawned", report.Processes.ChildCount)
		if len(report.Processes.Denied) > 0 {
			fmt.Fprintf(w, ", %d denied (%s)", len(report.Processes.Denied), strings.Join(report.Processes.Denied, ", "))
		}
		fmt.Fprint(w, "\n\n")
	}

	if len(report.Events) == 0 {
		return
	}

	evTable := table.NewWriter()
	evTable.SetOutputMirror(w)
	evTable.AppendHeader(table.Row{"Time", "Kind", "Target", "Decision", "Reason"})
	for _, ev := range report.Events {
		evTable.AppendRow(table.Row{
			ev.Attempt.Timestamp.Format("15:04:05.000"),
			ev.Attempt.Kind.String(),
			targetString(ev.Attempt.Target),
			actionColor(ev.Decision.Action),
			ev.Decision.Reason,
		})
	}
	evTable.Render()
}

func targetString(t types.AccessTarget) string {
	switch t.Kind {
	case types.TargetPath:
		return t.Path
	case types.TargetNetwork:
		return fmt.Sprintf("%s:%d", t.Network.Host, t.Network.Port)
	case types.TargetDevice, types.TargetSocket:
		return t.Name
	default:
		return ""
	}
}

func actionColor(a types.DecisionAction) string {
	switch a {
	case types.ActionAllow:
		return color.GreenString(a.String())
	case types.ActionDeny:
		return color.RedString(a.String())
	case types.ActionRedirect, types.ActionVirtualize:
		return color.YellowString(a.String())
	default:
		return a.String()
	}
}

func tierColor(tier types.TrustTier) string {
	switch tier {
	case types.TrustRed:
		return color.RedString(tier.String())
	case types.TrustYellow:
		return color.YellowString(tier.String())
	case types.TrustGreen:
		return color.GreenString(tier.String())
	default:
		return tier.String()
	}
}
