package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"winewarden/internal/daemon"
	"winewarden/internal/trust"
	"winewarden/internal/wwpaths"
)

var statusDaemon bool

var statusCmd = &cobra.Command{
	Use:   "status [exe]",
	Short: "Print daemon or trust status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusDaemon, "daemon", false, "query the running daemon instead of local state")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusDaemon {
		return statusFromDaemon()
	}
	if len(args) == 1 {
		return statusForExecutable(args[0])
	}
	fmt.Println("winewarden: no executable given; pass one to see its trust status, or --daemon for daemon status")
	return nil
}

func statusFromDaemon() error {
	c, err := daemon.Dial(wwpaths.SocketPath())
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer c.Close()

	resp, err := c.Status()
	if err != nil {
		return err
	}
	fmt.Printf("daemon active sessions: %d\n", resp.Active)
	return nil
}

func statusForExecutable(exe string) error {
	store, err := trust.LoadStore(wwpaths.TrustStorePath())
	if err != nil {
		return err
	}
	hash, err := trust.HashExecutable(exe)
	if err != nil {
		return err
	}
	entry, ok := store.Get(hash)
	if !ok {
		fmt.Printf("%s: no recorded runs\n", exe)
		return nil
	}
	fmt.Printf("%s: tier=%s runs=%d last_seen=%s\n", exe, entry.Tier, entry.Runs, entry.LastSeen.Format("2006-01-02 15:04:05"))
	return nil
}
