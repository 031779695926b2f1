package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"winewarden/internal/prefix"
	"winewarden/internal/wwpaths"
)

var prefixCmd = &cobra.Command{
	Use:   "prefix",
	Short: "Scan or snapshot a Wine prefix",
}

var prefixScanCmd = &cobra.Command{
	Use:   "scan <prefix>",
	Short: "List the files found under a prefix root",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefixScan,
}

var prefixSnapshotCmd = &cobra.Command{
	Use:   "snapshot <prefix>",
	Short: "Record a hygiene snapshot of a prefix root",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefixSnapshot,
}

func init() {
	prefixCmd.AddCommand(prefixScanCmd, prefixSnapshotCmd)
	rootCmd.AddCommand(prefixCmd)
}

func runPrefixScan(cmd *cobra.Command, args []string) error {
	entries, err := prefix.Scan(args[0])
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%10d  %s\n", e.Size, e.Path)
	}
	fmt.Printf("%d files\n", len(entries))
	return nil
}

func runPrefixSnapshot(cmd *cobra.Command, args []string) error {
	snap, err := prefix.NewSnapshot(args[0], time.Now())
	if err != nil {
		return err
	}
	if err := prefix.Save(wwpaths.SnapshotsDir(), snap); err != nil {
		return err
	}
	fmt.Printf("wrote snapshot %s (%d entries)\n", snap.ID, len(snap.Entries))
	return nil
}
