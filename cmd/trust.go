package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"winewarden/internal/trust"
	"winewarden/internal/types"
	"winewarden/internal/wwpaths"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Inspect or override an executable's trust tier",
}

var trustGetCmd = &cobra.Command{
	Use:   "get <exe>",
	Short: "Print the stored trust entry for an executable",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrustGet,
}

var trustSetCmd = &cobra.Command{
	Use:   "set <exe> <tier>",
	Short: "Override the stored trust tier for an executable",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrustSet,
}

func init() {
	trustCmd.AddCommand(trustGetCmd, trustSetCmd)
	rootCmd.AddCommand(trustCmd)
}

func runTrustGet(cmd *cobra.Command, args []string) error {
	store, err := trust.LoadStore(wwpaths.TrustStorePath())
	if err != nil {
		return err
	}
	hash, err := trust.HashExecutable(args[0])
	if err != nil {
		return err
	}
	entry, ok := store.Get(hash)
	if !ok {
		fmt.Printf("no trust entry for %s (sha256 %s)\n", args[0], hash)
		return nil
	}
	fmt.Printf("%s\n  sha256: %s\n  tier:   %s\n  runs:   %d\n  last:   %s\n",
		entry.Identity.Path, entry.Identity.SHA256, entry.Tier, entry.Runs,
		entry.LastSeen.Format("2006-01-02 15:04:05"))
	return nil
}

func runTrustSet(cmd *cobra.Command, args []string) error {
	tier, ok := types.ParseTrustTier(args[1])
	if !ok {
		return fmt.Errorf("invalid trust tier %q (expected red, yellow, or green)", args[1])
	}

	store, err := trust.LoadStore(wwpaths.TrustStorePath())
	if err != nil {
		return err
	}
	hash, err := trust.HashExecutable(args[0])
	if err != nil {
		return err
	}
	store.SetTier(hash, tier)
	if err := store.Save(); err != nil {
		return err
	}
	fmt.Printf("set trust tier for %s to %s\n", args[0], tier)
	return nil
}
