package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"winewarden/internal/config"
	"winewarden/internal/wwpaths"
)

var (
	configPath  string
	configPrint bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect winewarden's effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().StringVar(&configPath, "path", "", "config file path (default: "+wwpaths.ConfigPath()+")")
	configCmd.Flags().BoolVar(&configPrint, "print", false, "print the effective configuration as JSON")
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = wwpaths.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if !configPrint {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	fmt.Fprintln(os.Stderr, "config path:", path)
	return enc.Encode(cfg)
}
