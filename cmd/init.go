package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"winewarden/internal/config"
	"winewarden/internal/wwpaths"
)

var (
	initPath  string
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initPath, "path", "", "config file path (default: "+wwpaths.ConfigPath()+")")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := initPath
	if path == "" {
		path = wwpaths.ConfigPath()
	}
	if err := config.Save(path, config.Default(), initForce); err != nil {
		return err
	}
	fmt.Printf("wrote default configuration to %s\n", path)
	return nil
}
