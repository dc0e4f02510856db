package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreman2200/lumanet/internal/config"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s exists; use --force to overwrite", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
