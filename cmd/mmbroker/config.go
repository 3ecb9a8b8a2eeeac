package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mmbroker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mmbroker configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a documented default config file",
	Long: `Write a documented mmbroker.kdl to the current directory, or the global config
with --global. Existing files are kept unless --force is given.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().Bool("global", false, "Write the global config instead of ./mmbroker.kdl")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	global, _ := cmd.Flags().GetBool("global")
	force, _ := cmd.Flags().GetBool("force")

	path := config.ProjectConfigFile
	if global {
		path = config.GlobalConfigPath()
		if path == "" {
			return fmt.Errorf("cannot determine global config directory")
		}
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	abs, _ := filepath.Abs(path)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", abs)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source := "defaults"
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		source = path
	} else if cwd, err := os.Getwd(); err == nil {
		if found := config.FindConfigFile(cwd); found != "" {
			source = found
		} else if global := config.GlobalConfigPath(); global != "" {
			if _, err := os.Stat(global); err == nil {
				source = global
			}
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "# source: %s\n", source)

	return printJSON(struct {
		*config.Config
		AllowedOrigins []string `json:"allowed_origins"`
	}{cfg, allowedOrigins(cfg)})
}
