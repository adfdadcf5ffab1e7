package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/equipoapa2-hub/autopic/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.DisplayPath())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config with secrets masked",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := *appCfg
		cfg.AI = maskSecrets(cfg.AI)
		if cfg.Database.Password != "" {
			cfg.Database.Password = "****"
		}
		if cfg.Database.SSH.KeyPassphrase != "" {
			cfg.Database.SSH.KeyPassphrase = "****"
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", config.DisplayPath())
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := config.SaveAppConfig(config.DefaultAppConfig()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.DisplayPath())
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configPathCmd, configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func maskSecrets(c config.AIConfig) config.AIConfig {
	mask := func(s *string) {
		if *s != "" {
			*s = "****"
		}
	}
	mask(&c.OpenAI.APIKey)
	mask(&c.Groq.APIKey)
	mask(&c.Anthropic.APIKey)
	mask(&c.Gemini.APIKey)
	return c
}
