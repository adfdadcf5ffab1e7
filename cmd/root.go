// Package cmd contains all Cobra commands for autopic.
//
// Design decision: the root command launches the chat TUI directly, like
// `autopic chat`. Configuration comes from ~/.autopic/config.json, a .env
// file in the working directory, and the environment, in that order of
// increasing precedence.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/equipoapa2-hub/autopic/config"
)

var (
	envFile  string
	logLevel string

	appCfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "autopic",
	Short: "Natural-language assistant for the AutoPic fleet database",
	Long: `autopic answers questions about vehicles, drivers and vehicle usage in
plain Spanish. It decides whether a question needs the database, writes a
read-only SQL query for it, runs it and explains the result.

  • autopic serve   HTTP API (POST /api/ai/chat, POST /api/ai/clear-context)
  • autopic chat    interactive terminal chat (default)
  • autopic ask     one question, answer on stdout
  • autopic schema  print or verify the schema the assistant knows

Run 'autopic' to start the terminal chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		cfg, err := config.LoadAppConfig()
		if err != nil {
			return fmt.Errorf("load config %s: %w", config.DisplayPath(), err)
		}
		appCfg = cfg
		return nil
	},
	// Running with no subcommand launches the TUI.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id (default \"default\")")
}

// loadEnvFile loads a dotenv file; a missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
