package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/equipoapa2-hub/autopic/applog"
)

var (
	askSession string
	askJSON    bool
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Example: `  autopic ask "¿Cuántos vehículos están disponibles?"
  autopic ask --json "¿Qué vehículos usó Ana esta semana?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id (default \"default\")")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full turn result as JSON")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "also print the SQL query")
	rootCmd.AddCommand(askCmd)
}

type askOutput struct {
	TurnID        string           `json:"turnId"`
	Response      string           `json:"response"`
	NeedsDatabase bool             `json:"needsDatabase"`
	SQLQuery      *string          `json:"sqlQuery"`
	Results       []map[string]any `json:"results"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger, closer := applog.New(applog.Options{Level: applog.ParseLevel(logLevel)})
	defer closer.Close()

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, appCfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.assistant.HandleMessage(ctx, strings.Join(args, " "), askSession)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		payload := askOutput{
			TurnID:        res.ID,
			Response:      res.AnswerText,
			NeedsDatabase: res.UsedDatabase,
		}
		if res.UsedDatabase {
			payload.SQLQuery = &res.Query
			payload.Results = res.Rows
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	if askVerbose && res.UsedDatabase {
		fmt.Fprintf(out, "SQL: %s\n\n", res.Query)
	}
	fmt.Fprintln(out, res.AnswerText)
	return nil
}
