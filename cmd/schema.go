package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/equipoapa2-hub/autopic/applog"
	"github.com/equipoapa2-hub/autopic/schema"
)

var schemaVerify bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema the assistant prompts with",
	Long: `Prints the fleet schema descriptor. With --verify, connects to the
configured database and reports tables, columns and relations the
descriptor names but the database lacks; exits non-zero on drift.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if !schemaVerify {
			fmt.Fprintln(out, schema.Fleet().String())
			return nil
		}

		logger, closer := applog.New(applog.Options{Level: applog.ParseLevel(logLevel)})
		defer closer.Close()

		rt, err := newDatabaseRuntime(cmd.Context(), appCfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		fmt.Fprintf(out, "Verifying against %s\n", rt.dbLabel)
		drift, err := rt.drift(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, drift.String())
		if !drift.OK() {
			return errSchemaDrift
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaVerify, "verify", false, "compare with the live database")
	rootCmd.AddCommand(schemaCmd)
}
