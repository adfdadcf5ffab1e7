package cmd

import (
	"github.com/spf13/cobra"

	"github.com/equipoapa2-hub/autopic/applog"
	"github.com/equipoapa2-hub/autopic/schema"
	"github.com/equipoapa2-hub/autopic/tui"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id (default \"default\")")
	rootCmd.AddCommand(chatCmd)
}

// runChat owns the terminal, so logs go to ~/.autopic/logs/app.log.
func runChat(cmd *cobra.Command, _ []string) error {
	logger, closer := applog.New(applog.Options{Level: applog.ParseLevel(logLevel)})
	defer closer.Close()

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, appCfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.runJanitor(ctx)

	return tui.Start(ctx, rt.assistant, tui.Options{
		SessionID: chatSession,
		Provider:  rt.provider.Name(),
		Database:  rt.dbLabel,
		Schema:    schema.Fleet(),
		Verify:    rt.verifySchema,
	})
}
