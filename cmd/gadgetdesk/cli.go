package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ent0n29/gadgetdesk/internal/app"
	"github.com/ent0n29/gadgetdesk/internal/config"
	"github.com/ent0n29/gadgetdesk/internal/observability"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gadgetdesk",
		Short: "Retail FAQ assistant for electronic gadgets",
		Long: strings.TrimSpace(`gadgetdesk answers product, order and policy questions from a static
catalog. Run the HTTP server with "serve", chat in the terminal with "chat",
or ask a single question with "ask".`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newServeCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newAskCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newAskCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:     "ask <question...>",
		Short:   "Answer one question and exit",
		Example: `  gadgetdesk ask "What is the price of the Laptop Pro?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, log, err := bootstrap(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeQuietly(res, log)

			turn, err := res.Sessions.HandleTurn(cmd.Context(), userID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), turn.Response)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "cli", "User id the question is recorded under")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gadgetdesk %s\n", version)
		},
	}
}

func bootstrap(ctx context.Context, logOut io.Writer) (*app.BuildResult, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logOut == nil {
		logOut = os.Stderr
	}
	log := observability.NewLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Output:      logOut,
		ServiceName: "gadgetdesk",
	})
	res, err := app.Build(ctx, cfg, log)
	if err != nil {
		return nil, log, err
	}
	return res, log, nil
}

func closeQuietly(res *app.BuildResult, log zerolog.Logger) {
	if err := res.Cleanup(); err != nil {
		log.Warn().Err(err).Msg("cleanup failed")
	}
}
