package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ent0n29/gadgetdesk/internal/memory"
	"github.com/ent0n29/gadgetdesk/internal/session"
)

const botName = "GadgetDesk:"

func newChatCommand() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: strings.TrimSpace(`Start an interactive chat. Commands:
  /reset    forget the conversation so far
  /history  print the stored turns
  exit      leave`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, log, err := bootstrap(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeQuietly(res, log)

			if userID == "" {
				userID = uuid.NewString()
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "You: ",
				HistoryFile:     filepath.Join(os.TempDir(), ".gadgetdesk_history"),
				HistoryLimit:    100,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("init readline: %w", err)
			}
			defer rl.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s Hi there! Ask me about products, orders or returns (Ctrl+C to exit)\n\n", botName)
			return runChatLoop(cmd.Context(), res.Sessions, userID, rl.Readline, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id for the conversation (random when empty)")
	return cmd
}

// runChatLoop reads lines until EOF, interrupt or "exit" and answers each.
func runChatLoop(ctx context.Context, sessions *session.Manager, userID string, readLine func() (string, error), out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		line, err := readLine()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		switch input {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "/reset":
			if err := sessions.Reset(ctx, userID); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "%s Conversation reset.\n\n", botName)
			continue
		case "/history":
			printHistory(ctx, sessions, userID, out)
			continue
		}

		res, err := sessions.HandleTurn(ctx, userID, input)
		switch {
		case errors.Is(err, session.ErrEmptyInput):
			fmt.Fprintf(out, "%s Please enter a question.\n\n", botName)
		case err != nil:
			fmt.Fprintf(out, "Error: %v\n", err)
		default:
			fmt.Fprintf(out, "%s %s\n\n", botName, res.Response)
		}
	}
}

func printHistory(ctx context.Context, sessions *session.Manager, userID string, out io.Writer) {
	turns, err := sessions.History(ctx, userID)
	if errors.Is(err, memory.ErrUserNotFound) || (err == nil && len(turns) == 0) {
		fmt.Fprintln(out, "(no history yet)")
		return
	}
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	for i, t := range turns {
		fmt.Fprintf(out, "%d. [%s] %s\n   -> %s\n", i+1, t.CreatedAt.Format("15:04:05"), t.Query, strings.ReplaceAll(t.Response, "\n", " | "))
	}
	fmt.Fprintln(out)
}
