package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
)

var (
	// Global flags
	sessionID   string
	jsonOutput  bool
	pruneMaxAge time.Duration
	showTurns   int
)

var rootCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Multi-turn assistant for ZUS Coffee outlets, products and calculations",
	Long: `dialogue turns free-text messages into safe, deterministic actions:
answering directly, asking for missing details, or calling one of the
outlets, products and calculator tools. Slot values carry across turns
of the same session.

Run without arguments to start an interactive chat.`,
	SilenceUsage: true,
	RunE:         runChat,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send a single message and print the reply",
	Example: `  dialogue ask "Is there an outlet in Petaling Jaya?" --session demo
  dialogue ask "SS 2, what's the opening time?" --session demo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored sessions",
	RunE:  runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's state and transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete sessions idle for longer than --max-age",
	RunE:  runSessionsPrune,
}

func init() {
	chatCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to resume (default: a new random id)")
	askCmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: a new random id)")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full reply as JSON")
	sessionsShowCmd.Flags().IntVar(&showTurns, "last", 0, "only show the last N messages")
	sessionsPruneCmd.Flags().DurationVar(&pruneMaxAge, "max-age", 0, "maximum idle time (default: SESSION_MAX_AGE)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsPruneCmd)
	rootCmd.AddCommand(chatCmd, askCmd, sessionsCmd)
}

// withApp loads config, wires the engine and runs fn with a context that is
// cancelled on SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	a.serveMetrics(ctx)
	return fn(ctx, a)
}

func resolveSessionID() string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	return uuid.NewString()
}

func runChat(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		id := resolveSessionID()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session %s. Type 'exit' to quit.\n", id)
		return chatLoop(ctx, a, id, cmd.InOrStdin(), out)
	})
}

func chatLoop(ctx context.Context, a *app, id string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, err := a.engine.Chat(ctx, id, line)
		if err != nil {
			fmt.Fprintf(out, "bot>  %s\n", errx.SafeMessage(err, "Sorry, your message could not be saved. Please try again."))
			continue
		}
		fmt.Fprintf(out, "bot>  %s\n", reply.Message)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		reply, err := a.engine.Chat(ctx, resolveSessionID(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reply)
		}
		fmt.Fprintln(out, reply.Message)
		fmt.Fprintf(out, "\n[session %s · %s]\n", reply.SessionID, reply.ActionTaken)
		return nil
	})
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		ids, err := a.sessions.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No saved sessions found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		fmt.Fprintf(out, "Total: %d sessions\n", len(ids))
		return nil
	})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		s, err := a.sessions.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printSession(cmd.OutOrStdout(), s)
		return nil
	})
}

func printSession(out io.Writer, s *model.Session) {
	fmt.Fprintf(out, "Session:       %s\n", s.ID)
	fmt.Fprintf(out, "Created:       %s\n", s.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Last activity: %s\n", s.LastActivity.Format(time.RFC3339))
	fmt.Fprintf(out, "Last action:   %s\n", s.State.LastAction)
	fmt.Fprintf(out, "Context:       %s\n\n", s.ContextSummary())
	fmt.Fprint(out, conversations.Transcript(s.Messages, showTurns))
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.sessions.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
		return nil
	})
}

func runSessionsPrune(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		n, err := a.sessions.Prune(ctx, pruneMaxAge)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d sessions\n", n)
		return nil
	})
}
