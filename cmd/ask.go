package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ca-srg/nova/internal/router"
	"github.com/ca-srg/nova/internal/tools"
)

const cliSession = "cli"

var (
	askOutDir  string
	askVerbose bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask questions from the terminal",
	Long: `
Ask the assistant from the terminal. With a question argument the answer is
printed and the command exits; without one an interactive session starts in
which follow-up questions reuse the previous result.

Examples:
  nova ask "monthly review for UK December 2025"
  nova ask                                  # interactive session
  nova ask --out ./reports "plan for Sweden March 2026"
`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOutDir, "out", "o", ".", "directory for attached report files")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "log tool and API activity to stderr")
}

// consoleMessenger prints replies and writes attachments to a directory.
type consoleMessenger struct {
	w      io.Writer
	outDir string
}

func (m *consoleMessenger) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintf(m.w, "Nova: %s\n\n", text)
	return err
}

func (m *consoleMessenger) Upload(_ context.Context, f tools.File) error {
	if err := os.MkdirAll(m.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(m.outDir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	_, err := fmt.Fprintf(m.w, "Nova: %s %s (saved to %s)\n\n", f.Comment, f.Title, path)
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger := log.New(io.Discard, "", 0)
	if askVerbose {
		logger = log.New(os.Stderr, "ask ", log.LstdFlags)
	}
	ctx := cmd.Context()
	app, err := newAssistant(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	reply := &consoleMessenger{w: cmd.OutOrStdout(), outDir: askOutDir}
	if len(args) > 0 {
		return askOnce(ctx, app.router, reply, strings.Join(args, " "))
	}
	return askLoop(ctx, app.router, reply, cmd.InOrStdin(), cmd.OutOrStdout())
}

func askOnce(ctx context.Context, r *router.Router, reply tools.Messenger, text string) error {
	return r.HandleMention(ctx, router.Message{
		SessionID: cliSession,
		Text:      text,
		UserID:    os.Getenv("USER"),
		Reply:     reply,
	})
}

func askLoop(ctx context.Context, r *router.Router, reply tools.Messenger, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "=== Nova ===")
	fmt.Fprintln(out, "Ask about a market, month, week or influencer. Follow-up questions reuse the last result.")
	fmt.Fprintln(out, "Type 'reset' to start over, 'exit' to quit.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if err := askOnce(ctx, r, reply, text); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}
