/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/longkey1/pal/internal/assistant"
	"github.com/longkey1/pal/internal/session"
	"github.com/longkey1/pal/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errChatFatal = errors.New("chat ended")

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the assistant.

The most recent conversation is resumed. Type a message and press Enter to send it.
Use /record to start recording your voice and /record again to send the recording.

When stdin is not a terminal, every input line is sent as one message.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		input, err := newLineReader(a.cfg.DataDir)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer input.Close()

		sp := newSpinner(os.Stderr)
		sess := newSessionWithIndicator(a, sp)
		defer func() {
			sess.Close()
			sess.Wait()
		}()

		if err := runInteractiveMode(cmd.Context(), sess, input, sp, os.Stdout, os.Stderr); err != nil && !errors.Is(err, errChatFatal) {
			return fmt.Errorf("interactive mode: %w", err)
		}
		return nil
	},
}

// lineReader reads one line of user input at a time
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// newLineReader returns a readline editor on a terminal and a plain scanner otherwise
func newLineReader(dataDir string) (lineReader, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return &scannerReader{scanner: bufio.NewScanner(os.Stdin)}, nil
	}
	return readline.NewEx(&readline.Config{
		Prompt:          ui.UserLabelStyle.Render("you") + "> ",
		HistoryFile:     filepath.Join(dataDir, "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
	})
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (r *scannerReader) Readline() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scannerReader) Close() error {
	return nil
}

// exchangeContext returns a context that Ctrl+C cancels for the length of one exchange.
// Between exchanges readline reports Ctrl+C itself.
func exchangeContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

// newSessionWithIndicator builds a session whose pending replies drive the spinner
func newSessionWithIndicator(a *app, sp *spinner) *session.Session {
	return a.newSession(func(conv assistant.Conversation) {
		if n := len(conv.Messages); n > 0 && conv.Messages[n-1].IsTyping {
			sp.Start("Waiting for response...")
		}
	})
}

// transcript prints conversation messages that have not been shown yet
type transcript struct {
	out     io.Writer
	shown   map[string]bool
	firstID string
}

func newTranscript(out io.Writer) *transcript {
	return &transcript{out: out, shown: make(map[string]bool)}
}

func (t *transcript) render(conv assistant.Conversation) {
	if len(conv.Messages) == 0 {
		return
	}
	// A different first message means the conversation was replaced
	if t.firstID != "" && conv.Messages[0].ID != t.firstID {
		fmt.Fprintln(t.out, ui.StatusStyle.Render("── new conversation ──"))
		t.shown = make(map[string]bool)
	}
	t.firstID = conv.Messages[0].ID

	for _, m := range conv.Messages {
		if m.IsTyping || t.shown[m.ID] {
			continue
		}
		t.shown[m.ID] = true
		fmt.Fprintln(t.out, ui.RenderMessage(m))
	}
}

// runInteractiveMode runs the chat loop until /exit, EOF or a fatal failure
func runInteractiveMode(ctx context.Context, sess *session.Session, input lineReader, sp *spinner, out, errOut io.Writer) error {
	if err := sess.Open(ctx); err != nil {
		fmt.Fprintln(errOut, ui.RenderInlineError("Could not load your conversation, starting a new one."))
	}

	// Print session header
	fmt.Fprintln(errOut, ui.TitleStyle.Render("=== pal ==="))
	fmt.Fprintln(errOut, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit")
	fmt.Fprintln(errOut)

	t := newTranscript(out)
	t.render(sess.Conversation())

	for {
		line, err := input.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if sess.State() == session.StateRecording {
				_ = sess.CancelRecording()
				fmt.Fprintln(errOut, ui.StatusStyle.Render("Recording discarded."))
				continue
			}
			fmt.Fprintln(errOut, "Goodbye!")
			return nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(errOut, "Goodbye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("input error: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle special commands
		if strings.HasPrefix(line, "/") {
			cont, err := handleSpecialCommand(ctx, line, sess, sp, t, errOut)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
			continue
		}

		if sess.State() == session.StateRecording {
			fmt.Fprintln(errOut, ui.RenderInlineError("Recording in progress: /record to send it or /cancel to discard it."))
			continue
		}

		exCtx, stop := exchangeContext(ctx)
		_, err = sess.SendText(exCtx, line)
		stop()
		sp.Stop()
		t.render(sess.Conversation())
		if err := presentError(err, errOut); err != nil {
			return err
		}
	}
}

// handleSpecialCommand processes slash commands.
// Returns false to exit the loop.
func handleSpecialCommand(ctx context.Context, command string, sess *session.Session, sp *spinner, t *transcript, errOut io.Writer) (bool, error) {
	fields := strings.Fields(strings.ToLower(command))

	switch fields[0] {
	case "/help", "/h":
		fmt.Fprintln(errOut, "\nAvailable commands:")
		fmt.Fprintln(errOut, "  /record, /r      - Start recording, or stop and send the recording")
		fmt.Fprintln(errOut, "  /cancel          - Discard the current recording")
		fmt.Fprintln(errOut, "  /new             - Start a new conversation")
		fmt.Fprintln(errOut, "  /voice [on|off]  - Show or set spoken replies")
		fmt.Fprintln(errOut, "  /info, /i        - Show conversation information")
		fmt.Fprintln(errOut, "  /exit, /quit     - Exit")
		fmt.Fprintln(errOut, "  Ctrl+D           - Exit")
		fmt.Fprintln(errOut)
		return true, nil

	case "/info", "/i":
		conv := sess.Conversation()
		id := conv.ID
		if id == "" {
			id = "(not created yet)"
		}
		fmt.Fprintln(errOut, "\nConversation Information:")
		fmt.Fprintf(errOut, "  ID: %s\n", id)
		fmt.Fprintf(errOut, "  Messages: %d\n", conv.MessageCount())
		fmt.Fprintf(errOut, "  %s\n", ui.RenderStatus(sess.State().String(), sess.VoiceOutput()))
		fmt.Fprintln(errOut)
		return true, nil

	case "/record", "/r":
		exCtx, stop := exchangeContext(ctx)
		defer stop()

		if sess.State() != session.StateRecording {
			if err := sess.StartRecording(exCtx); err != nil {
				return true, presentError(err, errOut)
			}
			fmt.Fprintln(errOut, ui.RenderStatus(session.StateRecording.String(), sess.VoiceOutput()))
			fmt.Fprintln(errOut, ui.StatusStyle.Render("Recording... /record to send, /cancel to discard."))
			return true, nil
		}
		_, err := sess.StopRecording(exCtx)
		sp.Stop()
		t.render(sess.Conversation())
		return true, presentError(err, errOut)

	case "/cancel":
		if err := sess.CancelRecording(); err != nil {
			fmt.Fprintln(errOut, ui.RenderInlineError("Not recording."))
			return true, nil
		}
		fmt.Fprintln(errOut, ui.StatusStyle.Render("Recording discarded."))
		return true, nil

	case "/new":
		if err := sess.NewConversation(); err != nil {
			fmt.Fprintln(errOut, ui.RenderInlineError(err.Error()))
			return true, nil
		}
		t.render(sess.Conversation())
		return true, nil

	case "/voice":
		if len(fields) > 1 {
			enabled, err := parseOnOff(fields[1])
			if err != nil {
				fmt.Fprintln(errOut, ui.RenderInlineError(err.Error()))
				return true, nil
			}
			if err := sess.SetVoiceOutput(enabled); err != nil {
				fmt.Fprintln(errOut, ui.RenderInlineError(fmt.Sprintf("Could not save voice setting: %v", err)))
				return true, nil
			}
		}
		fmt.Fprintf(errOut, "Voice replies: %s\n", onOff(sess.VoiceOutput()))
		return true, nil

	case "/exit", "/quit", "/q":
		fmt.Fprintln(errOut, "Goodbye!")
		return false, nil

	default:
		fmt.Fprintf(errOut, "Unknown command: %s (type '/help' for available commands)\n", fields[0])
		return true, nil
	}
}

// presentError shows a failure the way its classification asks for.
// It returns errChatFatal when the chat cannot continue.
func presentError(err error, errOut io.Writer) error {
	// A cancelled exchange is already marked in the transcript
	if err == nil || errors.Is(err, session.ErrCancelled) {
		return nil
	}

	var f *session.Failure
	if !errors.As(err, &f) {
		fmt.Fprintln(errOut, ui.RenderInlineError(err.Error()))
		return nil
	}

	// Inline errors are already part of the transcript
	if !f.Alert() {
		return nil
	}

	body := f.Err.Error()
	if f.Report != nil {
		body = ui.RenderReport(*f.Report)
	}
	fmt.Fprintln(errOut, ui.RenderAlert(f.Message, body, f.Retryable()))

	if f.Kind == session.KindAuthExpired {
		return errChatFatal
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
