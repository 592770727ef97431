package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/longkey1/pal/internal/assistant"
	"github.com/longkey1/pal/internal/ui"
	"github.com/spf13/cobra"
)

// conversationsCmd represents the conversations command
var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Browse conversation history",
	Long: `Browse the conversations stored by the assistant backend.

The chat command always resumes the most recent conversation.`,
}

// conversationsListCmd represents the conversations list command
var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	Long:  `List all conversations, most recently updated first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conversations, err := fetchConversations(cmd.Context())
		if err != nil {
			return err
		}

		if len(conversations) == 0 {
			fmt.Println("No conversations found.")
			fmt.Println("\nStart one with:")
			fmt.Println("  pal chat")
			return nil
		}

		printConversationList(os.Stdout, conversations)

		fmt.Println("\nUse 'pal conversations show <id>' to view a conversation.")
		return nil
	},
}

// conversationsShowCmd represents the conversations show command
var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation",
	Long: `Show every message of a conversation.

The ID can be a short ID (minimum 4 characters), a full ID, or "latest" for the most recent conversation.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conversations, err := fetchConversations(cmd.Context())
		if err != nil {
			return err
		}

		conv, err := findConversation(conversations, args[0])
		if err != nil {
			return fmt.Errorf("finding conversation: %w", err)
		}

		fmt.Printf("Conversation: %s\n", conv.ID)
		if updated := conv.LastUpdated(); !updated.IsZero() {
			fmt.Printf("Updated: %s\n", updated.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Messages: %d\n", conv.MessageCount())
		fmt.Println()

		if len(conv.Messages) == 0 {
			fmt.Println("No messages in this conversation.")
			return nil
		}
		fmt.Println(ui.RenderTranscript(conv.Messages))
		return nil
	},
}

// fetchConversations loads the conversation list from the backend
func fetchConversations(ctx context.Context) ([]assistant.Conversation, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	conversations, err := a.client.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return conversations, nil
}

func printConversationList(out io.Writer, conversations []assistant.Conversation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tMESSAGES\tFIRST MESSAGE")
	fmt.Fprintln(w, "--\t-------\t--------\t-------------")

	for _, conv := range conversations {
		updated := "-"
		if t := conv.LastUpdated(); !t.IsZero() {
			updated = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			conv.GetShortID(),
			updated,
			conv.MessageCount(),
			firstUserMessage(conv),
		)
	}
	w.Flush()
}

// firstUserMessage returns a one-line preview of the first user message
func firstUserMessage(conv assistant.Conversation) string {
	for _, m := range conv.Messages {
		if m.Role != assistant.RoleUser {
			continue
		}
		preview := strings.Join(strings.Fields(m.Content), " ")
		if r := []rune(preview); len(r) > 40 {
			preview = string(r[:40]) + "..."
		}
		return preview
	}
	return "-"
}

// findConversation resolves "latest", a full ID or a unique prefix.
// conversations must be ordered most recent first.
func findConversation(conversations []assistant.Conversation, prefix string) (assistant.Conversation, error) {
	if prefix == "latest" {
		if len(conversations) == 0 {
			return assistant.Conversation{}, fmt.Errorf("no conversations found")
		}
		return conversations[0], nil
	}

	// Validate minimum prefix length
	if len(prefix) < 4 {
		return assistant.Conversation{}, fmt.Errorf("conversation ID prefix must be at least 4 characters (got %d)", len(prefix))
	}

	var matches []assistant.Conversation
	for _, conv := range conversations {
		if conv.ID == prefix {
			return conv, nil
		}
		if strings.HasPrefix(conv.ID, prefix) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		return assistant.Conversation{}, fmt.Errorf("conversation not found: %s\n\nRun 'pal conversations list' to see available conversations.", prefix)
	case 1:
		return matches[0], nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.GetShortID())
	}
	return assistant.Conversation{}, fmt.Errorf("ambiguous conversation ID prefix %q matches %d conversations: %s",
		prefix, len(matches), strings.Join(ids, ", "))
}

func init() {
	rootCmd.AddCommand(conversationsCmd)
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
}
