// Package ui renders the chat transcript, alerts and status lines for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/longkey1/pal/internal/assistant"
)

// RenderMessage formats one transcript entry
func RenderMessage(m assistant.Message) string {
	label := AssistantLabelStyle.Render("pal")
	if m.Role == assistant.RoleUser {
		label = UserLabelStyle.Render("you")
	}

	content := m.Content
	if m.IsTyping {
		content = TypingStyle.Render(content)
	}

	ts := ""
	if !m.Timestamp.IsZero() {
		ts = TimestampStyle.Render(m.Timestamp.Local().Format("15:04")) + " "
	}
	return fmt.Sprintf("%s%s › %s", ts, label, content)
}

// RenderTranscript formats messages one per line
func RenderTranscript(messages []assistant.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, RenderMessage(m))
	}
	return strings.Join(lines, "\n")
}

// RenderInlineError formats a non-blocking error shown in the transcript area
func RenderInlineError(text string) string {
	return ErrorTextStyle.Render("! " + text)
}

// RenderAlert formats a blocking alert. Retryable alerts get a retry hint.
func RenderAlert(title, body string, retry bool) string {
	var b strings.Builder
	b.WriteString(AlertTitleStyle.Render(title))
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}
	if retry {
		b.WriteString("\n")
		b.WriteString(HintStyle.Render("Try again when ready."))
	}
	return AlertStyle.Render(b.String())
}

// RenderStatus formats the status line below the prompt
func RenderStatus(state string, voiceOutput bool) string {
	dot := IdleDotStyle.Render("○")
	if state == "recording" {
		dot = RecordingDotStyle.Render("●")
	}
	voice := "off"
	if voiceOutput {
		voice = "on"
	}
	return fmt.Sprintf("%s %s", dot, StatusStyle.Render(fmt.Sprintf("%s · voice %s", state, voice)))
}

// RenderReport formats a connectivity report
func RenderReport(r assistant.DiagnosticsReport) string {
	lines := []string{
		TitleStyle.Render("Connectivity"),
		fmt.Sprintf("  API:     %s", r.APIBaseURL),
		fmt.Sprintf("  Network: %s", check(r.NetworkConnected)),
		fmt.Sprintf("  Server:  %s", check(r.ServerReachable)),
	}
	return strings.Join(lines, "\n")
}

func check(ok bool) string {
	if ok {
		return OKStyle.Render("ok")
	}
	return ErrorTextStyle.Render("unreachable")
}
