package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ipchi/fcrm-chat-go/internal/api"
)

var (
	messagesPage    int
	messagesPerPage int
)

var (
	clientStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	botStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	editedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		defer client.Dispose()

		if err := client.Initialize(cmd.Context()); err != nil {
			return err
		}

		page := client.LoadMessages(cmd.Context(), messagesPage, messagesPerPage)
		if len(page.Messages) == 0 {
			fmt.Println("No messages.")
			return nil
		}

		for _, m := range page.Messages {
			fmt.Println(renderMessage(m))
		}
		if page.HasMore() {
			fmt.Printf("\nPage %d of %d; use --page to see more.\n", page.CurrentPage, page.LastPage)
		}
		return nil
	},
}

func renderMessage(m api.Message) string {
	sender := m.SenderName
	if sender == "" {
		sender = string(m.SenderType)
	}

	var style lipgloss.Style
	switch m.SenderType {
	case api.SenderClient:
		style = clientStyle
	case api.SenderUser:
		style = agentStyle
	case api.SenderBot:
		style = botStyle
	default:
		style = systemStyle
	}

	line := fmt.Sprintf("%s %s: %s",
		timestampStyle.Render(m.CreatedAt.Format("2006-01-02 15:04")),
		style.Render(sender),
		m.Message,
	)
	if _, edited := m.Metadata["edited"]; edited {
		line += " " + editedStyle.Render("(edited)")
	}
	return line
}

func init() {
	messagesCmd.Flags().IntVar(&messagesPage, "page", 1, "History page to fetch")
	messagesCmd.Flags().IntVar(&messagesPerPage, "per-page", 50, "Messages per page")
	rootCmd.AddCommand(messagesCmd)
}
