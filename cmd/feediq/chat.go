package main

import (
	"fmt"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zatekoja/feediq/cmd/feediq/ui"
	"github.com/zatekoja/feediq/internal/app"
	"github.com/zatekoja/feediq/internal/domain/providers"
	"github.com/zatekoja/feediq/internal/intake"
)

var chatPage string

// chatCmd runs one conversation in the terminal
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Give feedback through the conversational form",
	Long: `Starts a conversation that asks for consent, name, optional email,
a 1-5 star rating and a comment, then saves the record to the configured store.
The conversation closes itself a few seconds after submitting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return runChat(cmd, a)
		})
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatPage, "page", "cli", "page recorded with the feedback")
}

func runChat(cmd *cobra.Command, a *app.App) error {
	closed := make(chan struct{}, 1)
	registry := a.NewRegistry(intake.WithOnClose(func(*intake.Session) {
		closed <- struct{}{}
	}))
	defer registry.CloseAll()

	session := registry.Start(providers.StaticEnvironment{
		PageURI:   chatPage,
		UserAgent: fmt.Sprintf("feediq-cli (%s; %s)", runtime.GOOS, runtime.GOARCH),
	})

	model := ui.NewChatModel(cmd.Context(), session, closed)
	program := tea.NewProgram(model,
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if m, ok := final.(ui.ChatModel); ok {
		if record := m.Snapshot().Record; record != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "saved feedback %s\n", record.ID)
		}
	}
	return nil
}
