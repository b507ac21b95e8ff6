package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/dealscout/internal/bot"
	"github.com/sells-group/dealscout/pkg/telegram"
)

var botMaxInFlight int

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.RequireTelegram(); err != nil {
			return err
		}

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		client := telegram.NewClient(cfg.Telegram.Token, telegram.WithSendRate(cfg.Telegram.SendRPS))

		return bot.New(client, orch, cfg.Telegram.PollTimeoutSecs, botMaxInFlight).Run(ctx)
	},
}

func init() {
	botCmd.Flags().IntVar(&botMaxInFlight, "max-in-flight", 16, "max concurrently handled messages")
	rootCmd.AddCommand(botCmd)
}
