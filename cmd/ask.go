package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/dealscout/internal/model"
	"github.com/sells-group/dealscout/internal/orchestrator"
)

var askCmd = &cobra.Command{
	Use:   "ask <product>",
	Short: "Run one product query from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		req := model.NewRequest(args[0], "cli")
		notify := orchestrator.NotifierFunc(func(_ context.Context, text string) {
			fmt.Fprintln(os.Stderr, text)
		})

		outcome := orch.Run(ctx, req, notify)

		p := message.NewPrinter(language.English)
		for i, s := range outcome.Ranking {
			if s.Failed {
				p.Printf("%2d. %-24s (not scored: %s)\n", i+1, s.Offer.Store, s.FailReason)
				continue
			}
			p.Printf("%2d. %-24s $%.2f  rating %.1f  score %.2f\n",
				i+1, s.Offer.Store, s.FinalPrice, s.Offer.Rating, s.Score)
		}

		fmt.Println()
		fmt.Println(outcome.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
