package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/feediq/internal/app"
	"github.com/zatekoja/feediq/internal/domain/entities"
)

var seedCount int

// sampleFeedback covers every rating, with and without email, across the
// device families the dashboard breaks out.
var sampleFeedback = []entities.FeedbackDraft{
	{
		Name: "Alice Johnson", Email: "alice@northwind.io", Rating: 5,
		Comment: "Checkout was quick and the support chat answered right away.",
		Page:    "https://shop.example.org/checkout",
		Device:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	},
	{
		Name: "Chinedu Okafor", Rating: 4,
		Comment: "Pricing page is clear, would like a comparison table.",
		Page:    "https://shop.example.org/pricing",
		Device:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	},
	{
		Name: "Maria Garcia", Email: "maria.garcia@fastmail.com", Rating: 3,
		Comment: "Works fine but search results load slowly on my phone.",
		Page:    "https://shop.example.org/search",
		Device:  "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
	},
	{
		Name: "Kenji Tanaka", Rating: 2,
		Comment: "Payment failed twice before it went through.",
		Page:    "https://shop.example.org/checkout",
		Device:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	},
	{
		Name: "Fatima Bello", Email: "fatima@bello.ng", Rating: 1,
		Comment: "My order never arrived and nobody replied to my emails.",
		Page:    "https://shop.example.org/orders",
		Device:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	{
		Name: "Liam O'Brien", Rating: 5,
		Comment: "Love the new dark mode, great work!",
		Page:    "https://shop.example.org/",
		Device:  "Mozilla/5.0 (iPad; CPU OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
	},
}

// seedCmd loads demo feedback
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Append sample feedback to the configured store",
	Long: `Appends --count sample records, cycling through a fixed set of
visitors, ratings and devices. Records go through the same validation and
alerting as real submissions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			for i := 0; i < seedCount; i++ {
				draft := sampleFeedback[i%len(sampleFeedback)]
				record, err := a.Service.Append(cmd.Context(), draft)
				if err != nil {
					return fmt.Errorf("failed to seed record %d: %w", i+1, err)
				}
				log.Debug().Str("feedback_id", record.ID).Int("rating", record.Rating).Msg("seeded feedback")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d feedback records\n", seedCount)
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", len(sampleFeedback), "number of records to append")
}
