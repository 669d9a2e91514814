package cmd

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"marketdigest/internal/httpx"
	"marketdigest/internal/report"
	"marketdigest/internal/stocktwits"
)

// socialCmd fetches one watchlist and prints its Markdown to stdout, for
// trying out a handle list without generating a full report.
var socialCmd = &cobra.Command{
	Use:   "social",
	Short: "Fetch posts for the given handles and print them as Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(cfg.Social.Handles) == 0 {
			return fmt.Errorf("no handles provided, use --handles to specify accounts")
		}

		client := httpx.NewClient(
			time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second,
			cfg.HTTP.RetryMax,
			cfg.HTTP.UserAgent,
		)
		src := stocktwits.New(stocktwits.Config{
			Handles: cfg.Social.Handles,
			Limit:   cfg.Social.Limit,
		}, client)

		records, err := src.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(report.RenderRecords(records))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(socialCmd)
}
