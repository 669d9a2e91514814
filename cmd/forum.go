package cmd

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"marketdigest/internal/httpx"
	"marketdigest/internal/reddit"
	"marketdigest/internal/report"
)

// forumCmd mirrors socialCmd for the forum source.
var forumCmd = &cobra.Command{
	Use:   "forum",
	Short: "Fetch forum posts for the given subreddits or users and print them as Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(cfg.Reddit.Subreddits) == 0 && len(cfg.Reddit.Users) == 0 {
			return fmt.Errorf("provide --subreddits and/or --forum-users to fetch posts")
		}

		client := httpx.NewClient(
			time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second,
			cfg.HTTP.RetryMax,
			cfg.HTTP.UserAgent,
		)
		src := reddit.New(reddit.Config{
			ClientID:       cfg.Reddit.ClientID,
			ClientSecret:   cfg.Reddit.ClientSecret,
			UserAgent:      cfg.Reddit.UserAgent,
			Subreddits:     cfg.Reddit.Subreddits,
			Users:          cfg.Reddit.Users,
			SubredditLimit: cfg.Reddit.SubredditLimit,
			UserLimit:      cfg.Reddit.UserLimit,
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
	rootCmd.AddCommand(forumCmd)
}
