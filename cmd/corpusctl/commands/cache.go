package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/scraper/cache"
	pkgredis "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/redis"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the scraper's Redis response cache.",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Drop every cached forum response so the next scrape refetches.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := cache.New(client, cfg.Redis.CacheTTL, nil).Invalidate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "response cache flushed")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}
