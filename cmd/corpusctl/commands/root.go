// Package commands implements corpusctl, a read-only inspector for the
// matrix artifact and the processed and raw stores.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "corpusctl",
	Short:         "corpusctl inspects the document-term matrices and stores built from a forum scrape.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Setup(cfg.Logging.Level, "text")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/development.yaml", "path to config file")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.ExitCode(err))
	}
}
