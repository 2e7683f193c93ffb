package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/store"
)

var (
	userSep      string
	userTextCols int
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Print the vocabulary of the last committed run from the processed store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Storage, store.RoleProcessed)
		if err != nil {
			return err
		}
		defer db.Close()
		return printVocabulary(cmd.Context(), cmd.OutOrStdout(), db)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Print each comment author with their concatenated comment text from the raw store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Storage, store.RoleRaw)
		if err != nil {
			return err
		}
		defer db.Close()
		sep := userSep
		if !cmd.Flags().Changed("sep") {
			sep = cfg.Pipeline.UserTextSeparator
		}
		return printUsers(cmd.Context(), cmd.OutOrStdout(), db, sep, userTextCols)
	},
}

var columnCmd = &cobra.Command{
	Use:   "column TABLE COLUMN",
	Short: "Print one raw column (Submissions or Comments) in load order.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Storage, store.RoleRaw)
		if err != nil {
			return err
		}
		defer db.Close()
		values, err := db.SelectColumn(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, v := range values {
			fmt.Fprintln(w, v)
		}
		return nil
	},
}

func init() {
	usersCmd.Flags().StringVar(&userSep, "sep", " ", "separator between an author's comments")
	usersCmd.Flags().IntVar(&userTextCols, "width", 80, "truncate text to this many bytes, 0 for no limit")
	rootCmd.AddCommand(vocabCmd, usersCmd, columnCmd)
}

type vocabularyLoader interface {
	LoadVocabulary(ctx context.Context) ([]string, error)
	CountRows(ctx context.Context) (map[string]int, error)
}

func printVocabulary(ctx context.Context, w io.Writer, db vocabularyLoader) error {
	terms, err := db.LoadVocabulary(ctx)
	if err != nil {
		return err
	}
	counts, err := db.CountRows(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %d terms, %d submissions, %d comments, %d users\n",
		len(terms), counts["Submissions"], counts["Comments"], counts["User"])
	for i, t := range terms {
		fmt.Fprintf(w, "%d\t%s\n", i, t)
	}
	return nil
}

type authorTextLoader interface {
	GroupConcat(ctx context.Context, sep string) ([]store.AuthorText, error)
}

func printUsers(ctx context.Context, w io.Writer, db authorTextLoader, sep string, width int) error {
	users, err := db.GroupConcat(ctx, sep)
	if err != nil {
		return err
	}
	for _, u := range users {
		text := strings.ReplaceAll(u.Text, "\n", " ")
		if width > 0 && len(text) > width {
			text = text[:width] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\n", u.Author, text)
	}
	return nil
}
