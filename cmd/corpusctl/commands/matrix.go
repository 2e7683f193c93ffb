package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/artifact"
)

var (
	artifactPath string
	showLimit    int
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Inspect the matrices stored in the artifact file.",
}

var matrixListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored matrices with their shape and non-zero count.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listMatrices(cmd.OutOrStdout(), resolveArtifactPath())
	},
}

var matrixShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print the non-zero cells of one matrix as row, term, count.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showMatrix(cmd.OutOrStdout(), resolveArtifactPath(), args[0], showLimit)
	},
}

func init() {
	matrixCmd.PersistentFlags().StringVar(&artifactPath, "artifact", "", "artifact file (defaults to pipeline.artifactPath)")
	matrixShowCmd.Flags().IntVar(&showLimit, "limit", 50, "maximum number of cells to print, 0 for all")
	matrixCmd.AddCommand(matrixListCmd, matrixShowCmd)
	rootCmd.AddCommand(matrixCmd)
}

func resolveArtifactPath() string {
	if artifactPath != "" {
		return artifactPath
	}
	return cfg.Pipeline.ArtifactPath
}

func listMatrices(w io.Writer, path string) error {
	r, err := artifact.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Fprintf(w, "vocabulary: %d terms\n", len(r.Vocabulary()))
	for _, e := range r.Entries() {
		fmt.Fprintf(w, "%s\t%dx%d\tnnz=%d\n", e.Name, e.Rows, e.Cols, e.NNZ)
	}
	return nil
}

func showMatrix(w io.Writer, path, name string, limit int) error {
	r, err := artifact.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	m, err := r.Load(name)
	if err != nil {
		return err
	}
	vocab := r.Vocabulary()
	rows, cols := m.Shape()
	fmt.Fprintf(w, "%s: %dx%d nnz=%d\n", name, rows, cols, m.NNZ())

	printed := 0
	for row := 0; row < rows; row++ {
		for k := m.RowPtr[row]; k < m.RowPtr[row+1]; k++ {
			if limit > 0 && printed == limit {
				fmt.Fprintf(w, "... %d more\n", m.NNZ()-printed)
				return nil
			}
			fmt.Fprintf(w, "%d\t%s\t%d\n", row, vocab[m.ColIdx[k]], m.Values[k])
			printed++
		}
	}
	return nil
}
