package dtm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/vocabulary"
)

func mustBuild(tb testing.TB, docs []string, v *vocabulary.Vocabulary) *Matrix {
	tb.Helper()
	m, err := Build(docs, v)
	require.NoError(tb, err)
	return m
}

func TestBuildCountsVocabularyTerms(t *testing.T) {
	v := vocabulary.New([]string{"the", "cat", "ran"})
	docs := []string{"the cat sat", "the cat ran the", "a dog ran", ""}

	m := mustBuild(t, docs, v)
	rows, cols := m.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, cols)
	require.NoError(t, m.Validate())

	// columns: cat, ran, the
	assert.Equal(t, [][]int{
		{1, 0, 1},
		{1, 1, 2},
		{0, 1, 0},
		{0, 0, 0},
	}, m.Dense())
	assert.Equal(t, 2, m.At(1, 2))
	assert.Equal(t, map[int]int{1: 1}, m.Row(2))
	assert.Equal(t, 6, m.NNZ())
}

func TestBuildEmptyCorpus(t *testing.T) {
	v := vocabulary.New([]string{"a", "b"})
	m := mustBuild(t, nil, v)
	rows, cols := m.Shape()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 2, cols)
	assert.NoError(t, m.Validate())
}

func TestBuildEmptyVocabulary(t *testing.T) {
	m := mustBuild(t, []string{"some words", "more words"}, vocabulary.New(nil))
	rows, cols := m.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 0, cols)
	assert.Equal(t, 0, m.NNZ())
	assert.NoError(t, m.Validate())
}

func TestShapeMatchesInputs(t *testing.T) {
	v := vocabulary.New(strings.Fields("w0 w1 w2 w3 w4"))
	for n := 0; n < 20; n += 7 {
		docs := make([]string, n)
		for i := range docs {
			docs[i] = fmt.Sprintf("w%d w%d x", i%5, (i*3)%7)
		}
		m := mustBuild(t, docs, v)
		assert.Equal(t, n, m.Rows)
		assert.Equal(t, v.Len(), m.Cols)
		assert.NoError(t, m.Validate())
	}
}

func TestValidateRejectsCorruptMatrix(t *testing.T) {
	m := &Matrix{Rows: 1, Cols: 2, RowPtr: []int{0, 2}, ColIdx: []int{1, 0}, Values: []int{1, 1}}
	assert.Error(t, m.Validate())
}

func TestAtPanicsOutOfRange(t *testing.T) {
	m := mustBuild(t, []string{"a"}, vocabulary.New([]string{"a"}))
	assert.Panics(t, func() { m.At(1, 0) })
}

func TestBuildIgnoresUnknownTokensAndRepeatedWhitespace(t *testing.T) {
	v := vocabulary.New([]string{"night", "shift"})
	m := mustBuild(t, []string{"  night\tshift \n night  owl ", "owl"}, v)

	// columns: night, shift
	assert.Equal(t, [][]int{{2, 1}, {0, 0}}, m.Dense())
	assert.Equal(t, []int{0, 2, 2}, m.RowPtr)
	require.NoError(t, m.Validate())
}

func TestSparseMatchesDense(t *testing.T) {
	v := vocabulary.New([]string{"the", "cat", "ran"})
	m := mustBuild(t, []string{"the cat sat", "the cat ran the", "a dog ran"}, v)

	csr := m.Sparse()
	require.NotNil(t, csr)
	r, c := csr.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, m.NNZ(), csr.NNZ())

	dense := m.Dense()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(t, float64(dense[i][j]), csr.At(i, j), "cell %d,%d", i, j)
		}
	}

	// Column sums via gonum give per-term corpus frequencies.
	var totals mat.VecDense
	ones := mat.NewVecDense(r, []float64{1, 1, 1})
	totals.MulVec(csr.T(), ones)
	assert.Equal(t, []float64{2, 2, 3}, totals.RawVector().Data)
}

func TestSparseNilForEmptyShape(t *testing.T) {
	assert.Nil(t, mustBuild(t, nil, vocabulary.New([]string{"a"})).Sparse())
	assert.Nil(t, mustBuild(t, []string{"a"}, vocabulary.New(nil)).Sparse())
}
