// Package dtm builds sparse document-term count matrices with the
// james-bowman/nlp count vectoriser.
package dtm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/james-bowman/nlp"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/vocabulary"
)

// Matrix is a compressed sparse row matrix of non-negative counts. Row i's
// entries are ColIdx[RowPtr[i]:RowPtr[i+1]] with matching Values, columns
// ascending.
type Matrix struct {
	Rows   int   `json:"rows"`
	Cols   int   `json:"cols"`
	RowPtr []int `json:"indptr"`
	ColIdx []int `json:"indices"`
	Values []int `json:"data"`
}

// Build counts, for every document, the occurrences of each vocabulary term
// using an nlp.CountVectoriser fixed to v. Tokens outside the vocabulary are
// ignored. The result always has len(docs) rows and v.Len() columns.
func Build(docs []string, v *vocabulary.Vocabulary) (*Matrix, error) {
	rows, cols := len(docs), v.Len()
	if rows == 0 || cols == 0 {
		// gonum matrices cannot have a zero dimension.
		return empty(rows, cols), nil
	}
	vectoriser := &nlp.CountVectoriser{
		Vocabulary: v.Columns(),
		Tokeniser:  whitespaceTokeniser{},
	}
	termDoc, err := vectoriser.Transform(docs...)
	if err != nil {
		return nil, fmt.Errorf("vectorising %d documents: %w", rows, err)
	}

	// The vectoriser yields terms x documents; transpose while collecting.
	perRow := make([][]cell, rows)
	collect := func(term, doc int, count float64) {
		if count != 0 {
			perRow[doc] = append(perRow[doc], cell{col: term, count: int(count)})
		}
	}
	if csr, ok := termDoc.(*sparse.CSR); ok {
		csr.DoNonZero(collect)
	} else {
		scanDense(termDoc, collect)
	}

	m := empty(rows, cols)
	for r, cells := range perRow {
		sort.Slice(cells, func(a, b int) bool { return cells[a].col < cells[b].col })
		for _, c := range cells {
			m.ColIdx = append(m.ColIdx, c.col)
			m.Values = append(m.Values, c.count)
		}
		m.RowPtr[r+1] = len(m.ColIdx)
	}
	return m, nil
}

type cell struct {
	col   int
	count int
}

func empty(rows, cols int) *Matrix {
	return &Matrix{
		Rows:   rows,
		Cols:   cols,
		RowPtr: make([]int, rows+1),
		ColIdx: make([]int, 0),
		Values: make([]int, 0),
	}
}

func scanDense(m mat.Matrix, fn func(i, j int, v float64)) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			fn(i, j, m.At(i, j))
		}
	}
}

// whitespaceTokeniser splits on runs of whitespace. Text reaching it is
// already normalized.
type whitespaceTokeniser struct{}

func (whitespaceTokeniser) ForEachIn(text string, f func(token string)) {
	for _, tok := range strings.Fields(text) {
		f(tok)
	}
}

func (whitespaceTokeniser) Tokenise(text string) []string {
	return strings.Fields(text)
}

// Sparse returns the matrix as a james-bowman/sparse CSR for gonum linear
// algebra. It returns nil when either dimension is zero.
func (m *Matrix) Sparse() *sparse.CSR {
	if m.Rows == 0 || m.Cols == 0 {
		return nil
	}
	indptr := make([]int, len(m.RowPtr))
	copy(indptr, m.RowPtr)
	ind := make([]int, len(m.ColIdx))
	copy(ind, m.ColIdx)
	data := make([]float64, len(m.Values))
	for i, v := range m.Values {
		data[i] = float64(v)
	}
	return sparse.NewCSR(m.Rows, m.Cols, indptr, ind, data)
}

// Shape returns (rows, cols).
func (m *Matrix) Shape() (int, int) {
	return m.Rows, m.Cols
}

// NNZ returns the number of stored non-zero cells.
func (m *Matrix) NNZ() int {
	return len(m.Values)
}

// At returns the count at (row, col), zero when not stored.
func (m *Matrix) At(row, col int) int {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		panic(fmt.Sprintf("dtm: index (%d,%d) out of range for shape (%d,%d)", row, col, m.Rows, m.Cols))
	}
	start, end := m.RowPtr[row], m.RowPtr[row+1]
	i := sort.SearchInts(m.ColIdx[start:end], col)
	if i < end-start && m.ColIdx[start+i] == col {
		return m.Values[start+i]
	}
	return 0
}

// Row returns the stored entries of row as column -> count.
func (m *Matrix) Row(row int) map[int]int {
	out := make(map[int]int)
	for k := m.RowPtr[row]; k < m.RowPtr[row+1]; k++ {
		out[m.ColIdx[k]] = m.Values[k]
	}
	return out
}

// Dense expands the matrix. Intended for small matrices only.
func (m *Matrix) Dense() [][]int {
	out := make([][]int, m.Rows)
	for r := range out {
		out[r] = make([]int, m.Cols)
		for k := m.RowPtr[r]; k < m.RowPtr[r+1]; k++ {
			out[r][m.ColIdx[k]] = m.Values[k]
		}
	}
	return out
}

// Validate checks the CSR invariants, used after decoding from disk.
func (m *Matrix) Validate() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("negative shape (%d,%d)", m.Rows, m.Cols)
	}
	if len(m.RowPtr) != m.Rows+1 || m.RowPtr[0] != 0 {
		return fmt.Errorf("indptr length %d for %d rows", len(m.RowPtr), m.Rows)
	}
	if len(m.ColIdx) != len(m.Values) || m.RowPtr[m.Rows] != len(m.Values) {
		return fmt.Errorf("indices/data length mismatch")
	}
	for r := 0; r < m.Rows; r++ {
		if m.RowPtr[r] > m.RowPtr[r+1] {
			return fmt.Errorf("indptr decreases at row %d", r)
		}
		prev := -1
		for k := m.RowPtr[r]; k < m.RowPtr[r+1]; k++ {
			c := m.ColIdx[k]
			if c <= prev || c >= m.Cols {
				return fmt.Errorf("bad column %d in row %d", c, r)
			}
			if m.Values[k] <= 0 {
				return fmt.Errorf("non-positive count at row %d col %d", r, c)
			}
			prev = c
		}
	}
	return nil
}
