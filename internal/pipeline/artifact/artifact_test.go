package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/dtm"
	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/vocabulary"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
)

func build(t *testing.T, docs []string, v *vocabulary.Vocabulary) *dtm.Matrix {
	t.Helper()
	m, err := dtm.Build(docs, v)
	require.NoError(t, err)
	return m
}

func sampleMatrices(t *testing.T) ([]string, []Named) {
	v := vocabulary.New([]string{"cat", "ran", "the"})
	return v.Terms(), []Named{
		{Name: "sub_dtm", Matrix: build(t, []string{"the cat", "cat ran ran"}, v)},
		{Name: "com_dtm", Matrix: build(t, []string{"the the", "", "dog"}, v)},
	}
}

func TestWriteCommitAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "dtm.spdm")
	vocab, mats := sampleMatrices(t)

	p, err := Write(path, vocab, mats)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "artifact must not be visible before commit")
	require.NoError(t, p.Commit())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"sub_dtm", "com_dtm"}, r.Names())
	assert.Equal(t, vocab, r.Vocabulary())

	for _, want := range mats {
		got, err := r.Load(want.Name)
		require.NoError(t, err)
		assert.Equal(t, want.Matrix.Dense(), got.Dense())
	}
	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[1].Rows)
	assert.Equal(t, 1, entries[1].NNZ)
}

func TestLoadUnknownName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)
	p, err := Write(path, vocab, mats[:1])
	require.NoError(t, err)
	require.NoError(t, p.Commit())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Load("user_dtm")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAbortRemovesTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)
	p, err := Write(path, vocab, mats)
	require.NoError(t, err)
	require.NoError(t, p.Abort())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmptyVocabularyAndCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	v := vocabulary.New(nil)
	p, err := Write(path, v.Terms(), []Named{{Name: "sub_dtm", Matrix: build(t, nil, v)}})
	require.NoError(t, err)
	require.NoError(t, p.Commit())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	m, err := r.Load("sub_dtm")
	require.NoError(t, err)
	rows, cols := m.Shape()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 0, cols)
}

func TestDiscardRestoresPreviousArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)
	first, err := Write(path, vocab, mats)
	require.NoError(t, err)
	require.NoError(t, first.Commit())
	require.NoError(t, first.Finalize())
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	second, err := Write(path, vocab, mats[:1])
	require.NoError(t, err)
	require.NoError(t, second.Commit())
	_, err = os.Stat(path + ".prev")
	require.NoError(t, err, "previous artifact kept until finalized")

	require.NoError(t, second.Discard())
	restored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	_, err = os.Stat(path + ".prev")
	assert.True(t, os.IsNotExist(err))
}

func TestFinalizeDropsPreviousArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)
	for _, set := range [][]Named{mats, mats[:1]} {
		p, err := Write(path, vocab, set)
		require.NoError(t, err)
		require.NoError(t, p.Commit())
		require.NoError(t, p.Finalize())
	}
	_, err := os.Stat(path + ".prev")
	assert.True(t, os.IsNotExist(err))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, []string{"sub_dtm"}, r.Names())
}

func TestDiscardWithoutPreviousRemovesArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)
	p, err := Write(path, vocab, mats)
	require.NoError(t, err)
	require.NoError(t, p.Commit())
	require.NoError(t, p.Discard())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)

	_, err := Write(path, vocab, []Named{mats[0], mats[0]})
	assert.Error(t, err)

	_, err = Write(path, vocab[:2], mats)
	assert.Error(t, err)
}

func TestCorruptPayloadDetected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dtm.spdm")
	vocab, mats := sampleMatrices(t)
	p, err := Write(path, vocab, mats)
	require.NoError(t, err)
	require.NoError(t, p.Commit())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[HeaderSize+2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Load("sub_dtm")
	assert.ErrorContains(t, err, "checksum")
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.spdm")
	require.NoError(t, os.WriteFile(path, make([]byte, 200), 0o644))
	_, err := Open(path)
	assert.ErrorContains(t, err, "magic")

	_, err = Open(filepath.Join(t.TempDir(), "missing.spdm"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
