// Package artifact stores named document-term matrices and their shared
// vocabulary in a single .spdm file.
package artifact

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/dtm"
)

// MagicBytes identifies a valid .spdm artifact file ("SPDM").
const (
	MagicBytes    uint32 = 0x5350444D
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// Header is the 64-byte header written at the start of every artifact.
type Header struct {
	Magic         uint32
	Version       uint32
	MatrixCount   uint32
	DictOffset    int64
	DictSize      int64
	PayloadOffset int64
	PayloadSize   int64
}

// MatrixEntry locates one matrix payload relative to the payload section.
type MatrixEntry struct {
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
	Len    int    `json:"len"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	NNZ    int    `json:"nnz"`
	CRC    uint32 `json:"crc"`
}

type dictionary struct {
	Vocabulary []string      `json:"vocabulary"`
	Matrices   []MatrixEntry `json:"matrices"`
}

// Named pairs a matrix with the name it is stored under.
type Named struct {
	Name   string
	Matrix *dtm.Matrix
}

// Pending is a fully written and synced artifact that is not yet visible at
// its final path.
type Pending struct {
	tmpPath   string
	finalPath string
	done      bool
	// hadPrev is set when Commit moved an older artifact to prevPath.
	hadPrev bool
}

// Write serialises the matrices into <path>.tmp. The caller must Commit or
// Abort the returned Pending.
func Write(path string, vocabulary []string, matrices []Named) (*Pending, error) {
	seen := make(map[string]struct{}, len(matrices))
	for _, m := range matrices {
		if m.Name == "" {
			return nil, fmt.Errorf("matrix name must not be empty")
		}
		if _, dup := seen[m.Name]; dup {
			return nil, fmt.Errorf("duplicate matrix name %q", m.Name)
		}
		seen[m.Name] = struct{}{}
		if m.Matrix.Cols != len(vocabulary) {
			return nil, fmt.Errorf("matrix %q has %d columns, vocabulary has %d terms", m.Name, m.Matrix.Cols, len(vocabulary))
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := writeFile(tmpPath, vocabulary, matrices); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	return &Pending{tmpPath: tmpPath, finalPath: path}, nil
}

func writeFile(tmpPath string, vocabulary []string, matrices []Named) error {
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp artifact file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(headerBytes[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(headerBytes[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(headerBytes[8:12], uint32(len(matrices)))
	if _, err := f.Write(headerBytes); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	payloadStart := int64(HeaderSize)
	offset := int64(0)
	dict := dictionary{Vocabulary: vocabulary, Matrices: make([]MatrixEntry, 0, len(matrices))}
	if dict.Vocabulary == nil {
		dict.Vocabulary = []string{}
	}
	for _, m := range matrices {
		data, err := json.Marshal(m.Matrix)
		if err != nil {
			return fmt.Errorf("marshaling matrix %q: %w", m.Name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing matrix %q: %w", m.Name, err)
		}
		dict.Matrices = append(dict.Matrices, MatrixEntry{
			Name:   m.Name,
			Offset: offset,
			Len:    len(data),
			Rows:   m.Matrix.Rows,
			Cols:   m.Matrix.Cols,
			NNZ:    m.Matrix.NNZ(),
			CRC:    crc32.ChecksumIEEE(data),
		})
		offset += int64(len(data))
	}

	payloadSize := offset
	dictStart := payloadStart + payloadSize
	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}
	dictSize := int64(len(dictData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(matrices)))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dictStart))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(dictSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(payloadSize))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	binary.LittleEndian.PutUint64(headerBytes[16:24], uint64(dictStart))
	binary.LittleEndian.PutUint64(headerBytes[24:32], uint64(dictSize))
	binary.LittleEndian.PutUint64(headerBytes[32:40], uint64(payloadStart))
	binary.LittleEndian.PutUint64(headerBytes[40:48], uint64(payloadSize))
	if _, err := f.WriteAt(headerBytes, 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing artifact file: %w", err)
	}
	return f.Close()
}

// Path is the final location the artifact is committed to.
func (p *Pending) Path() string {
	return p.finalPath
}

// Commit atomically replaces any previous artifact at the final path. The
// previous artifact is kept at <path>.prev until Finalize or Discard.
func (p *Pending) Commit() error {
	if p.done {
		return fmt.Errorf("artifact %s already finalized", p.finalPath)
	}
	if _, err := os.Stat(p.finalPath); err == nil {
		if err := os.Rename(p.finalPath, p.prevPath()); err != nil {
			return fmt.Errorf("keeping previous artifact: %w", err)
		}
		p.hadPrev = true
	}
	if err := os.Rename(p.tmpPath, p.finalPath); err != nil {
		if p.hadPrev {
			os.Rename(p.prevPath(), p.finalPath)
			p.hadPrev = false
		}
		return fmt.Errorf("renaming artifact file: %w", err)
	}
	p.done = true
	return nil
}

// Finalize drops the previous artifact once the run that replaced it has
// fully succeeded.
func (p *Pending) Finalize() error {
	if !p.done || !p.hadPrev {
		return nil
	}
	p.hadPrev = false
	if err := os.Remove(p.prevPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing previous artifact: %w", err)
	}
	return nil
}

// Abort discards the temp file. Safe to call after Commit, where it is a no-op.
func (p *Pending) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	if err := os.Remove(p.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing temp artifact: %w", err)
	}
	return nil
}

// Discard undoes a Commit when a later step of the same run fails: the
// previous artifact is restored, or the new one removed if there was none.
func (p *Pending) Discard() error {
	if !p.done {
		return p.Abort()
	}
	if p.hadPrev {
		p.hadPrev = false
		if err := os.Rename(p.prevPath(), p.finalPath); err != nil {
			return fmt.Errorf("restoring previous artifact: %w", err)
		}
		return nil
	}
	if err := os.Remove(p.finalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

func (p *Pending) prevPath() string {
	return p.finalPath + ".prev"
}
