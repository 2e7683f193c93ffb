package artifact

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/Adithya-Monish-Kumar-K/forum-corpus/internal/pipeline/dtm"
	apperrors "github.com/Adithya-Monish-Kumar-K/forum-corpus/pkg/errors"
)

type Reader struct {
	file   *os.File
	path   string
	header Header
	dict   dictionary
	byName map[string]int
}

// Open validates the header, footer and dictionary checksum. Matrix payloads
// are read lazily by Load.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, err, "artifact "+path)
		}
		return nil, fmt.Errorf("opening artifact file: %w", err)
	}
	r, err := readIndex(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func readIndex(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact file: %w", err)
	}
	if info.Size() < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("invalid artifact file: %d bytes is too short", info.Size())
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("invalid artifact file: bad magic bytes %x", magic)
	}
	header := Header{
		Magic:         magic,
		Version:       binary.LittleEndian.Uint32(headerBytes[4:8]),
		MatrixCount:   binary.LittleEndian.Uint32(headerBytes[8:12]),
		DictOffset:    int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:      int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PayloadOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PayloadSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", header.Version)
	}
	if header.DictOffset+header.DictSize+int64(FooterSize) != info.Size() {
		return nil, fmt.Errorf("invalid artifact file: dictionary bounds do not match file size")
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, info.Size()-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if got, want := crc32.ChecksumIEEE(dictBytes), binary.LittleEndian.Uint32(footer[0:4]); got != want {
		return nil, fmt.Errorf("dictionary checksum mismatch: got %08x want %08x", got, want)
	}
	var dict dictionary
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	if len(dict.Matrices) != int(header.MatrixCount) {
		return nil, fmt.Errorf("header declares %d matrices, dictionary has %d", header.MatrixCount, len(dict.Matrices))
	}

	byName := make(map[string]int, len(dict.Matrices))
	for i, e := range dict.Matrices {
		byName[e.Name] = i
	}
	return &Reader{file: f, path: path, header: header, dict: dict, byName: byName}, nil
}

// Names lists the stored matrices in write order.
func (r *Reader) Names() []string {
	names := make([]string, len(r.dict.Matrices))
	for i, e := range r.dict.Matrices {
		names[i] = e.Name
	}
	return names
}

// Entries returns the dictionary metadata of every matrix.
func (r *Reader) Entries() []MatrixEntry {
	out := make([]MatrixEntry, len(r.dict.Matrices))
	copy(out, r.dict.Matrices)
	return out
}

// Vocabulary returns the column labels shared by all matrices.
func (r *Reader) Vocabulary() []string {
	return r.dict.Vocabulary
}

// Load reads and verifies one matrix.
func (r *Reader) Load(name string) (*dtm.Matrix, error) {
	i, ok := r.byName[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrNotFound, "matrix %q not in %s", name, r.path)
	}
	entry := r.dict.Matrices[i]
	if entry.Offset < 0 || entry.Offset+int64(entry.Len) > r.header.PayloadSize {
		return nil, fmt.Errorf("matrix %q payload out of bounds", name)
	}
	data := make([]byte, entry.Len)
	if _, err := r.file.ReadAt(data, r.header.PayloadOffset+entry.Offset); err != nil {
		return nil, fmt.Errorf("reading matrix %q: %w", name, err)
	}
	if got := crc32.ChecksumIEEE(data); got != entry.CRC {
		return nil, fmt.Errorf("matrix %q checksum mismatch: got %08x want %08x", name, got, entry.CRC)
	}
	var m dtm.Matrix
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing matrix %q: %w", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("matrix %q: %w", name, err)
	}
	if m.Rows != entry.Rows || m.Cols != entry.Cols || m.Cols != len(r.dict.Vocabulary) {
		return nil, fmt.Errorf("matrix %q shape (%d,%d) disagrees with dictionary", name, m.Rows, m.Cols)
	}
	return &m, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}
