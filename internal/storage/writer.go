// Package storage persists run bundles and writes report tables.
//
// A bundle file is laid out as
//
//	header  "BENCHLG1"
//	block   zstd(JSON metadata)
//	block   zstd(JSON array of records)
//	footer  record count (uint32) | entry count (uint64) | blake2b-256 of the records JSON
//
// where every block is prefixed by its compressed size (uint32). All
// integers are little endian.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/coffersTech/benchlog/internal/model"
	"github.com/coffersTech/benchlog/internal/transform"
)

// MagicHeader starts every bundle file.
var MagicHeader = []byte("BENCHLG1")

// BundleExt is the file extension of bundle snapshots.
const BundleExt = ".bundle"

const footerSize = 4 + 8 + blake2b.Size256

// Meta describes where a bundle came from.
type Meta struct {
	BatchID   string           `json:"batch_id"`
	Benchmark string           `json:"benchmark"`
	Scenario  string           `json:"scenario"`
	Window    transform.Window `json:"window"`
	Runs      []string         `json:"runs,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Bundle is every record of one scenario group.
type Bundle struct {
	Meta    Meta
	Records []*model.Record
}

// EntryCount returns the number of entries over all records.
func (b Bundle) EntryCount() int {
	n := 0
	for _, r := range b.Records {
		n += len(r.Entries)
	}
	return n
}

type BundleWriter struct {
	encoder *zstd.Encoder
}

func NewBundleWriter() (*BundleWriter, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &BundleWriter{encoder: enc}, nil
}

// Close releases the encoder.
func (bw *BundleWriter) Close() error {
	return bw.encoder.Close()
}

// Write stores the bundle at path. The file is written next to path and
// renamed into place, so readers never see a partial bundle.
func (bw *BundleWriter) Write(path string, b Bundle) error {
	meta, err := json.Marshal(b.Meta)
	if err != nil {
		return fmt.Errorf("encode bundle meta: %w", err)
	}
	records := b.Records
	if records == nil {
		records = []*model.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Write(MagicHeader)
	bw.compressAndWrite(buf, meta)
	bw.compressAndWrite(buf, data)

	// Footer
	digest := blake2b.Sum256(data)
	binary.Write(buf, binary.LittleEndian, uint32(len(records)))
	binary.Write(buf, binary.LittleEndian, uint64(b.EntryCount()))
	buf.Write(digest[:])

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func (bw *BundleWriter) compressAndWrite(buf *bytes.Buffer, raw []byte) {
	compressed := bw.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))

	// Write Compressed Size (uint32)
	binary.Write(buf, binary.LittleEndian, uint32(len(compressed)))
	buf.Write(compressed)
}

// WriteBundle stores b at path with a one-off writer.
func WriteBundle(path string, b Bundle) error {
	bw, err := NewBundleWriter()
	if err != nil {
		return err
	}
	defer bw.Close()
	return bw.Write(path, b)
}
