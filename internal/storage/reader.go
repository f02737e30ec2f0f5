package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
	"golang.org/x/crypto/blake2b"

	"github.com/coffersTech/benchlog/internal/model"
)

var (
	ErrInvalidHeader  = errors.New("invalid bundle file header")
	ErrTruncated      = errors.New("bundle file too small")
	ErrDigestMismatch = errors.New("bundle digest mismatch")
	ErrCountMismatch  = errors.New("bundle record count mismatch")
)

type BundleReader struct {
	decoder *zstd.Decoder
	parser  fastjson.ParserPool
}

func NewBundleReader() (*BundleReader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &BundleReader{decoder: dec}, nil
}

// Close releases the decoder.
func (br *BundleReader) Close() {
	br.decoder.Close()
}

// Read loads and verifies the bundle at path.
func (br *BundleReader) Read(path string) (Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, err
	}
	b, err := br.decode(raw)
	if err != nil {
		return Bundle{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func (br *BundleReader) decode(raw []byte) (Bundle, error) {
	// 1. Validate Header
	if len(raw) < len(MagicHeader)+footerSize {
		return Bundle{}, ErrTruncated
	}
	if !bytes.Equal(raw[:len(MagicHeader)], MagicHeader) {
		return Bundle{}, ErrInvalidHeader
	}

	// 2. Footer
	footer := raw[len(raw)-footerSize:]
	recordCount := binary.LittleEndian.Uint32(footer[0:4])
	entryCount := binary.LittleEndian.Uint64(footer[4:12])
	digest := footer[12:]

	// 3. Blocks
	body := bytes.NewReader(raw[len(MagicHeader) : len(raw)-footerSize])
	metaData, err := br.readAndDecompress(body)
	if err != nil {
		return Bundle{}, fmt.Errorf("meta block: %w", err)
	}
	data, err := br.readAndDecompress(body)
	if err != nil {
		return Bundle{}, fmt.Errorf("records block: %w", err)
	}
	if sum := blake2b.Sum256(data); !bytes.Equal(sum[:], digest) {
		return Bundle{}, ErrDigestMismatch
	}

	var b Bundle
	if err := json.Unmarshal(metaData, &b.Meta); err != nil {
		return Bundle{}, fmt.Errorf("decode meta: %w", err)
	}
	if b.Records, err = br.decodeRecords(data); err != nil {
		return Bundle{}, err
	}
	if len(b.Records) != int(recordCount) || b.EntryCount() != int(entryCount) {
		return Bundle{}, fmt.Errorf("%w: footer %d/%d, got %d/%d",
			ErrCountMismatch, recordCount, entryCount, len(b.Records), b.EntryCount())
	}
	return b, nil
}

// decodeRecords parses the records array. Numbers become float64 and
// strings stay strings, the only value types entries carry.
func (br *BundleReader) decodeRecords(data []byte) ([]*model.Record, error) {
	p := br.parser.Get()
	defer br.parser.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	items, err := v.Array()
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]*model.Record, 0, len(items))
	for _, item := range items {
		r := model.NewRecord(
			string(item.GetStringBytes("kind")),
			string(item.GetStringBytes("id")),
			string(item.GetStringBytes("origin")),
		)
		r.SetScenario(string(item.GetStringBytes("scenario")), item.GetInt("client_count"))
		r.SetTimeOrigin(item.GetFloat64("time_origin"))

		entries := item.GetArray("entries")
		r.Entries = make([]model.Entry, 0, len(entries))
		for _, ev := range entries {
			e, err := decodeEntry(ev)
			if err != nil {
				return nil, fmt.Errorf("record %s %s: %w", r.Kind, r.ID, err)
			}
			r.AddEntry(e)
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeEntry(v *fastjson.Value) (model.Entry, error) {
	obj, err := v.Object()
	if err != nil {
		return nil, err
	}
	e := make(model.Entry, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		switch val.Type() {
		case fastjson.TypeNumber:
			e[string(key)] = val.GetFloat64()
		case fastjson.TypeString:
			e[string(key)] = string(val.GetStringBytes())
		}
	})
	return e, nil
}

// readAndDecompress reads a compressed block (size + data) and decompresses it.
func (br *BundleReader) readAndDecompress(r io.Reader) ([]byte, error) {
	// Read compressed size (uint32)
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	// Read compressed data
	compressed := make([]byte, size)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}

	return br.decoder.DecodeAll(compressed, nil)
}

// ReadBundle loads the bundle at path with a one-off reader.
func ReadBundle(path string) (Bundle, error) {
	br, err := NewBundleReader()
	if err != nil {
		return Bundle{}, err
	}
	defer br.Close()
	return br.Read(path)
}
