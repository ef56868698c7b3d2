package fstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/dFS/lib/buffer"
	"github.com/ValentinKolb/dFS/replication/wire"
)

// MetadataFile is the name of the metadata file in every namespace root
const MetadataFile = ".dfs-meta"

// recordSize is the encoded size of one record:
//
//	path          [512]byte  NUL padded
//	timestamp     int64
//	deleted       uint8 + 3 padding bytes
//	residual_len  uint32
//	residual      [16]byte
const recordSize = wire.PathSize + 8 + 4 + 4 + buffer.BlockSize

// record is the metadata of one file. Records are never removed, deleted
// files keep a tombstone so late packets can be judged by their timestamp.
type record struct {
	Path        string
	Timestamp   int64
	Deleted     bool
	ResidualLen int
	Residual    [buffer.BlockSize]byte
}

func (r *record) encode(dst []byte) {
	clear(dst[:recordSize])
	copy(dst[0:wire.PathSize], r.Path)

	pos := wire.PathSize
	binary.BigEndian.PutUint64(dst[pos:pos+8], uint64(r.Timestamp))
	pos += 8
	if r.Deleted {
		dst[pos] = 1
	}
	pos += 4
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(r.ResidualLen))
	pos += 4
	copy(dst[pos:pos+buffer.BlockSize], r.Residual[:])
}

func decodeRecord(src []byte) (*record, error) {
	end := bytes.IndexByte(src[:wire.PathSize], 0)
	if end <= 0 {
		return nil, errors.New("record path is empty or not terminated")
	}

	r := &record{Path: string(src[:end])}
	pos := wire.PathSize
	r.Timestamp = int64(binary.BigEndian.Uint64(src[pos : pos+8]))
	pos += 8
	r.Deleted = src[pos] != 0
	pos += 4
	residualLen := binary.BigEndian.Uint32(src[pos : pos+4])
	if residualLen >= buffer.BlockSize {
		return nil, fmt.Errorf("record %s has a residual of %d bytes", r.Path, residualLen)
	}
	r.ResidualLen = int(residualLen)
	pos += 4
	copy(r.Residual[:], src[pos:pos+buffer.BlockSize])
	return r, nil
}

// loadMetadata reads the records of a namespace. A missing file is an empty
// table.
func loadMetadata(dir string) ([]*record, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	if len(data)%recordSize != 0 {
		return nil, fmt.Errorf("metadata size %d is not a multiple of %d", len(data), recordSize)
	}

	records := make([]*record, 0, len(data)/recordSize)
	for off := 0; off < len(data); off += recordSize {
		r, err := decodeRecord(data[off : off+recordSize])
		if err != nil {
			return nil, fmt.Errorf("invalid metadata record %d: %w", off/recordSize, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// saveMetadata rewrites the metadata file of a namespace. The table is
// written to a temporary file first and renamed into place.
func saveMetadata(dir string, records []*record) error {
	data := make([]byte, len(records)*recordSize)
	for i, r := range records {
		r.encode(data[i*recordSize:])
	}

	tmp := filepath.Join(dir, MetadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, MetadataFile)); err != nil {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}
