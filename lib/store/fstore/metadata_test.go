package fstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataSaveLoad(t *testing.T) {
	dir := t.TempDir()

	records, err := loadMetadata(dir)
	require.NoError(t, err)
	require.Empty(t, records)

	in := []*record{
		{Path: "/docs/a.txt", Timestamp: 1_700_000_000},
		{Path: "/docs/dir/b.bin", Timestamp: 42, ResidualLen: 15, Residual: [16]byte{1, 2, 3, 15: 0xFF}},
		{Path: "/docs/gone", Timestamp: -1, Deleted: true},
	}
	require.NoError(t, saveMetadata(dir, in))

	fi, err := os.Stat(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	require.Equal(t, int64(3*recordSize), fi.Size())
	require.NoFileExists(t, filepath.Join(dir, MetadataFile+".tmp"))

	out, err := loadMetadata(dir)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestMetadataRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, MetadataFile)

	// not a multiple of the record size
	require.NoError(t, os.WriteFile(name, make([]byte, recordSize+1), 0o600))
	_, err := loadMetadata(dir)
	require.Error(t, err)

	// empty path
	require.NoError(t, os.WriteFile(name, make([]byte, recordSize), 0o600))
	_, err = loadMetadata(dir)
	require.Error(t, err)

	// residual of a full block
	buf := make([]byte, recordSize)
	(&record{Path: "/docs/x", ResidualLen: 3}).encode(buf)
	buf[recordSize-16-1] = 16
	require.NoError(t, os.WriteFile(name, buf, 0o600))
	_, err = loadMetadata(dir)
	require.Error(t, err)
}

func TestRecordLayout(t *testing.T) {
	require.Equal(t, 544, recordSize)

	buf := make([]byte, recordSize)
	(&record{Path: "/docs/x", Timestamp: 0x0102030405060708, Deleted: true, ResidualLen: 9}).encode(buf)

	require.Equal(t, []byte("/docs/x"), buf[:7])
	require.Zero(t, buf[7])
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf[512:520])
	require.Equal(t, byte(1), buf[520])
	require.Equal(t, []byte{0, 0, 0, 9}, buf[524:528])
}
