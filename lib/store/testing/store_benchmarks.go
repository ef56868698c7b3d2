package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dFS/lib/store"
)

// RunStoreBenchmarks runs the benchmarks for an IStore implementation
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Write", func(b *testing.B) {
			benchmarkWrite(b, factory(b.TempDir()))
		})

		b.Run("Append", func(b *testing.B) {
			benchmarkAppend(b, factory(b.TempDir()))
		})

		b.Run("ReadCached", func(b *testing.B) {
			benchmarkReadCached(b, factory(b.TempDir()))
		})

		b.Run("SyncLargeFile", func(b *testing.B) {
			benchmarkSync(b, factory(b.TempDir()))
		})

		b.Run("ManyFiles", func(b *testing.B) {
			benchmarkManyFiles(b, factory(b.TempDir()))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func mustCreate(b *testing.B, s store.IStore, p string) {
	if err := s.Create(p); err != nil {
		b.Fatalf("Create(%s) failed: %v", p, err)
	}
}

// Benchmark for overwriting the start of a file
func benchmarkWrite(b *testing.B, s store.IStore) {
	b.Cleanup(func() { s.Close() })

	p := path(NamespaceA, "bench.bin")
	mustCreate(b, s, p)
	data := bytes.Repeat([]byte{0x42}, 4096)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Write(p, data, 0); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

// Benchmark for appending small records to one file
func benchmarkAppend(b *testing.B, s store.IStore) {
	b.Cleanup(func() { s.Close() })

	p := path(NamespaceA, "append.log")
	mustCreate(b, s, p)
	line := []byte("2025-01-01T00:00:00Z level=info msg=benchmark\n")

	b.SetBytes(int64(len(line)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		offset := int64(i%10000) * int64(len(line))
		if _, err := s.Write(p, line, offset); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}

// Benchmark for reads served from the cache
func benchmarkReadCached(b *testing.B, s store.IStore) {
	b.Cleanup(func() { s.Close() })

	p := path(NamespaceA, "read.bin")
	mustCreate(b, s, p)
	if _, err := s.Write(p, bytes.Repeat([]byte{1}, 1<<16), 0); err != nil {
		b.Fatalf("Write failed: %v", err)
	}

	b.SetBytes(4096)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Read(p, 4096, int64(i%16)*4096); err != nil {
			b.Fatalf("Read failed: %v", err)
		}
	}
}

// Benchmark for flushing a 1 MiB file, which encrypts and replicates it
func benchmarkSync(b *testing.B, s store.IStore) {
	b.Cleanup(func() { s.Close() })

	p := path(NamespaceB, "large.bin")
	mustCreate(b, s, p)
	data := bytes.Repeat([]byte("0123456789abcdef"), 1<<16)

	if _, err := s.Write(p, data, 0); err != nil {
		b.Fatalf("Write failed: %v", err)
	}

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// one changed byte makes the whole file dirty
		if _, err := s.Write(p, data[:1], int64(i%len(data))); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
		if err := s.Sync(p); err != nil {
			b.Fatalf("Sync failed: %v", err)
		}
	}
}

// Benchmark for creating and writing many small files
func benchmarkManyFiles(b *testing.B, s store.IStore) {
	b.Cleanup(func() { s.Close() })

	data := []byte("small file")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := path(NamespaceA, fmt.Sprintf("many/%d.txt", i))
		mustCreate(b, s, p)
		if _, err := s.Write(p, data, 0); err != nil {
			b.Fatalf("Write failed: %v", err)
		}
	}
}
