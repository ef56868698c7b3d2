package testing

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/dFS/lib/store"
)

const (
	// NamespaceA is the first namespace the factory must configure
	NamespaceA = "docs"
	// NamespaceB is the second namespace the factory must configure
	NamespaceB = "music"
)

// StoreFactory creates a store rooted at root
type StoreFactory func(root string) store.IStore

// RunStoreTests runs the conformance suite for an IStore implementation
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Create", func(t *testing.T) {
			testCreate(t, factory(t.TempDir()))
		})

		t.Run("Write&Read", func(t *testing.T) {
			testWriteRead(t, factory(t.TempDir()))
		})

		t.Run("SparseWrite", func(t *testing.T) {
			testSparseWrite(t, factory(t.TempDir()))
		})

		t.Run("Truncate", func(t *testing.T) {
			testTruncate(t, factory(t.TempDir()))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t.TempDir()))
		})

		t.Run("Rename", func(t *testing.T) {
			testRename(t, factory(t.TempDir()))
		})

		t.Run("List", func(t *testing.T) {
			testList(t, factory(t.TempDir()))
		})

		t.Run("Paths", func(t *testing.T) {
			testPaths(t, factory(t.TempDir()))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory(t.TempDir()))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func path(namespace, name string) string {
	return "/" + namespace + "/" + name
}

func requireCode(t testing.TB, err error, target *store.Error, what string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("%s: expected error code %s, got %v", what, target.Code, err)
	}
}

func mustWrite(t testing.TB, s store.IStore, p string, data []byte, offset int64) {
	t.Helper()
	n, err := s.Write(p, data, offset)
	if err != nil {
		t.Fatalf("Write(%s) failed: %v", p, err)
	}
	if n != len(data) {
		t.Fatalf("Write(%s) wrote %d of %d bytes", p, n, len(data))
	}
}

func mustRead(t testing.TB, s store.IStore, p string) []byte {
	t.Helper()
	data, err := s.Read(p, 1<<30, 0)
	if err != nil {
		t.Fatalf("Read(%s) failed: %v", p, err)
	}
	return data
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreate(t *testing.T, s store.IStore) {
	defer s.Close()

	p := path(NamespaceA, "new.txt")
	if err := s.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	requireCode(t, s.Create(p), store.ErrExists, "second Create")

	if data := mustRead(t, s, p); len(data) != 0 {
		t.Errorf("Expected an empty file, got %d bytes", len(data))
	}

	info, err := s.Stat(p)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size != 0 || info.Deleted || info.Path != p {
		t.Errorf("Unexpected file info %+v", info)
	}

	// nested files create their parent directories
	nested := path(NamespaceA, "a/b/c.txt")
	if err := s.Create(nested); err != nil {
		t.Errorf("Create(%s) failed: %v", nested, err)
	}
}

func testWriteRead(t *testing.T, s store.IStore) {
	defer s.Close()

	p := path(NamespaceA, "file.txt")
	requireCode(t, func() error { _, err := s.Write(p, []byte("x"), 0); return err }(), store.ErrNotFound, "Write before Create")

	if err := s.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mustWrite(t, s, p, []byte("hello world"), 0)
	mustWrite(t, s, p, []byte("WORLD"), 6)
	if got := mustRead(t, s, p); !bytes.Equal(got, []byte("hello WORLD")) {
		t.Errorf("Expected %q, got %q", "hello WORLD", got)
	}

	// partial reads and reads past the end
	got, err := s.Read(p, 3, 2)
	if err != nil || !bytes.Equal(got, []byte("llo")) {
		t.Errorf("Expected %q, got %q (%v)", "llo", got, err)
	}
	got, err = s.Read(p, 100, 8)
	if err != nil || !bytes.Equal(got, []byte("RLD")) {
		t.Errorf("Expected %q, got %q (%v)", "RLD", got, err)
	}
	got, err = s.Read(p, 10, 100)
	if err != nil || len(got) != 0 {
		t.Errorf("Expected an empty read past the end, got %q (%v)", got, err)
	}

	// returned data is a copy
	got = mustRead(t, s, p)
	got[0] = 'X'
	if again := mustRead(t, s, p); again[0] != 'h' {
		t.Errorf("Modifying the result of Read changed the file")
	}

	if err := s.Sync(p); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	info, err := s.Stat(p)
	if err != nil || info.Size != 11 {
		t.Errorf("Expected size 11, got %+v (%v)", info, err)
	}
}

func testSparseWrite(t *testing.T, s store.IStore) {
	defer s.Close()

	p := path(NamespaceB, "sparse.bin")
	if err := s.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mustWrite(t, s, p, []byte("end"), 37)

	got := mustRead(t, s, p)
	if len(got) != 40 {
		t.Fatalf("Expected 40 bytes, got %d", len(got))
	}
	if !bytes.Equal(got[:37], make([]byte, 37)) {
		t.Errorf("Expected the gap to read as zero")
	}
	if !bytes.Equal(got[37:], []byte("end")) {
		t.Errorf("Expected %q at the end, got %q", "end", got[37:])
	}
}

func testTruncate(t *testing.T, s store.IStore) {
	defer s.Close()

	p := path(NamespaceA, "trunc.txt")
	if err := s.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mustWrite(t, s, p, []byte("0123456789abcdefXYZ"), 0)

	if err := s.Truncate(p, 5); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if got := mustRead(t, s, p); !bytes.Equal(got, []byte("01234")) {
		t.Errorf("Expected %q, got %q", "01234", got)
	}

	// growing again must not resurrect the old bytes
	if err := s.Truncate(p, 20); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	want := append([]byte("01234"), make([]byte, 15)...)
	if got := mustRead(t, s, p); !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}

	requireCode(t, s.Truncate(p, -1), store.ErrInvalidOperation, "negative Truncate")
	requireCode(t, s.Truncate(path(NamespaceA, "missing"), 0), store.ErrNotFound, "Truncate of missing file")
}

func testDelete(t *testing.T, s store.IStore) {
	defer s.Close()

	p := path(NamespaceA, "gone.txt")
	if err := s.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mustWrite(t, s, p, []byte("content"), 0)

	if err := s.Delete(p); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	requireCode(t, s.Delete(p), store.ErrNotFound, "second Delete")
	_, err := s.Read(p, 10, 0)
	requireCode(t, err, store.ErrNotFound, "Read after Delete")

	info, err := s.Stat(p)
	if err != nil || !info.Deleted {
		t.Errorf("Expected a tombstone, got %+v (%v)", info, err)
	}

	// a deleted file can be created again and starts empty
	if err := s.Create(p); err != nil {
		t.Fatalf("Create after Delete failed: %v", err)
	}
	if got := mustRead(t, s, p); len(got) != 0 {
		t.Errorf("Expected the recreated file to be empty, got %q", got)
	}
}

func testRename(t *testing.T, s store.IStore) {
	defer s.Close()

	from := path(NamespaceA, "from.txt")
	to := path(NamespaceA, "dir/to.txt")
	content := bytes.Repeat([]byte("rename"), 7)

	if err := s.Create(from); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	mustWrite(t, s, from, content, 0)

	if err := s.Rename(from, to); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if got := mustRead(t, s, to); !bytes.Equal(got, content) {
		t.Errorf("Expected the renamed file to keep its content, got %q", got)
	}
	_, err := s.Read(from, 10, 0)
	requireCode(t, err, store.ErrNotFound, "Read of the old name")

	other := path(NamespaceB, "to.txt")
	requireCode(t, s.Rename(to, other), store.ErrInvalidOperation, "Rename across namespaces")
	requireCode(t, s.Rename(from, to), store.ErrNotFound, "Rename of a missing file")
}

func testList(t *testing.T, s store.IStore) {
	defer s.Close()

	for _, name := range []string{"b.txt", "a.txt", "sub/c.txt"} {
		if err := s.Create(path(NamespaceA, name)); err != nil {
			t.Fatalf("Create(%s) failed: %v", name, err)
		}
	}
	if err := s.Create(path(NamespaceB, "song.mp3")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Delete(path(NamespaceA, "b.txt")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	files, err := s.List("/" + NamespaceA)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Path)
	}
	want := []string{path(NamespaceA, "a.txt"), path(NamespaceA, "sub/c.txt")}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, names)
	}

	all, err := s.List("/")
	if err != nil || len(all) != 3 {
		t.Errorf("Expected 3 files below /, got %d (%v)", len(all), err)
	}

	_, err = s.List("/unknown")
	requireCode(t, err, store.ErrAccessDenied, "List of an unknown namespace")
}

func testPaths(t *testing.T, s store.IStore) {
	defer s.Close()

	if !s.IsAccessible("/") || !s.IsAccessible("/"+NamespaceA) || !s.IsAccessible(path(NamespaceB, "x/y")) {
		t.Errorf("Expected the root and configured namespaces to be accessible")
	}
	if s.IsAccessible("/unknown/file") {
		t.Errorf("Expected an unknown namespace to be inaccessible")
	}

	for _, p := range []string{"/", "/" + NamespaceA, "/" + NamespaceA + "/"} {
		if !s.IsTopLevel(p) {
			t.Errorf("Expected %s to be top level", p)
		}
	}
	if s.IsTopLevel(path(NamespaceA, "file")) {
		t.Errorf("Expected a file inside a namespace not to be top level")
	}

	requireCode(t, s.Create("/"+NamespaceA), store.ErrInvalidPath, "Create of a namespace root")
	requireCode(t, s.Create("/unknown/file"), store.ErrAccessDenied, "Create outside of a namespace")
	requireCode(t, s.Create("relative/file"), store.ErrInvalidPath, "Create of a relative path")
	requireCode(t, s.Create("/"+NamespaceA+"/../"+NamespaceB+"/x"), store.ErrInvalidPath, "Create of an unclean path")

	long := "/" + NamespaceA + "/" + string(bytes.Repeat([]byte("a"), 600))
	requireCode(t, s.Create(long), store.ErrInvalidPath, "Create of a long path")

	if got, want := s.Namespaces(), []string{NamespaceA, NamespaceB}; fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected namespaces %v, got %v", want, got)
	}
}

func testSaveLoad(t *testing.T, factory StoreFactory) {
	root := t.TempDir()
	s := factory(root)

	files := map[string][]byte{
		path(NamespaceA, "one.txt"):      []byte("1"),
		path(NamespaceA, "dir/two.txt"):  bytes.Repeat([]byte{0xAB}, 5000),
		path(NamespaceB, "three.bin"):    bytes.Repeat([]byte("0123456789abcdef"), 64),
		path(NamespaceB, "residual.bin"): bytes.Repeat([]byte{7}, 1027),
	}
	for p, data := range files {
		if err := s.Create(p); err != nil {
			t.Fatalf("Create(%s) failed: %v", p, err)
		}
		mustWrite(t, s, p, data, 0)
	}
	deleted := path(NamespaceA, "deleted.txt")
	if err := s.Create(deleted); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Delete(deleted); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s = factory(root)
	defer s.Close()

	for p, data := range files {
		if got := mustRead(t, s, p); !bytes.Equal(got, data) {
			t.Errorf("Content of %s changed after reopening (%d bytes, want %d)", p, len(got), len(data))
		}
	}
	info, err := s.Stat(deleted)
	if err != nil || !info.Deleted {
		t.Errorf("Expected the tombstone of %s to survive, got %+v (%v)", deleted, info, err)
	}
}

func testRealisticUsage(t *testing.T, s store.IStore) {
	defer s.Close()

	// append a log file in small pieces and read it back in windows
	p := path(NamespaceA, "app.log")
	if err := s.Create(p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var want []byte
	for i := 0; i < 200; i++ {
		line := []byte(fmt.Sprintf("line %03d: the quick brown fox\n", i))
		mustWrite(t, s, p, line, int64(len(want)))
		want = append(want, line...)
		if i%50 == 0 {
			if err := s.Sync(p); err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
			s.Evict(p)
		}
	}

	var got []byte
	for offset := int64(0); ; offset += 333 {
		chunk, err := s.Read(p, 333, offset)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if len(chunk) == 0 {
			break
		}
		got = append(got, chunk...)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Read back %d bytes that differ from the %d bytes written", len(got), len(want))
	}

	if err := s.SyncPrefix("/" + NamespaceA + "/"); err != nil {
		t.Errorf("SyncPrefix failed: %v", err)
	}
	if _, err := s.Usage(); err != nil {
		t.Errorf("Usage failed: %v", err)
	}
}
