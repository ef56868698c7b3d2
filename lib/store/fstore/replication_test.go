package fstore

import (
	"bytes"
	"math/rand"
	"testing"
	"time"

	"github.com/ValentinKolb/dFS/lib/buffer"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/ValentinKolb/dFS/replication/transport/mem"
	"github.com/ValentinKolb/dFS/replication/wire"
	"github.com/stretchr/testify/require"
)

func datagram(t *testing.T, namespace string, p wire.Packet) transport.Datagram {
	payload, err := p.Encode()
	require.NoError(t, err)
	return transport.Datagram{Namespace: namespace, Payload: payload, From: "test"}
}

func deliver(t *testing.T, e *engine, namespace string, packets []wire.Packet) {
	for _, p := range packets {
		e.handleDatagram(datagram(t, namespace, p))
	}
}

func randomContent(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func readAll(t *testing.T, e *engine, p string) []byte {
	data, err := e.Read(p, MaxFileSize, 0)
	require.NoError(t, err)
	return data
}

func TestApplyModifyInAnyOrder(t *testing.T) {
	for _, size := range []int{10000, 9999, 1, 0} {
		e, _, _ := newTestEngine(t, t.TempDir())

		p := "/docs/shuffled.bin"
		content := buffer.Pad(randomContent(int64(size), size))
		packets := wire.SplitModify(100, p, content, buffer.Residual(size))

		shuffled := append([]wire.Packet(nil), packets...)
		rand.New(rand.NewSource(42)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		deliver(t, e, "docs", shuffled)

		require.Equal(t, content[:size], readAll(t, e, p), "size %d", size)
		require.Equal(t, int64(100), e.namespaces["docs"].records[p].Timestamp)

		// applying the same packets again changes nothing
		deliver(t, e, "docs", packets)
		require.Equal(t, content[:size], readAll(t, e, p), "size %d", size)

		// and the result survives a flush
		require.NoError(t, e.Sync(p))
		e.Evict(p)
		require.Equal(t, content[:size], readAll(t, e, p), "size %d", size)
	}
}

func TestApplyModifyLastWriterWins(t *testing.T) {
	p := "/docs/lww.bin"
	older := randomContent(1, 3008)
	newer := buffer.Pad(randomContent(2, 1500))

	oldPackets := wire.SplitModify(100, p, older, 0)
	newPackets := wire.SplitModify(200, p, newer, buffer.Residual(1500))

	t.Run("OlderFirst", func(t *testing.T) {
		e, _, _ := newTestEngine(t, t.TempDir())
		deliver(t, e, "docs", oldPackets)
		deliver(t, e, "docs", newPackets)
		require.Equal(t, newer[:1500], readAll(t, e, p))
	})

	t.Run("NewerFirst", func(t *testing.T) {
		e, _, _ := newTestEngine(t, t.TempDir())
		deliver(t, e, "docs", newPackets)
		deliver(t, e, "docs", oldPackets)
		require.Equal(t, newer[:1500], readAll(t, e, p))
		require.Equal(t, int64(200), e.namespaces["docs"].records[p].Timestamp)
	})
}

func TestApplyModifyOverridesLocalWrite(t *testing.T) {
	e, _, _ := newTestEngine(t, t.TempDir())

	p := "/docs/local.txt"
	require.NoError(t, e.Create(p))
	_, err := e.Write(p, []byte("local content"), 0)
	require.NoError(t, err)

	// stamped before the local write
	local := int32(testStart.Unix())
	deliver(t, e, "docs", wire.SplitModify(local-1, p, buffer.Pad([]byte("remote")), 10))
	require.Equal(t, []byte("local content"), readAll(t, e, p))

	deliver(t, e, "docs", wire.SplitModify(local+1, p, buffer.Pad([]byte("remote")), 10))
	require.Equal(t, []byte("remote"), readAll(t, e, p))
}

func TestApplyDelete(t *testing.T) {
	for _, tc := range []struct {
		name    string
		delta   int32
		applied bool
	}{
		{"Older", -1, false},
		{"SameSecond", 0, true},
		{"Newer", 1, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, _, _ := newTestEngine(t, t.TempDir())

			p := "/music/track.mp3"
			require.NoError(t, e.Create(p))
			_, err := e.Write(p, []byte("la la la"), 0)
			require.NoError(t, err)

			ts := int32(testStart.Unix()) + tc.delta
			e.handleDatagram(datagram(t, "music", wire.NewDelete(ts, p)))

			info, err := e.Stat(p)
			require.NoError(t, err)
			if !tc.applied {
				require.False(t, info.Deleted)
				require.Equal(t, []byte("la la la"), readAll(t, e, p))
				return
			}

			require.True(t, info.Deleted)
			require.Equal(t, int64(ts), info.Timestamp)
			_, err = e.Read(p, 10, 0)
			require.ErrorIs(t, err, store.ErrNotFound)
			require.NoFileExists(t, e.Resolve(p))
		})
	}
}

func TestDeleteOfUnknownPathLeavesTombstone(t *testing.T) {
	e, _, _ := newTestEngine(t, t.TempDir())

	p := "/docs/never-seen.txt"
	e.handleDatagram(datagram(t, "docs", wire.NewDelete(500, p)))

	info, err := e.Stat(p)
	require.NoError(t, err)
	require.True(t, info.Deleted)
	require.Equal(t, int64(500), info.Timestamp)

	// a late modify from before the delete stays dead
	deliver(t, e, "docs", wire.SplitModify(400, p, buffer.Pad([]byte("zombie")), 10))
	_, err = e.Read(p, 10, 0)
	require.ErrorIs(t, err, store.ErrNotFound)

	deliver(t, e, "docs", wire.SplitModify(600, p, buffer.Pad([]byte("alive")), 11))
	require.Equal(t, []byte("alive"), readAll(t, e, p))
}

func TestRejectsPacketsOutsideTheirNamespace(t *testing.T) {
	e, ft, _ := newTestEngine(t, t.TempDir())

	content := buffer.Pad([]byte("sneaky"))

	// sealed with the music key but targeting docs
	deliver(t, e, "music", wire.SplitModify(100, "/docs/planted.txt", content, 10))
	require.NotContains(t, e.namespaces["docs"].records, "/docs/planted.txt")

	// unknown namespace, namespace root and reserved names
	for _, p := range []string{"/other/x", "/docs", "/docs/" + MetadataFile} {
		deliver(t, e, "docs", wire.SplitModify(100, p, content, 10))
		require.NotContains(t, e.namespaces["docs"].records, p)
	}

	// files larger than the store accepts
	huge := wire.Packet{
		Header: wire.Header{Kind: wire.KindModify, Time: 100, Path: "/docs/huge.bin"},
		Chunk:  &wire.Chunk{FileSize: MaxFileSize + 16, TotalSize: MaxFileSize + 16},
	}
	e.handleDatagram(datagram(t, "docs", huge))
	require.NotContains(t, e.namespaces["docs"].records, "/docs/huge.bin")

	// an online packet must be sealed with the key of its namespace
	require.NoError(t, e.Create("/docs/real.txt"))
	ft.take(t)
	e.handleDatagram(datagram(t, "music", wire.NewOnline(100, "docs")))
	require.Empty(t, ft.take(t))

	// garbage
	e.handleDatagram(transport.Datagram{Namespace: "docs", Payload: []byte{1, 2, 3}})
}

func TestOnlineReplaysNamespace(t *testing.T) {
	e, ft, clock := newTestEngine(t, t.TempDir())

	live := "/docs/live.bin"
	require.NoError(t, e.Create(live))
	_, err := e.Write(live, randomContent(7, 2500), 0)
	require.NoError(t, err)
	require.NoError(t, e.Sync(live))
	e.Evict(live)

	clock.advance(time.Second)
	gone := "/docs/gone.txt"
	require.NoError(t, e.Create(gone))
	require.NoError(t, e.Delete(gone))

	require.NoError(t, e.Create("/music/other.mp3"))
	ft.take(t)

	e.handleDatagram(datagram(t, "docs", wire.NewOnline(int32(clock.now().Unix()), "docs")))
	packets := ft.take(t)

	var modify, deletes int
	for _, p := range packets {
		switch p.Kind {
		case wire.KindModify:
			require.Equal(t, live, p.Path)
			require.Equal(t, int32(testStart.Unix()-1), p.Time)
			require.Equal(t, int64(2500), p.Chunk.FileSize)
			modify++
		case wire.KindDelete:
			require.Equal(t, gone, p.Path)
			deletes++
		default:
			t.Fatalf("unexpected %s packet", p.Kind)
		}
	}
	require.Equal(t, 3, modify)
	require.Equal(t, 1, deletes)

	// replay does not fill the cache
	require.NotContains(t, e.cache, live)
}

func TestReplicationBetweenStores(t *testing.T) {
	hub := mem.NewHub()

	a, err := NewFileStore(testConfig(t, t.TempDir()), hub.NewTransport())
	require.NoError(t, err)
	defer a.Close()

	p := "/docs/shared.bin"
	content := bytes.Repeat([]byte{0xAB}, 5000)
	require.NoError(t, a.Create(p))
	_, err = a.Write(p, content, 0)
	require.NoError(t, err)
	require.NoError(t, a.Sync(p))

	// b learns about the file from the replay triggered by its announcement
	b, err := NewFileStore(testConfig(t, t.TempDir()), hub.NewTransport())
	require.NoError(t, err)
	defer b.Close()

	require.Eventually(t, func() bool {
		data, err := b.Read(p, 10000, 0)
		return err == nil && bytes.Equal(data, content)
	}, 5*time.Second, 20*time.Millisecond)

	// later changes are pushed as they are flushed
	q := "/music/odd.bin"
	odd := randomContent(3, 1027)
	require.NoError(t, a.Create(q))
	_, err = a.Write(q, odd, 0)
	require.NoError(t, err)
	require.NoError(t, a.Sync(q))

	require.Eventually(t, func() bool {
		data, err := b.Read(q, 10000, 0)
		return err == nil && bytes.Equal(data, odd)
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, a.Delete(p))
	require.Eventually(t, func() bool {
		info, err := b.Stat(p)
		return err == nil && info.Deleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRenameBroadcastsTombstoneThenTarget(t *testing.T) {
	e, ft, clock := newTestEngine(t, t.TempDir())

	from, to := "/docs/from.bin", "/docs/sub/to.bin"
	content := randomContent(11, 1037)
	require.NoError(t, e.Create(from))
	_, err := e.Write(from, content, 0)
	require.NoError(t, err)
	require.NoError(t, e.Sync(from))
	ft.take(t)

	now := clock.advance(time.Second)
	require.NoError(t, e.Rename(from, to))
	packets := ft.take(t)

	require.Len(t, packets, 3)
	require.Equal(t, wire.KindDelete, packets[0].Kind)
	require.Equal(t, from, packets[0].Path)
	require.Equal(t, int32(now.Unix()-1), packets[0].Time)

	var covered int64
	for _, p := range packets[1:] {
		require.Equal(t, wire.KindModify, p.Kind)
		require.Equal(t, to, p.Path)
		require.Equal(t, int32(now.Unix()-1), p.Time)
		require.Equal(t, int64(1037), p.Chunk.FileSize)
		require.Equal(t, int64(1040), p.Chunk.TotalSize)
		require.Equal(t, covered, p.Chunk.Offset)
		covered += p.Chunk.Size
	}
	require.Equal(t, int64(1040), covered)

	// the target inherits the residual of the moved ciphertext
	records := e.namespaces["docs"].records
	require.True(t, records[from].Deleted)
	require.False(t, records[to].Deleted)
	require.Equal(t, 3, records[to].ResidualLen)
	require.Equal(t, content, readAll(t, e, to))

	// a peer applying the packets ends up with the same state
	peer, _, _ := newTestEngine(t, t.TempDir())
	deliver(t, peer, "docs", wire.SplitModify(int32(testStart.Unix()-1), from, buffer.Pad(content), buffer.Residual(len(content))))
	deliver(t, peer, "docs", packets)
	require.Equal(t, content, readAll(t, peer, to))
	info, err := peer.Stat(from)
	require.NoError(t, err)
	require.True(t, info.Deleted)
}

func TestRenameReplicatesBetweenStores(t *testing.T) {
	hub := mem.NewHub()

	a, err := NewFileStore(testConfig(t, t.TempDir()), hub.NewTransport())
	require.NoError(t, err)
	defer a.Close()
	b, err := NewFileStore(testConfig(t, t.TempDir()), hub.NewTransport())
	require.NoError(t, err)
	defer b.Close()

	from, to := "/docs/draft.txt", "/docs/final/report.txt"
	content := randomContent(12, 1037)
	require.NoError(t, a.Create(from))
	_, err = a.Write(from, content, 0)
	require.NoError(t, err)
	require.NoError(t, a.Sync(from))

	require.Eventually(t, func() bool {
		data, err := b.Read(from, 10000, 0)
		return err == nil && bytes.Equal(data, content)
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, a.Rename(from, to))

	require.Eventually(t, func() bool {
		data, err := b.Read(to, 10000, 0)
		if err != nil || !bytes.Equal(data, content) {
			return false
		}
		info, err := b.Stat(from)
		return err == nil && info.Deleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReplaySkipsUnalignedBackingFile(t *testing.T) {
	root := t.TempDir()
	e, _, _ := newTestEngine(t, root)

	ok, broken := "/docs/ok.txt", "/docs/broken.txt"
	for _, p := range []string{ok, broken} {
		require.NoError(t, e.Create(p))
		_, err := e.Write(p, bytes.Repeat([]byte{1}, 32), 0)
		require.NoError(t, err)
		require.NoError(t, e.Sync(p))
	}
	// the metadata knows about the append, the backing file does not
	_, err := e.Write(broken, []byte{2}, 32)
	require.NoError(t, err)

	restarted, ft, clock := newTestEngine(t, root)

	_, err = restarted.Read(broken, 100, 0)
	require.ErrorIs(t, err, store.ErrInternal)

	require.NotPanics(t, func() {
		restarted.handleDatagram(datagram(t, "docs", wire.NewOnline(int32(clock.now().Unix()), "docs")))
	})
	packets := ft.take(t)
	require.NotEmpty(t, packets)
	for _, p := range packets {
		require.Equal(t, ok, p.Path)
	}

	// the other files stay usable
	require.Equal(t, bytes.Repeat([]byte{1}, 32), readAll(t, restarted, ok))
}
