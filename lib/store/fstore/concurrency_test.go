package fstore

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/ValentinKolb/dFS/replication/transport/mem"
	"github.com/ValentinKolb/dFS/replication/wire"
	"github.com/stretchr/testify/require"
)

// fastConfig flushes and evicts about as soon as the periodic task runs
func fastConfig(t *testing.T) common.EngineConfig {
	config := testConfig(t, t.TempDir())
	config.TickInterval = 5 * time.Millisecond
	config.FlushAfter = 0
	config.EvictAfter = 10 * time.Millisecond
	return config
}

func workerContent(worker, round int) []byte {
	return bytes.Repeat([]byte(fmt.Sprintf("w%d-r%d;", worker, round)), 1+round%150)
}

// TestConcurrentOperationsConverge runs foreground operations on one store
// while its receiver replays the namespace and its periodic task flushes and
// evicts, and a second store reads what arrives. Run it with -race.
func TestConcurrentOperationsConverge(t *testing.T) {
	const (
		workers = 4
		files   = 5
		rounds  = 60
	)

	hub := mem.NewHub()
	a, err := newEngine(fastConfig(t), hub.NewTransport(), time.Now)
	require.NoError(t, err)
	require.NoError(t, a.start())
	defer a.Close()

	b, err := NewFileStore(fastConfig(t), hub.NewTransport())
	require.NoError(t, err)
	defer b.Close()

	onlinePkt := wire.NewOnline(int32(time.Now().Unix()), "docs")
	online, err := onlinePkt.Encode()
	require.NoError(t, err)

	stop := make(chan struct{})
	var background sync.WaitGroup

	// the receiver path: replays of the namespace requested by a peer
	background.Add(1)
	go func() {
		defer background.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			a.handleDatagram(transport.Datagram{Namespace: "docs", Payload: online, From: "peer"})
			time.Sleep(time.Millisecond)
		}
	}()

	// the peer reads whatever it has received so far
	background.Add(1)
	go func() {
		defer background.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			list, _ := b.List("/docs")
			for _, f := range list {
				_, _ = b.Read(f.Path, 1<<16, 0)
			}
		}
	}()

	filePath := func(w, f int) string { return fmt.Sprintf("/docs/w%d/f%d", w, f) }

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			live := make(map[string]bool)
			for r := 0; r < rounds; r++ {
				p := filePath(w, r%files)
				if !live[p] {
					if err := a.Create(p); err != nil {
						t.Errorf("Create(%s) failed: %v", p, err)
						return
					}
					live[p] = true
				}

				content := workerContent(w, r)
				if err := a.Truncate(p, 0); err != nil {
					t.Errorf("Truncate(%s) failed: %v", p, err)
					return
				}
				if _, err := a.Write(p, content, 0); err != nil {
					t.Errorf("Write(%s) failed: %v", p, err)
					return
				}
				if got, err := a.Read(p, len(content)+1, 0); err != nil || !bytes.Equal(got, content) {
					t.Errorf("Read(%s) returned %d bytes (%v), want %d", p, len(got), err, len(content))
					return
				}

				if r%3 == 0 {
					if err := a.SyncPrefix(fmt.Sprintf("/docs/w%d/", w)); err != nil {
						t.Errorf("SyncPrefix failed: %v", err)
					}
					if _, err := a.List("/docs"); err != nil {
						t.Errorf("List failed: %v", err)
					}
				}
				if r%4 == 3 {
					if err := a.Delete(p); err != nil {
						t.Errorf("Delete(%s) failed: %v", p, err)
						return
					}
					live[p] = false
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	background.Wait()
	require.False(t, t.Failed())

	// every change from here on is at least one second newer than the
	// packets of the concurrent phase
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second + 50*time.Millisecond)))

	want := make(map[string][]byte)
	for w := 0; w < workers; w++ {
		for f := 0; f < files; f++ {
			p := filePath(w, f)
			info, err := a.Stat(p)
			require.NoError(t, err)

			if (w+f)%2 == 0 {
				// recreate instead of truncating, a flush of the
				// truncated file would race the final content
				if !info.Deleted {
					require.NoError(t, a.Delete(p))
				}
				require.NoError(t, a.Create(p))
				want[p] = workerContent(w, rounds+f)
				_, err = a.Write(p, want[p], 0)
				require.NoError(t, err)
				require.NoError(t, a.Sync(p))
			} else {
				if info.Deleted {
					require.NoError(t, a.Create(p))
				}
				require.NoError(t, a.Delete(p))
				want[p] = nil
			}
		}
	}

	require.Eventually(t, func() bool {
		for p, content := range want {
			if content == nil {
				info, err := b.Stat(p)
				if err != nil || !info.Deleted {
					return false
				}
				continue
			}
			data, err := b.Read(p, len(content)+1, 0)
			if err != nil || !bytes.Equal(data, content) {
				return false
			}
		}
		return true
	}, 10*time.Second, 50*time.Millisecond)

	// both sides list the same live files
	local, err := a.List("/docs")
	require.NoError(t, err)
	remote, err := b.List("/docs")
	require.NoError(t, err)
	require.Equal(t, listedPaths(local), listedPaths(remote))
}

func listedPaths(files []store.FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}
