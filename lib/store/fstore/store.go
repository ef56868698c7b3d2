package fstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ValentinKolb/dFS/lib/crypt"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/lib/util"
	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/ValentinKolb/dFS/replication/wire"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// MaxFileSize is the largest logical file the store accepts
const MaxFileSize = 1 << 32

// namespace is one configured namespace with its metadata table
type namespace struct {
	crypt.Namespace
	cipher  crypt.ICipher
	dir     string             // absolute path of the namespace root
	records map[string]*record // path -> record
	order   []*record          // records in insertion order, as persisted
}

// cacheEntry is the decrypted, block aligned content of one file together
// with its bookkeeping. Entries are replaced as a whole, never shared.
type cacheEntry struct {
	buf       []byte
	lastHit   time.Time
	lastWrite time.Time
	dirty     bool
}

// outgoing is an encoded packet waiting to be broadcast
type outgoing struct {
	namespace string
	payload   []byte
}

type engine struct {
	config     common.EngineConfig
	root       string
	transport  transport.ITransport
	namespaces map[string]*namespace
	names      []string
	now        func() time.Time

	// mu guards the records of all namespaces, the cache and both queues
	mu      sync.Mutex
	cache   map[string]*cacheEntry
	dirtyQ  *util.ExpiryQueue // dirty paths by last write
	hitQ    *util.ExpiryQueue // cached paths by last hit
	offline bool              // set once the transport is closed

	stop      chan struct{}
	tickerWG  sync.WaitGroup
	recvWG    sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewFileStore creates the store below config.RootDir, loads the metadata of
// every namespace, starts listening on t and announces all namespaces.
//
// The returned store owns t and closes it in Close.
func NewFileStore(config common.EngineConfig, t transport.ITransport) (store.IStore, error) {
	e, err := newEngine(config, t, time.Now)
	if err != nil {
		return nil, err
	}
	if err := e.start(); err != nil {
		return nil, err
	}
	return e, nil
}

// newEngine creates the namespace roots and loads their metadata
func newEngine(config common.EngineConfig, t transport.ITransport, now func() time.Time) (*engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	root, err := filepath.Abs(config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	e := &engine{
		config:     config,
		root:       root,
		transport:  t,
		namespaces: make(map[string]*namespace, len(config.Namespaces)),
		now:        now,
		cache:      make(map[string]*cacheEntry),
		dirtyQ:     util.NewExpiryQueue(),
		hitQ:       util.NewExpiryQueue(),
		stop:       make(chan struct{}),
	}

	for _, nsConf := range config.Namespaces {
		ns := &namespace{
			Namespace: nsConf,
			cipher:    crypt.NewCipher(nsConf.Key),
			dir:       filepath.Join(root, nsConf.Name),
			records:   make(map[string]*record),
		}
		if err := os.MkdirAll(ns.dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create namespace root %s: %w", ns.dir, err)
		}

		records, err := loadMetadata(ns.dir)
		if err != nil {
			return nil, fmt.Errorf("namespace %s: %w", ns.Name, err)
		}
		for _, r := range records {
			if e.namespaceName(r.Path) != ns.Name {
				Logger.Warningf("Ignoring metadata record %s outside of namespace %s", r.Path, ns.Name)
				continue
			}
			if _, dup := ns.records[r.Path]; dup {
				Logger.Warningf("Ignoring duplicate metadata record %s", r.Path)
				continue
			}
			ns.records[r.Path] = r
			ns.order = append(ns.order, r)
		}

		e.namespaces[ns.Name] = ns
		e.names = append(e.names, ns.Name)
		Logger.Infof("Loaded namespace %s with %d records", ns.Name, len(ns.order))
	}

	return e, nil
}

// start binds the transport, launches the receiver and the periodic task and
// announces every namespace
func (e *engine) start() error {
	if err := e.transport.Listen(e.config.TransportConfigWithKeys()); err != nil {
		return fmt.Errorf("failed to start transport: %w", err)
	}

	e.recvWG.Add(1)
	go e.receive()

	e.tickerWG.Add(1)
	go e.periodic()

	e.announce()
	return nil
}

// --------------------------------------------------------------------------
// Background tasks
// --------------------------------------------------------------------------

// receive applies inbound packets until the transport is closed
func (e *engine) receive() {
	defer e.recvWG.Done()
	for {
		d, err := e.transport.Recv()
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				Logger.Errorf("Receiver stopped: %v", err)
			}
			return
		}
		e.handleDatagram(d)
	}
}

// periodic runs tick every TickInterval until Close
func (e *engine) periodic() {
	defer e.tickerWG.Done()

	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	lastAnnounce := e.now()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			now := e.now()
			e.tick(now)
			if e.config.AnnounceInterval > 0 && now.Sub(lastAnnounce) >= e.config.AnnounceInterval {
				e.announce()
				lastAnnounce = now
			}
		}
	}
}

// tick flushes dirty entries that have not been written for FlushAfter and
// evicts clean entries that have not been read for EvictAfter
func (e *engine) tick(now time.Time) {
	var out []outgoing

	e.mu.Lock()
	for _, p := range e.dirtyQ.PopBefore(now.Add(-e.config.FlushAfter).UnixNano()) {
		var err error
		if out, err = e.syncLocked(p, out); err != nil {
			Logger.Errorf("Periodic flush of %s failed: %v", p, err)
			// keep the entry dirty and retry with the next tick
			e.dirtyQ.Set(p, now.UnixNano())
		}
	}
	for _, p := range e.hitQ.PopBefore(now.Add(-e.config.EvictAfter).UnixNano()) {
		entry, ok := e.cache[p]
		if !ok {
			continue
		}
		if entry.dirty {
			// flushed by the first loop once its write is old enough
			e.hitQ.Set(p, entry.lastHit.UnixNano())
			continue
		}
		e.evictLocked(p)
	}
	e.mu.Unlock()

	e.send(out)
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

func (e *engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.stop)
		e.tickerWG.Wait()

		// flush and replicate while peers can still hear us
		if err := e.SyncPrefix("/"); err != nil {
			e.closeErr = err
		}

		e.mu.Lock()
		e.offline = true
		e.mu.Unlock()

		if err := e.transport.Close(); err != nil && e.closeErr == nil {
			e.closeErr = err
		}
		e.recvWG.Wait()

		// packets applied after the first flush
		if err := e.SyncPrefix("/"); err != nil && e.closeErr == nil {
			e.closeErr = err
		}
		Logger.Infof("Store at %s closed", e.root)
	})
	return e.closeErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// send broadcasts encoded packets. Must not be called with e.mu held.
func (e *engine) send(out []outgoing) {
	if len(out) == 0 {
		return
	}

	e.mu.Lock()
	offline := e.offline
	e.mu.Unlock()
	if offline {
		Logger.Debugf("Not sending %d packets, transport is closed", len(out))
		return
	}

	for _, o := range out {
		e.transport.Broadcast(o.namespace, o.payload)
		broadcastsTotal.Inc()
	}
}

// queuePacket encodes p and appends it to out
func queuePacket(out []outgoing, namespace string, p wire.Packet) []outgoing {
	payload, err := p.Encode()
	if err != nil {
		Logger.Errorf("Failed to encode %s packet for %s: %v", p.Kind, p.Path, err)
		return out
	}
	return append(out, outgoing{namespace: namespace, payload: payload})
}

// announce broadcasts the Online packet of every namespace
func (e *engine) announce() {
	var out []outgoing
	now := int32(e.now().Unix())
	for _, name := range e.names {
		out = queuePacket(out, name, wire.NewOnline(now, name))
	}
	Logger.Debugf("Announcing %d namespaces", len(out))
	e.send(out)
}
