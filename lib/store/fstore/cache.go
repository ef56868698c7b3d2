package fstore

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ValentinKolb/dFS/lib/buffer"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/replication/wire"
)

// errUnaligned marks a backing file whose length does not match the residual
// of its record
var errUnaligned = errors.New("backing file is not block aligned")

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IStore)
// --------------------------------------------------------------------------

func (e *engine) Sync(p string) error {
	e.mu.Lock()
	out, err := e.syncLocked(p, nil)
	e.mu.Unlock()

	e.send(out)
	return err
}

func (e *engine) SyncPrefix(prefix string) error {
	e.mu.Lock()
	paths := make([]string, 0, len(e.cache))
	for p := range e.cache {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var out []outgoing
	var errs []error
	for _, p := range paths {
		var err error
		if out, err = e.syncLocked(p, out); err != nil {
			errs = append(errs, err)
		}
	}
	e.mu.Unlock()

	e.send(out)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (e *engine) Evict(p string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evictLocked(p)
}

// --------------------------------------------------------------------------
// Cache primitives (all require e.mu)
// --------------------------------------------------------------------------

// touchLocked returns the cache entry of a live record, loading it from disk
// if needed. The entry becomes dirty unless readonly.
func (e *engine) touchLocked(ns *namespace, r *record, readonly bool) (*cacheEntry, error) {
	entry, ok := e.cache[r.Path]
	if !ok {
		buf, err := e.loadLocked(ns, r)
		if err != nil {
			return nil, err
		}
		entry = &cacheEntry{buf: buf}
		e.cache[r.Path] = entry
		cacheEntries.Inc()
	}

	now := e.now()
	entry.lastHit = now
	e.hitQ.Set(r.Path, now.UnixNano())
	if !readonly {
		entry.dirty = true
		entry.lastWrite = now
		e.dirtyQ.Set(r.Path, now.UnixNano())
	}
	return entry, nil
}

// loadLocked reads and decrypts the content of a live record. The result is
// block aligned and includes the residual bytes.
func (e *engine) loadLocked(ns *namespace, r *record) ([]byte, error) {
	data, err := os.ReadFile(e.Resolve(r.Path))
	if errors.Is(err, os.ErrNotExist) {
		Logger.Warningf("Backing file of %s is missing, treating it as empty", r.Path)
		data, err = nil, nil
	}
	if err != nil {
		return nil, store.WrapError(store.RetCIOError, "failed to read "+r.Path, err)
	}

	if len(data) == 0 {
		// an empty backing file can not carry a residual
		r.ResidualLen = 0
		return []byte{}, nil
	}

	total := len(data) + r.ResidualLen
	if !buffer.IsAligned(total) {
		// left behind by a crash between a write and its flush
		Logger.Errorf("Backing file of %s has %d bytes, with a residual of %d this is not block aligned",
			r.Path, len(data), r.ResidualLen)
		return nil, store.WrapError(store.RetCInternalError, "can not decrypt "+r.Path, errUnaligned)
	}

	buf := make([]byte, total)
	copy(buf, data)
	copy(buf[len(data):], r.Residual[:r.ResidualLen])
	ns.cipher.Decrypt(buf, buf)
	return buf, nil
}

// syncLocked writes a dirty entry to disk and appends its replication packets
// to out. Clean or uncached paths are left alone.
func (e *engine) syncLocked(p string, out []outgoing) ([]outgoing, error) {
	entry, ok := e.cache[p]
	if !ok || !entry.dirty {
		return out, nil
	}

	ns := e.namespaces[e.namespaceName(p)]
	var r *record
	if ns != nil {
		r = ns.records[p]
	}
	if r == nil {
		Logger.Panicf("Cached path %s has no metadata record", p)
	}
	if !buffer.IsAligned(len(entry.buf)) || r.ResidualLen > len(entry.buf) {
		Logger.Panicf("Cache entry of %s has %d bytes with a residual of %d", p, len(entry.buf), r.ResidualLen)
	}

	ct := make([]byte, len(entry.buf))
	ns.cipher.Encrypt(ct, entry.buf)
	fileLen := len(ct) - r.ResidualLen

	if err := writeFile(e.Resolve(p), ct[:fileLen]); err != nil {
		return out, store.WrapError(store.RetCIOError, "failed to flush "+p, err)
	}

	r.Residual = [buffer.BlockSize]byte{}
	copy(r.Residual[:], ct[fileLen:])
	if err := e.saveLocked(ns); err != nil {
		return out, err
	}

	entry.dirty = false
	e.dirtyQ.Remove(p)
	flushesTotal.Inc()
	Logger.Debugf("Flushed %s (%d bytes)", p, fileLen)

	return e.queueRecordLocked(out, ns, r, entry.buf), nil
}

// evictLocked drops the clean cache entry of p
func (e *engine) evictLocked(p string) {
	entry, ok := e.cache[p]
	if !ok {
		return
	}
	if entry.dirty {
		Logger.Panicf("Refusing to evict %s: the cache entry has unflushed writes", p)
	}
	e.dropLocked(p)
	evictionsTotal.Inc()
}

// dropLocked removes the cache entry of p, dirty or not
func (e *engine) dropLocked(p string) {
	if _, ok := e.cache[p]; !ok {
		return
	}
	delete(e.cache, p)
	e.hitQ.Remove(p)
	e.dirtyQ.Remove(p)
	cacheEntries.Dec()
}

// contentLocked returns the current content of a live record, from the cache
// if present, without installing a new cache entry
func (e *engine) contentLocked(ns *namespace, r *record) ([]byte, error) {
	if entry, ok := e.cache[r.Path]; ok {
		return entry.buf, nil
	}
	return e.loadLocked(ns, r)
}

// queueRecordLocked appends the packets describing r to out: a Delete for a
// tombstone, the Modify chunks of buf otherwise. Packets are stamped one
// second before the record.
func (e *engine) queueRecordLocked(out []outgoing, ns *namespace, r *record, buf []byte) []outgoing {
	ts := int32(r.Timestamp - 1)
	if r.Deleted {
		return queuePacket(out, ns.Name, wire.NewDelete(ts, r.Path))
	}
	for _, p := range wire.SplitModify(ts, r.Path, buf, r.ResidualLen) {
		out = queuePacket(out, ns.Name, p)
	}
	return out
}

// saveLocked persists the metadata table of ns
func (e *engine) saveLocked(ns *namespace) error {
	if err := saveMetadata(ns.dir, ns.order); err != nil {
		return store.WrapError(store.RetCIOError, "failed to save metadata of "+ns.Name, err)
	}
	return nil
}

// writeFile replaces the content of a backing file and syncs it to disk
func writeFile(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("fsync: %w", err)
	}
	return f.Close()
}
