package fstore

import (
	"errors"
	"os"

	"github.com/ValentinKolb/dFS/lib/buffer"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/replication/transport"
	"github.com/ValentinKolb/dFS/replication/wire"
)

// handleDatagram decodes and applies one inbound packet
func (e *engine) handleDatagram(d transport.Datagram) {
	p, err := wire.Decode(d.Payload)
	if err != nil {
		Logger.Warningf("Rejecting packet from %s: %v", d.From, err)
		rejectedTotal.Inc()
		return
	}

	if p.Kind == wire.KindOnline {
		ns, ok := e.namespaces[d.Namespace]
		if !ok || p.Path != d.Namespace {
			Logger.Warningf("Rejecting online packet for %s sealed with the key of %s", p.Path, d.Namespace)
			rejectedTotal.Inc()
			return
		}
		e.replay(ns)
		appliedTotal(p.Kind).Inc()
		return
	}

	// a key only authorizes changes inside its own namespace
	ns, err := e.validateFile(p.Path)
	if err != nil || ns.Name != d.Namespace {
		Logger.Warningf("Rejecting %s packet for %s from %s (namespace %s)", p.Kind, p.Path, d.From, d.Namespace)
		rejectedTotal.Inc()
		return
	}

	if p.Kind == wire.KindModify && p.Chunk.TotalSize > MaxFileSize {
		Logger.Warningf("Rejecting modify for %s with %d bytes", p.Path, p.Chunk.TotalSize)
		rejectedTotal.Inc()
		return
	}

	var applied bool
	switch p.Kind {
	case wire.KindModify:
		applied, err = e.applyModify(ns, p)
	case wire.KindDelete:
		applied, err = e.applyDelete(ns, p)
	}
	if err != nil {
		Logger.Errorf("Failed to apply %s packet for %s: %v", p.Kind, p.Path, err)
		return
	}
	if !applied {
		Logger.Debugf("Ignoring stale %s packet for %s (time %d)", p.Kind, p.Path, p.Time)
		staleTotal.Inc()
		return
	}
	appliedTotal(p.Kind).Inc()
}

// replay broadcasts the state of every record of ns
func (e *engine) replay(ns *namespace) {
	var out []outgoing

	e.mu.Lock()
	for _, r := range ns.order {
		var content []byte
		if !r.Deleted {
			var err error
			if content, err = e.contentLocked(ns, r); err != nil {
				Logger.Errorf("Failed to load %s for replay: %v", r.Path, err)
				continue
			}
		}
		out = e.queueRecordLocked(out, ns, r, content)
	}
	records := len(ns.order)
	e.mu.Unlock()

	Logger.Debugf("Replaying %d records of %s as %d packets", records, ns.Name, len(out))
	e.send(out)
}

// applyModify merges one chunk into the cached content of a file. It returns
// false if the local record is newer than the packet.
func (e *engine) applyModify(ns *namespace, p wire.Packet) (bool, error) {
	c := p.Chunk

	e.mu.Lock()
	defer e.mu.Unlock()

	r := ns.records[p.Path]
	if r != nil && r.Timestamp > int64(p.Time) {
		return false, nil
	}

	if r == nil || r.Deleted {
		// start from an empty file, the chunks carry the content
		if err := e.createBackingFile(p.Path); err != nil {
			return false, err
		}
		e.dropLocked(p.Path)
		r = e.recordLocked(ns, p.Path)
		r.Deleted = false
		r.ResidualLen = 0
		r.Residual = [buffer.BlockSize]byte{}
	}

	entry, err := e.touchLocked(ns, r, false)
	if err != nil {
		return false, err
	}
	entry.buf = buffer.Resize(entry.buf, int(c.TotalSize))
	copy(entry.buf[c.Offset:], p.Data)

	r.ResidualLen = c.Residual()
	r.Timestamp = int64(p.Time)
	return true, e.saveLocked(ns)
}

// applyDelete tombstones a file. It returns false if the local record is
// newer than the packet.
func (e *engine) applyDelete(ns *namespace, p wire.Packet) (bool, error) {
	var out []outgoing
	defer func() { e.send(out) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	r := ns.records[p.Path]
	if r != nil && r.Timestamp > int64(p.Time) {
		return false, nil
	}

	if r == nil {
		r = e.recordLocked(ns, p.Path)
	} else if !r.Deleted {
		var err error
		if out, err = e.syncLocked(p.Path, out); err != nil {
			Logger.Warningf("Failed to flush %s before deleting it: %v", p.Path, err)
		}
		e.dropLocked(p.Path)
		if err := os.Remove(e.Resolve(p.Path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, store.WrapError(store.RetCIOError, "failed to delete "+p.Path, err)
		}
	}

	r.Deleted = true
	r.Timestamp = int64(p.Time)
	return true, e.saveLocked(ns)
}
