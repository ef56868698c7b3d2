package fstore

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ValentinKolb/dFS/lib/buffer"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/shirou/gopsutil/disk"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IStore)
// --------------------------------------------------------------------------

func (e *engine) Create(p string) error {
	ns, err := e.validateFile(p)
	if err != nil {
		return err
	}

	e.mu.Lock()
	r := ns.records[p]
	if r != nil && !r.Deleted {
		e.mu.Unlock()
		return store.NewError(store.RetCExists, "file "+p+" already exists")
	}
	if err := e.createBackingFile(p); err != nil {
		e.mu.Unlock()
		return err
	}

	r = e.recordLocked(ns, p)
	r.Timestamp = e.now().Unix()
	r.Deleted = false
	r.ResidualLen = 0
	r.Residual = [buffer.BlockSize]byte{}
	e.dropLocked(p)

	if err := e.saveLocked(ns); err != nil {
		e.mu.Unlock()
		return err
	}
	out := e.queueRecordLocked(nil, ns, r, nil)
	e.mu.Unlock()

	Logger.Debugf("Created %s", p)
	e.send(out)
	return nil
}

func (e *engine) Read(p string, size int, offset int64) ([]byte, error) {
	ns, err := e.validateFile(p)
	if err != nil {
		return nil, err
	}
	if size < 0 || offset < 0 {
		return nil, store.NewError(store.RetCInvalidOperation, "negative size or offset")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.liveLocked(ns, p)
	if err != nil {
		return nil, err
	}
	entry, err := e.touchLocked(ns, r, true)
	if err != nil {
		return nil, err
	}

	logical := int64(len(entry.buf) - r.ResidualLen)
	offset = min(offset, logical)
	n := min(int64(size), logical-offset)

	data := make([]byte, n)
	copy(data, entry.buf[offset:offset+n])
	return data, nil
}

func (e *engine) Write(p string, data []byte, offset int64) (int, error) {
	ns, err := e.validateFile(p)
	if err != nil {
		return 0, err
	}
	if offset < 0 || offset+int64(len(data)) > MaxFileSize {
		return 0, store.NewError(store.RetCInvalidOperation, "write outside of the supported file size")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.liveLocked(ns, p)
	if err != nil {
		return 0, err
	}
	entry, err := e.touchLocked(ns, r, false)
	if err != nil {
		return 0, err
	}

	logical := len(entry.buf) - r.ResidualLen
	end := int(offset) + len(data)
	if end > logical {
		e.resizeLocked(entry, r, logical, end)
	}
	copy(entry.buf[offset:], data)
	r.Timestamp = e.now().Unix()

	// flush and replication are left to the periodic task
	if err := e.saveLocked(ns); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (e *engine) Truncate(p string, size int64) error {
	ns, err := e.validateFile(p)
	if err != nil {
		return err
	}
	if size < 0 || size > MaxFileSize {
		return store.NewError(store.RetCInvalidOperation, "truncate outside of the supported file size")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.liveLocked(ns, p)
	if err != nil {
		return err
	}
	entry, err := e.touchLocked(ns, r, false)
	if err != nil {
		return err
	}

	e.resizeLocked(entry, r, len(entry.buf)-r.ResidualLen, int(size))
	r.Timestamp = e.now().Unix()
	return e.saveLocked(ns)
}

func (e *engine) Delete(p string) error {
	ns, err := e.validateFile(p)
	if err != nil {
		return err
	}

	e.mu.Lock()
	r, err := e.liveLocked(ns, p)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	if err := os.Remove(e.Resolve(p)); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.mu.Unlock()
		return store.WrapError(store.RetCIOError, "failed to delete "+p, err)
	}
	e.dropLocked(p)

	r.Deleted = true
	r.Timestamp = e.now().Unix()
	if err := e.saveLocked(ns); err != nil {
		e.mu.Unlock()
		return err
	}
	out := e.queueRecordLocked(nil, ns, r, nil)
	e.mu.Unlock()

	Logger.Debugf("Deleted %s", p)
	e.send(out)
	return nil
}

func (e *engine) Rename(from, to string) error {
	ns, err := e.validateFile(from)
	if err != nil {
		return err
	}
	toNs, err := e.validateFile(to)
	if err != nil {
		return err
	}
	if ns != toNs {
		return store.NewError(store.RetCInvalidOperation, "can not move "+from+" to another namespace")
	}
	if from == to {
		return nil
	}

	e.mu.Lock()
	src, err := e.liveLocked(ns, from)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	// the residual of src must match the ciphertext that is moved
	out, err := e.syncLocked(from, nil)
	if err == nil {
		out, err = e.syncLocked(to, out)
	}
	if err != nil {
		e.mu.Unlock()
		e.send(out)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(e.Resolve(to)), 0o755); err != nil {
		e.mu.Unlock()
		e.send(out)
		return store.WrapError(store.RetCIOError, "failed to create parent of "+to, err)
	}
	if err := os.Rename(e.Resolve(from), e.Resolve(to)); err != nil {
		e.mu.Unlock()
		e.send(out)
		return store.WrapError(store.RetCIOError, "failed to rename "+from, err)
	}

	var content []byte
	if entry, ok := e.cache[from]; ok {
		content = entry.buf
	}
	e.dropLocked(from)
	e.dropLocked(to)

	now := e.now().Unix()
	src.Deleted = true
	src.Timestamp = now

	dst := e.recordLocked(ns, to)
	dst.Deleted = false
	dst.Timestamp = now
	dst.ResidualLen = src.ResidualLen
	dst.Residual = src.Residual

	if err := e.saveLocked(ns); err != nil {
		e.mu.Unlock()
		e.send(out)
		return err
	}

	if content == nil {
		if content, err = e.loadLocked(ns, dst); err != nil {
			Logger.Errorf("Failed to load %s for replication: %v", to, err)
		}
	}
	out = e.queueRecordLocked(out, ns, src, nil)
	if content != nil {
		out = e.queueRecordLocked(out, ns, dst, content)
	}
	e.mu.Unlock()

	Logger.Debugf("Renamed %s to %s", from, to)
	e.send(out)
	return nil
}

func (e *engine) Stat(p string) (store.FileInfo, error) {
	ns, err := e.validateFile(p)
	if err != nil {
		return store.FileInfo{}, err
	}
	if err := e.Sync(p); err != nil {
		return store.FileInfo{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r := ns.records[p]
	if r == nil {
		return store.FileInfo{}, store.NewError(store.RetCNotFound, "no file "+p)
	}
	return e.infoLocked(r)
}

func (e *engine) List(dir string) ([]store.FileInfo, error) {
	prefix, err := e.validateDir(dir)
	if err != nil {
		return nil, err
	}
	if err := e.SyncPrefix(prefix); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var files []store.FileInfo
	for _, name := range e.names {
		for _, r := range e.namespaces[name].order {
			if r.Deleted || !strings.HasPrefix(r.Path, prefix) {
				continue
			}
			info, err := e.infoLocked(r)
			if err != nil {
				return nil, err
			}
			files = append(files, info)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (e *engine) Usage() (store.DiskUsage, error) {
	if err := e.SyncPrefix("/"); err != nil {
		return store.DiskUsage{}, err
	}

	stat, err := disk.Usage(e.root)
	if err != nil {
		return store.DiskUsage{}, store.WrapError(store.RetCIOError, "failed to query disk usage", err)
	}
	return store.DiskUsage{
		Total:       stat.Total,
		Free:        stat.Free,
		Used:        stat.Used,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// --------------------------------------------------------------------------
// Helper Methods (all require e.mu)
// --------------------------------------------------------------------------

// liveLocked returns the record of p if it exists and is not a tombstone
func (e *engine) liveLocked(ns *namespace, p string) (*record, error) {
	r := ns.records[p]
	if r == nil || r.Deleted {
		return nil, store.NewError(store.RetCNotFound, "no file "+p)
	}
	return r, nil
}

// recordLocked returns the record of p, inserting an empty one if needed
func (e *engine) recordLocked(ns *namespace, p string) *record {
	if r, ok := ns.records[p]; ok {
		return r
	}
	r := &record{Path: p}
	ns.records[p] = r
	ns.order = append(ns.order, r)
	return r
}

// resizeLocked changes the logical length of a cached file from logical to
// size. Bytes between the old and the new length read as zero.
func (e *engine) resizeLocked(entry *cacheEntry, r *record, logical, size int) {
	entry.buf = buffer.Resize(entry.buf, buffer.PaddedLen(size))
	if size > logical {
		clear(entry.buf[logical:])
	} else {
		clear(entry.buf[size:])
	}
	r.ResidualLen = len(entry.buf) - size
}

// infoLocked describes a record
func (e *engine) infoLocked(r *record) (store.FileInfo, error) {
	info := store.FileInfo{Path: r.Path, Timestamp: r.Timestamp, Deleted: r.Deleted}
	if r.Deleted {
		return info, nil
	}

	if entry, ok := e.cache[r.Path]; ok {
		info.Size = int64(len(entry.buf) - r.ResidualLen)
		return info, nil
	}

	// the backing file holds exactly the logical length
	fi, err := os.Stat(e.Resolve(r.Path))
	if errors.Is(err, os.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, store.WrapError(store.RetCIOError, "failed to stat "+r.Path, err)
	}
	info.Size = fi.Size()
	return info, nil
}

// createBackingFile creates an empty backing file and its parent directories
func (e *engine) createBackingFile(p string) error {
	name := e.Resolve(p)
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return store.WrapError(store.RetCIOError, "failed to create parent of "+p, err)
	}
	if err := writeFile(name, nil); err != nil {
		return store.WrapError(store.RetCIOError, "failed to create "+p, err)
	}
	return nil
}
