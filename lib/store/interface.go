package store

import (
	"fmt"
	"syscall"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// FileInfo describes one file of a namespace
type FileInfo struct {
	Path      string // absolute store path, e.g. /docs/a.txt
	Size      int64  // logical length in bytes
	Timestamp int64  // last modification (unix seconds)
	Deleted   bool   // tombstone
}

// DiskUsage is the space information of the volume the store lives on
type DiskUsage struct {
	Total       uint64
	Free        uint64
	Used        uint64
	UsedPercent float64
}

// IStore is the contract between the encrypted file store and a binding layer
// (a FUSE adapter or the CLI). Paths are absolute, slash separated and start
// with the namespace name, e.g. "/docs/notes/a.txt".
//
// All operations return a *Error on failure. The binding must call Sync or
// SyncPrefix before it observes the backing files (attribute queries,
// directory listings, space queries) and Evict after destructive operations.
type IStore interface {
	// IsAccessible returns true for "/" and for paths whose first segment is a
	// configured namespace.
	IsAccessible(path string) bool
	// IsTopLevel returns true for "/" and for bare namespace roots. Those must
	// not be created, deleted or renamed.
	IsTopLevel(path string) bool
	// Resolve returns the absolute path of the backing ciphertext file
	Resolve(path string) string
	// Namespaces returns the names of all configured namespaces
	Namespaces() []string

	// Create creates an empty file. Fails with RetCExists for live files.
	Create(path string) (err error)
	// Read returns up to size bytes starting at offset. Reads past the end of
	// the file are short or empty, never an error.
	Read(path string, size int, offset int64) (data []byte, err error)
	// Write writes data at offset and extends the file when needed. The
	// ciphertext flush and the replication are deferred.
	Write(path string, data []byte, offset int64) (n int, err error)
	// Truncate sets the logical length of a file
	Truncate(path string, size int64) (err error)
	// Delete removes a file and leaves a tombstone
	Delete(path string) (err error)
	// Rename moves a file within its namespace
	Rename(from, to string) (err error)
	// Stat returns the metadata of a file, including tombstones
	Stat(path string) (info FileInfo, err error)
	// List returns the live files below a directory, sorted by path
	List(dir string) (files []FileInfo, err error)

	// Sync flushes the cache entry of path to disk if it is dirty and
	// replicates the new content
	Sync(path string) (err error)
	// SyncPrefix applies Sync to every cached path below prefix
	SyncPrefix(prefix string) (err error)
	// Evict drops the clean cache entry of path. Evicting a dirty entry is a
	// fatal invariant violation.
	Evict(path string)
	// Usage returns the disk usage of the store root
	Usage() (usage DiskUsage, err error)

	// Close stops the background tasks, flushes all dirty entries and closes
	// the transport
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same code, which makes the
// sentinel values usable with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Errno maps the return code to the errno a filesystem binding should report
func (e *Error) Errno() syscall.Errno {
	switch e.Code {
	case RetCSuccess:
		return 0
	case RetCNotFound:
		return syscall.ENOENT
	case RetCExists:
		return syscall.EEXIST
	case RetCAccessDenied:
		return syscall.EACCES
	case RetCInvalidPath, RetCInvalidOperation:
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error that keeps err as its cause
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// Sentinel errors for errors.Is
var (
	ErrNotFound         = &Error{Code: RetCNotFound}
	ErrExists           = &Error{Code: RetCExists}
	ErrAccessDenied     = &Error{Code: RetCAccessDenied}
	ErrInvalidPath      = &Error{Code: RetCInvalidPath}
	ErrInvalidOperation = &Error{Code: RetCInvalidOperation}
	ErrIO               = &Error{Code: RetCIOError}
	ErrInternal         = &Error{Code: RetCInternalError}
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation, e.g. a rename across namespaces.
	RetCNotFound                        // 3: No live file at this path.
	RetCExists                          // 4: A live file already exists at this path.
	RetCAccessDenied                    // 5: The path is not inside a configured namespace.
	RetCInvalidPath                     // 6: The path is malformed or reserved.
	RetCIOError                         // 7: Reading or writing a backing file failed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCExists:
		return "Exists"
	case RetCAccessDenied:
		return "AccessDenied"
	case RetCInvalidPath:
		return "InvalidPath"
	case RetCIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}
