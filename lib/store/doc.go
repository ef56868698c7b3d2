// Package store provides the interface between the encrypted, replicated file
// store and the layers that expose it (a filesystem binding or the CLI), along
// with unified error handling.
//
// The package focuses on:
//   - A unified interface (IStore) for file operations on namespaced paths
//   - Structured errors that map to errno values for filesystem bindings
//
// Key Components:
//
//   - IStore Interface: path policy (IsAccessible, IsTopLevel, Resolve), CRUD
//     operations on files and the synchronization hooks (Sync, SyncPrefix,
//     Evict) a binding has to call around metadata observing and destructive
//     operations.
//
//   - Error System: A structured error reporting mechanism using typed return
//     codes and descriptive messages. errors.Is works against the sentinel
//     values (ErrNotFound, ErrExists, ...) and the underlying I/O error stays
//     reachable through errors.Unwrap.
//
// Implementations:
//
//	- File Store (fstore): keeps each namespace as a directory of ciphertext
//	  files, caches decrypted contents with write-back semantics and replicates
//	  every change over a broadcast transport.
//	  Available in the "github.com/ValentinKolb/dFS/lib/store/fstore" package.
//
//	- Remote Store (rpc/client): forwards every operation to a running daemon
//	  through its remote access API.
//	  Available in the "github.com/ValentinKolb/dFS/rpc/client" package.
package store
