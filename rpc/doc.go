// Package rpc provides the remote access API of the dFS daemon. It lets
// clients on the same machine or in the network operate on the files of a
// running daemon without opening the store root themselves.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol and the client and server configuration.
//
//   - transport: network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, HTTP).
//
//   - serializer: message serialization (Binary, JSON, GOB).
//
//   - client: a store.IStore implementation that forwards every call to a
//     daemon.
//
//   - server: exposes a store.IStore over a transport.
//
// The API carries decrypted file contents. It is meant for trusted networks
// or the unix socket transport, which restricts access to the daemon user.
package rpc
