// Package unix implements the Unix domain socket transport of the dFS remote
// access API. It is the default for `dfs fs --endpoint` on the machine that
// runs the daemon.
//
// This package extends the base transport layer with Unix socket-specific
// connectors and inherits connection pooling and request correlation from
// the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Replaces a stale socket file, listens and restricts
//     the socket to the owner of the daemon (mode 0600)
//
// The default buffer size is 64 KB, which matches the write size of most
// local clients.
package unix
