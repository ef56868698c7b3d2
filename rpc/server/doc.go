// Package server implements the server side of the dFS remote access API.
// It exposes one store.IStore (usually the encrypted file store of the
// daemon) through any IRPCServerTransport and IRPCSerializer.
//
// Key Components:
//
//   - IRPCServerAdapter: maps a request Message to a call on a store.IStore
//     and builds the response. NewIStoreServerAdapter covers every IStore
//     operation.
//
//   - RPCServer: ties transport, serializer and adapter together. Serve blocks
//     until Close. Every request is timed in the
//     dfs_rpc_request_duration_seconds summary.
//
// Usage Example:
//
//	config := common.DefaultServerConfig("127.0.0.1:7600")
//	srv := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	  fileStore,
//	)
//	go srv.Serve()
//	defer srv.Close()
//
// Error Handling:
//
//	Store errors travel with their return code. A panic inside the store
//	(for example evicting a dirty cache entry) is recovered, logged and
//	reported to the client as an internal error.
//
// Thread Safety:
//
//	Requests are handled concurrently. The store must be safe for concurrent
//	use, which the file store is.
package server
