// Package client implements the client side of the dFS remote access API.
// NewRPCStore returns a store.IStore that forwards every call to a running
// daemon, so the CLI and other tools can work with the same interface no
// matter whether they own the store or talk to a daemon.
//
// Usage Example:
//
//	config := common.DefaultClientConfig("/run/dfs.sock")
//	s, err := client.NewRPCStore(config, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  return err
//	}
//	defer s.Close()
//
//	if err := s.Create("/docs/a.txt"); err != nil && !errors.Is(err, store.ErrExists) {
//	  return err
//	}
//	_, err = s.Write("/docs/a.txt", []byte("hello"), 0)
//
// Error Handling:
//
//	Errors of the remote store arrive as *store.Error with their original
//	return code. Transport failures are reported with RetCIOError. The path
//	queries (IsAccessible, IsTopLevel, Resolve, Namespaces) can not return an
//	error; they log it and return the zero value.
//
// Thread Safety:
//
//	The client is safe for concurrent use. Concurrent requests share the
//	connections of the transport and are correlated by request ID.
package client
