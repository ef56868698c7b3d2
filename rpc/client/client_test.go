package client

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dFS/lib/crypt"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/lib/store/fstore"
	storetesting "github.com/ValentinKolb/dFS/lib/store/testing"
	replcommon "github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport/mem"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/server"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/ValentinKolb/dFS/rpc/transport/http"
	"github.com/ValentinKolb/dFS/rpc/transport/tcp"
	"github.com/ValentinKolb/dFS/rpc/transport/unix"
	"github.com/stretchr/testify/require"
)

// testTransport is one client/server transport pair
type testTransport struct {
	server   func() transport.IRPCServerTransport
	client   func() transport.IRPCClientTransport
	endpoint func(t testing.TB) string
}

var testTransports = map[string]testTransport{
	"unix": {
		server:   unix.NewUnixDefaultServerTransport,
		client:   unix.NewUnixClientTransport,
		endpoint: socketPath,
	},
	"tcp": {
		server:   tcp.NewTCPDefaultServerTransport,
		client:   tcp.NewTCPClientTransport,
		endpoint: freeAddr,
	},
	"http": {
		server:   http.NewHttpServerTransport,
		client:   http.NewHttpClientTransport,
		endpoint: freeAddr,
	},
}

var testSerializers = map[string]func() serializer.IRPCSerializer{
	"binary": serializer.NewBinarySerializer,
	"json":   serializer.NewJSONSerializer,
	"gob":    serializer.NewGOBSerializer,
}

func Test(t *testing.T) {
	for tName, tr := range testTransports {
		for sName, ser := range testSerializers {
			storetesting.RunStoreTests(t, "RemoteStore/"+tName+"/"+sName, func(root string) store.IStore {
				return newRemoteStore(t, root, tr, ser())
			})
		}
	}
}

func Benchmark(b *testing.B) {
	for tName, tr := range testTransports {
		storetesting.RunStoreBenchmarks(b, "RemoteStore/"+tName, func(root string) store.IStore {
			return newRemoteStore(b, root, tr, serializer.NewBinarySerializer())
		})
	}
}

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

// remoteStore is a client whose Close also stops the server and the store
type remoteStore struct {
	store.IStore
	srv   *server.RPCServer
	local store.IStore
	done  chan error
}

func (r *remoteStore) Close() error {
	clientErr := r.IStore.Close()
	srvErr := r.srv.Close()
	if err := <-r.done; err != nil && srvErr == nil {
		srvErr = err
	}
	return errors.Join(clientErr, srvErr, r.local.Close())
}

func testEngineConfig(t testing.TB, root string) replcommon.EngineConfig {
	ns, err := crypt.ParseNamespaces([]string{storetesting.NamespaceA + ":p1", storetesting.NamespaceB + ":p2"})
	require.NoError(t, err)
	return replcommon.DefaultEngineConfig(root, ns)
}

// newRemoteStore starts a file store behind an rpc server and connects a client
func newRemoteStore(t testing.TB, root string, tr testTransport, ser serializer.IRPCSerializer) store.IStore {
	local, err := fstore.NewFileStore(testEngineConfig(t, root), mem.NewHub().NewTransport())
	require.NoError(t, err)

	endpoint := tr.endpoint(t)
	srv := server.NewRPCServer(common.DefaultServerConfig(endpoint), tr.server(), ser, local)
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	// the listener comes up asynchronously
	var remote store.IStore
	require.Eventually(t, func() bool {
		remote, err = NewRPCStore(common.DefaultClientConfig(endpoint), tr.client(), ser)
		if err != nil {
			return false
		}
		// http connects lazily, one request proves the server is up
		if _, err = remote.Usage(); err != nil {
			remote.Close()
			return false
		}
		return true
	}, 5*time.Second, 20*time.Millisecond, "server on %s did not come up", endpoint)

	return &remoteStore{IStore: remote, srv: srv, local: local, done: done}
}

// socketPath returns a short socket path, t.TempDir can exceed the limit of
// unix socket paths
func socketPath(t testing.TB) string {
	dir, err := os.MkdirTemp("", "dfs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "rpc.sock")
}

// freeAddr returns a loopback address with a currently unused port
func freeAddr(t testing.TB) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

// --------------------------------------------------------------------------
// Client specific tests
// --------------------------------------------------------------------------

func TestRemoteErrorsKeepTheirCode(t *testing.T) {
	s := newRemoteStore(t, t.TempDir(), testTransports["unix"], serializer.NewBinarySerializer())
	defer s.Close()

	require.NoError(t, s.Create("/docs/a.txt"))

	err := s.Create("/docs/a.txt")
	require.ErrorIs(t, err, store.ErrExists)
	var se *store.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, store.RetCExists, se.Code)

	_, err = s.Read("/docs/missing", 1, 0)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.List("/unknown")
	require.ErrorIs(t, err, store.ErrAccessDenied)
}

func TestRemoteEvictOfDirtyEntryFailsTheRequest(t *testing.T) {
	local, err := fstore.NewFileStore(testEngineConfig(t, t.TempDir()), mem.NewHub().NewTransport())
	require.NoError(t, err)
	defer local.Close()

	endpoint := socketPath(t)
	srv := server.NewRPCServer(common.DefaultServerConfig(endpoint), unix.NewUnixDefaultServerTransport(), serializer.NewBinarySerializer(), local)
	go srv.Serve()
	defer srv.Close()

	var remote store.IStore
	require.Eventually(t, func() bool {
		remote, err = NewRPCStore(common.DefaultClientConfig(endpoint), unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	defer remote.Close()

	require.NoError(t, remote.Create("/docs/dirty.txt"))
	_, err = remote.Write("/docs/dirty.txt", []byte("unflushed"), 0)
	require.NoError(t, err)

	// the panic is recovered on the server, the daemon keeps serving
	rpc := remote.(*rpcStore)
	_, err = rpc.invoke(common.NewPathRequest(common.MsgTFSEvict, "/docs/dirty.txt"))
	require.ErrorIs(t, err, store.ErrInternal)

	data, err := remote.Read("/docs/dirty.txt", 100, 0)
	require.NoError(t, err)
	require.Equal(t, "unflushed", string(data))
}

func TestConnectWithoutServerFails(t *testing.T) {
	config := common.DefaultClientConfig(socketPath(t))
	_, err := NewRPCStore(config, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
	require.ErrorIs(t, err, store.ErrIO)
}

func TestClientSurvivesServerRestart(t *testing.T) {
	local, err := fstore.NewFileStore(testEngineConfig(t, t.TempDir()), mem.NewHub().NewTransport())
	require.NoError(t, err)
	defer local.Close()

	endpoint := socketPath(t)
	start := func() *server.RPCServer {
		srv := server.NewRPCServer(common.DefaultServerConfig(endpoint), unix.NewUnixDefaultServerTransport(), serializer.NewBinarySerializer(), local)
		go srv.Serve()
		return srv
	}

	srv := start()
	var remote store.IStore
	require.Eventually(t, func() bool {
		remote, err = NewRPCStore(common.DefaultClientConfig(endpoint), unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	defer remote.Close()
	require.NoError(t, remote.Create("/docs/a.txt"))

	require.NoError(t, srv.Close())
	srv = start()
	defer srv.Close()

	// the connection is redialed in the background
	require.Eventually(t, func() bool {
		_, err := remote.Stat("/docs/a.txt")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
}
