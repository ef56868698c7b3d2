package client

import (
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
)

// NewRPCStore connects the transport and returns a store.IStore that
// forwards every operation to the daemon behind it.
//
// Close only closes the transport, the remote store keeps running.
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, store.WrapError(store.RetCIOError, "failed to connect", err)
	}

	return &rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IStore)
// --------------------------------------------------------------------------

// The path queries can not fail in the interface. A failed request is
// logged and answered conservatively.

func (s *rpcStore) IsAccessible(path string) bool {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSIsAccessible, path))
	if err != nil {
		Logger.Warningf("IsAccessible(%s) failed: %v", path, err)
		return false
	}
	return resp.Ok
}

func (s *rpcStore) IsTopLevel(path string) bool {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSIsTopLevel, path))
	if err != nil {
		Logger.Warningf("IsTopLevel(%s) failed: %v", path, err)
		return false
	}
	return resp.Ok
}

func (s *rpcStore) Resolve(path string) string {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSResolve, path))
	if err != nil {
		Logger.Warningf("Resolve(%s) failed: %v", path, err)
		return ""
	}
	return resp.Path
}

func (s *rpcStore) Namespaces() []string {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSNamespaces, ""))
	if err != nil {
		Logger.Warningf("Namespaces() failed: %v", err)
		return nil
	}
	return resp.Names
}

func (s *rpcStore) Create(path string) error {
	_, err := s.invoke(common.NewPathRequest(common.MsgTFSCreate, path))
	return err
}

func (s *rpcStore) Read(path string, size int, offset int64) ([]byte, error) {
	resp, err := s.invoke(common.NewReadRequest(path, size, offset))
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []byte{}, nil
	}
	return resp.Data, nil
}

func (s *rpcStore) Write(path string, data []byte, offset int64) (int, error) {
	resp, err := s.invoke(common.NewWriteRequest(path, data, offset))
	if err != nil {
		return 0, err
	}
	return int(resp.Size), nil
}

func (s *rpcStore) Truncate(path string, size int64) error {
	_, err := s.invoke(common.NewTruncateRequest(path, size))
	return err
}

func (s *rpcStore) Delete(path string) error {
	_, err := s.invoke(common.NewPathRequest(common.MsgTFSDelete, path))
	return err
}

func (s *rpcStore) Rename(from, to string) error {
	_, err := s.invoke(common.NewRenameRequest(from, to))
	return err
}

func (s *rpcStore) Stat(path string) (store.FileInfo, error) {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSStat, path))
	if err != nil {
		return store.FileInfo{}, err
	}
	if len(resp.Files) != 1 {
		return store.FileInfo{}, store.NewError(store.RetCInternalError, "stat response without file info")
	}
	return resp.Files[0], nil
}

func (s *rpcStore) List(dir string) ([]store.FileInfo, error) {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSList, dir))
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

func (s *rpcStore) Sync(path string) error {
	_, err := s.invoke(common.NewPathRequest(common.MsgTFSSync, path))
	return err
}

func (s *rpcStore) SyncPrefix(prefix string) error {
	_, err := s.invoke(common.NewPathRequest(common.MsgTFSSyncPrefix, prefix))
	return err
}

func (s *rpcStore) Evict(path string) {
	if _, err := s.invoke(common.NewPathRequest(common.MsgTFSEvict, path)); err != nil {
		Logger.Warningf("Evict(%s) failed: %v", path, err)
	}
}

func (s *rpcStore) Usage() (store.DiskUsage, error) {
	resp, err := s.invoke(common.NewPathRequest(common.MsgTFSUsage, ""))
	if err != nil {
		return store.DiskUsage{}, err
	}
	return resp.Usage, nil
}

func (s *rpcStore) Close() error {
	return s.transport.Close()
}
