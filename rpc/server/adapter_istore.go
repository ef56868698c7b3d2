package server

import (
	"fmt"
	"math"

	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
)

// NewIStoreServerAdapter creates the adapter that maps every message type
// to the store.IStore method of the same name
func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {

	// file operations
	case common.MsgTFSCreate:
		return common.NewResponse(req.MsgType, s.Create(req.Path))
	case common.MsgTFSRead:
		if req.Size > math.MaxInt32 {
			req.Size = math.MaxInt32
		}
		data, err := s.Read(req.Path, int(req.Size), req.Offset)
		return common.NewReadResponse(data, err)
	case common.MsgTFSWrite:
		n, err := s.Write(req.Path, req.Data, req.Offset)
		return common.NewWriteResponse(n, err)
	case common.MsgTFSTruncate:
		return common.NewResponse(req.MsgType, s.Truncate(req.Path, req.Size))
	case common.MsgTFSDelete:
		return common.NewResponse(req.MsgType, s.Delete(req.Path))
	case common.MsgTFSRename:
		return common.NewResponse(req.MsgType, s.Rename(req.Path, req.To))
	case common.MsgTFSStat:
		info, err := s.Stat(req.Path)
		return common.NewStatResponse(info, err)
	case common.MsgTFSList:
		files, err := s.List(req.Path)
		return common.NewListResponse(files, err)
	case common.MsgTFSSync:
		return common.NewResponse(req.MsgType, s.Sync(req.Path))
	case common.MsgTFSSyncPrefix:
		return common.NewResponse(req.MsgType, s.SyncPrefix(req.Path))
	case common.MsgTFSEvict:
		s.Evict(req.Path)
		return common.NewResponse(req.MsgType, nil)
	case common.MsgTFSUsage:
		usage, err := s.Usage()
		return common.NewUsageResponse(usage, err)

	// path queries
	case common.MsgTFSIsAccessible:
		return common.NewOkResponse(req.MsgType, s.IsAccessible(req.Path))
	case common.MsgTFSIsTopLevel:
		return common.NewOkResponse(req.MsgType, s.IsTopLevel(req.Path))
	case common.MsgTFSResolve:
		return common.NewResolveResponse(s.Resolve(req.Path))
	case common.MsgTFSNamespaces:
		return common.NewNamespacesResponse(s.Namespaces())

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
