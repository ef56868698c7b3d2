package client

import (
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends a request and returns the response.
// Transport and encoding failures are reported as RetCIOError, errors of the
// remote store keep their return code. The type of the response must match
// the type of the request.
func (c *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "failed to serialize request", err)
	}

	respBytes, err := c.transport.Send(reqBytes)
	if err != nil {
		return nil, store.WrapError(store.RetCIOError, "rpc request failed", err)
	}

	resp := &common.Message{}
	if err := c.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, store.WrapError(store.RetCIOError, "failed to deserialize response", err)
	}

	if err := resp.AsError(); err != nil {
		return nil, err
	}

	if resp.MsgType != req.MsgType {
		return nil, store.NewError(store.RetCInternalError,
			"unexpected message type "+resp.MsgType.String()+", expected "+req.MsgType.String())
	}

	return resp, nil
}
