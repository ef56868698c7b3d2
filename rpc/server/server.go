package server

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

var (
	requestErrorsTotal = metrics.NewCounter(`dfs_rpc_request_errors_total`)
	requestPanicsTotal = metrics.NewCounter(`dfs_rpc_request_panics_total`)
)

// requestDuration returns the latency summary of one message type
func requestDuration(t common.MessageType) *metrics.Summary {
	return metrics.GetOrCreateSummary(fmt.Sprintf(`dfs_rpc_request_duration_seconds{type=%q}`, t.String()))
}

// RPCServer exposes one store.IStore through a transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      store.IStore
	adapter    IRPCServerAdapter
}

// NewRPCServer creates a new RPC server for s
// It takes a config, transport and serializer as parameters. The server does
// not own s, closing the server leaves the store open.
//
// Usage:
//
//	srv := server.NewRPCServer(
//		common.DefaultServerConfig("/run/dfs.sock"),
//		unix.NewUnixDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//		fileStore,
//	)
//
//	go func() {
//		if err := srv.Serve(); err != nil {
//			panic(err)
//		}
//	}()
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	s store.IStore,
) *RPCServer {
	srv := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		store:      s,
		adapter:    NewIStoreServerAdapter(),
	}
	transport.RegisterHandler(srv.handle)
	return srv
}

// Serve starts the transport layer and blocks until Close is called
func (s *RPCServer) Serve() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid rpc config: %w", err)
	}
	Logger.Infof("Serving the store on %s", s.config.Transport.Endpoint)
	return s.transport.Listen(s.config)
}

// Close stops the transport and waits for running requests
func (s *RPCServer) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle decodes one request, lets the adapter execute it and encodes the
// response. It is called concurrently by the transport.
func (s *RPCServer) handle(req []byte) []byte {
	var msg common.Message
	var resp *common.Message

	if err := s.serializer.Deserialize(req, &msg); err != nil {
		resp = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		start := time.Now()
		resp = s.execute(&msg)
		requestDuration(msg.MsgType).UpdateDuration(start)
	}
	if resp.Err != "" {
		requestErrorsTotal.Inc()
		Logger.Debugf("%s %s failed: %s", msg.MsgType, msg.Path, resp.Err)
	}

	val, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("Failed to serialize %s response: %v", resp.MsgType, err)
		// the error response only carries strings and can always be encoded
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// execute runs the request against the store. A violated store invariant
// (like evicting a dirty entry) fails the request instead of the daemon.
func (s *RPCServer) execute(msg *common.Message) (resp *common.Message) {
	defer func() {
		if r := recover(); r != nil {
			requestPanicsTotal.Inc()
			Logger.Errorf("Request %s %s panicked: %v", msg.MsgType, msg.Path, r)
			resp = common.NewErrorResponse(fmt.Sprintf("request failed: %v", r))
		}
	}()
	return s.adapter.Handle(msg, s.store)
}
