package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dFS/cmd/util"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/lib/store/fstore"
	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport/udp"
	rpccommon "github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var Logger = logger.GetLogger("daemon")

var (
	serveCmdConfig common.EngineConfig
	apiConfig      rpccommon.ServerConfig
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dFS daemon",
		Long:    `Start the dFS daemon with the specified configuration. The daemon keeps the namespaces below the root directory encrypted on disk and replicates every change to the peers on the broadcast domain. The configuration can be set via command line flags or environment variables. The format of the environment variables is DFS_<flag> (e.g. DFS_FLUSH_AFTER=5s)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupStoreFlags(ServeCmd)
	cmdUtil.SetupRPCServerFlags(ServeCmd)

	key := "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address on which the prometheus metrics are served under /metrics (e.g. localhost:9100), empty disables the endpoint"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the engine configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	config, err := cmdUtil.GetEngineConfig()
	if err != nil {
		return err
	}
	serveCmdConfig = config
	apiConfig = cmdUtil.GetServerConfig()

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the daemon and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	fmt.Print(serveCmdConfig.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := fstore.NewFileStore(serveCmdConfig, udp.NewUDPTransport())
	if err != nil {
		return err
	}
	Logger.Infof("Serving namespaces %v from %s", s.Namespaces(), serveCmdConfig.RootDir)

	var metricsServer *http.Server
	if serveCmdConfig.MetricsEndpoint != "" {
		metricsServer = startMetrics(serveCmdConfig.MetricsEndpoint)
	}

	var api *server.RPCServer
	if apiConfig.Transport.Endpoint != "" {
		if api, err = startAPI(s); err != nil {
			return errors.Join(err, s.Close())
		}
	}

	<-ctx.Done()
	Logger.Infof("Shutting down")

	// requests need the store, the api goes first
	if api != nil {
		if err := api.Close(); err != nil {
			Logger.Warningf("Failed to stop remote access API: %v", err)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			Logger.Warningf("Failed to stop metrics endpoint: %v", err)
		}
	}

	return s.Close()
}

// startAPI serves the store through the remote access API in the background
func startAPI(s store.IStore) (*server.RPCServer, error) {
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return nil, err
	}
	ser, err := cmdUtil.GetSerializer()
	if err != nil {
		return nil, err
	}
	if err := apiConfig.Validate(); err != nil {
		return nil, err
	}
	fmt.Print(apiConfig.String())

	api := server.NewRPCServer(apiConfig, t, ser, s)
	go func() {
		if err := api.Serve(); err != nil {
			Logger.Errorf("Remote access API stopped: %v", err)
		}
	}()
	return api, nil
}

// startMetrics serves the prometheus metrics on addr in the background
func startMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		Logger.Infof("Serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics endpoint stopped: %v", err)
		}
	}()
	return srv
}
