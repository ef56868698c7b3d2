package fs

import (
	"time"

	"github.com/ValentinKolb/dFS/cmd/util"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/lib/store/fstore"
	"github.com/ValentinKolb/dFS/replication/common"
	"github.com/ValentinKolb/dFS/replication/transport/udp"
	"github.com/ValentinKolb/dFS/rpc/client"
	rpccommon "github.com/ValentinKolb/dFS/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cli")

var (
	fileStore store.IStore
	config    common.EngineConfig

	// remote is set if the commands run against a daemon
	remote       bool
	clientConfig rpccommon.ClientConfig

	// FileCommands represents the fs command group
	FileCommands = &cobra.Command{
		Use:   "fs",
		Short: "Perform file operations on a store",
		Long: `Perform one file operation on a store. With --transport-endpoints the
operation is sent to a running daemon through its remote access API.
Otherwise the command opens the store below --root like the daemon does, takes
part in replication while it runs and flushes everything before it exits. Do
not open a root that is served by a running daemon.`,
		PersistentPreRunE: openStore,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common store flags to the fs command
	util.SetupStoreFlags(FileCommands)
	util.SetupRPCClientFlags(FileCommands)

	key := "settle"
	FileCommands.PersistentFlags().Duration(key, 0, util.WrapString("Wait this long after opening the store so peers can replay their files before the operation runs"))

	// Add subcommands
	FileCommands.AddCommand(lsCmd)
	FileCommands.AddCommand(catCmd)
	FileCommands.AddCommand(putCmd)
	FileCommands.AddCommand(rmCmd)
	FileCommands.AddCommand(mvCmd)
	FileCommands.AddCommand(statCmd)
	FileCommands.AddCommand(namespacesCmd)
	FileCommands.AddCommand(dfCmd)
	FileCommands.AddCommand(perfTestCmd)
}

// openStore reads the configuration and opens the file store
func openStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	if clientConfig = util.GetClientConfig(); len(clientConfig.Transport.Endpoints) > 0 {
		remote = true
		return openRemoteStore()
	}

	var err error
	if config, err = util.GetEngineConfig(); err != nil {
		return err
	}
	if fileStore, err = fstore.NewFileStore(config, udp.NewUDPTransport()); err != nil {
		return err
	}

	if settle := viper.GetDuration("settle"); settle > 0 {
		Logger.Debugf("Waiting %s for peers", settle)
		time.Sleep(settle)
	}
	return nil
}

// openRemoteStore connects to the daemon behind the configured endpoints
func openRemoteStore() error {
	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}
	ser, err := util.GetSerializer()
	if err != nil {
		return err
	}

	Logger.Debugf("Connecting to %v", clientConfig.Transport.Endpoints)
	fileStore, err = client.NewRPCStore(clientConfig, t, ser)
	return err
}

// withStore runs fn and closes the store afterwards, also if fn fails
func withStore(fn func(args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		err := fn(args)
		if closeErr := fileStore.Close(); closeErr != nil {
			Logger.Errorf("Failed to close store: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
		return err
	}
}
