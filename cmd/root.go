package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dFS/cmd/fs"
	"github.com/ValentinKolb/dFS/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dfs",
		Short: "encrypted, replicated file store",
		Long: fmt.Sprintf(`dFS (v%s)

A file store written in Go that keeps every namespace encrypted on disk and
replicates changes to its peers with authenticated UDP broadcasts.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dFS",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dFS v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(fs.FileCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
