// Package cmd implements the command-line interface for dFS. It provides a
// hierarchical command structure with operations for running the daemon and
// for one-shot file operations on a store.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the dFS daemon
//   - fs: Commands for file operations (ls, cat, put, rm, mv, stat, ...)
//   - util: Shared flags and configuration handling (internal use)
//
// All settings can be given as flags or as DFS_<FLAG> environment variables,
// .env and .env.local in the working directory are loaded at start.
//
// See dfs -help for a list of all commands.
package cmd
