package fs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/spf13/cobra"
)

// readChunk is the size of the pieces cat reads
const readChunk = 64 * 1024

var (
	lsCmd = &cobra.Command{
		Use:   "ls [dir]",
		Short: "Lists the files below a directory (default /)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withStore(func(args []string) error {
			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := fileStore.List(dir)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Printf("%12d  %s  %s\n", f.Size, formatTime(f.Timestamp), f.Path)
			}
			return nil
		}),
	}
	catCmd = &cobra.Command{
		Use:   "cat [path]",
		Short: "Writes the content of a file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(args []string) error {
			for offset := int64(0); ; {
				data, err := fileStore.Read(args[0], readChunk, offset)
				if err != nil {
					return err
				}
				if len(data) == 0 {
					return nil
				}
				if _, err := os.Stdout.Write(data); err != nil {
					return err
				}
				offset += int64(len(data))
			}
		}),
	}
	putCmd = &cobra.Command{
		Use:   "put [path] [source]",
		Short: "Replaces the content of a file with a local file (or stdin if source is - or missing)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withStore(func(args []string) error {
			var src io.Reader = os.Stdin
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}
			data, err := io.ReadAll(src)
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}

			p := args[0]
			if err := fileStore.Create(p); err != nil && !errors.Is(err, store.ErrExists) {
				return err
			}
			if err := fileStore.Truncate(p, 0); err != nil {
				return err
			}
			if _, err := fileStore.Write(p, data, 0); err != nil {
				return err
			}
			if err := fileStore.Sync(p); err != nil {
				return err
			}
			fmt.Printf("wrote %d bytes to %s\n", len(data), p)
			return nil
		}),
	}
	rmCmd = &cobra.Command{
		Use:   "rm [path]",
		Short: "Deletes a file",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(args []string) error {
			if err := fileStore.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		}),
	}
	mvCmd = &cobra.Command{
		Use:   "mv [from] [to]",
		Short: "Renames a file inside its namespace",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(args []string) error {
			if err := fileStore.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("renamed successfully")
			return nil
		}),
	}
	statCmd = &cobra.Command{
		Use:   "stat [path]",
		Short: "Prints the metadata of a file, including tombstones",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(args []string) error {
			info, err := fileStore.Stat(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Path:     %s\n", info.Path)
			fmt.Printf("Size:     %d\n", info.Size)
			fmt.Printf("Modified: %s (%d)\n", formatTime(info.Timestamp), info.Timestamp)
			fmt.Printf("Deleted:  %t\n", info.Deleted)
			fmt.Printf("Backing:  %s\n", fileStore.Resolve(info.Path))
			return nil
		}),
	}
	namespacesCmd = &cobra.Command{
		Use:   "namespaces",
		Short: "Lists the configured namespaces",
		Args:  cobra.NoArgs,
		RunE: withStore(func(_ []string) error {
			for _, name := range fileStore.Namespaces() {
				fmt.Println(name)
			}
			return nil
		}),
	}
	dfCmd = &cobra.Command{
		Use:   "df",
		Short: "Prints the disk usage of the store root",
		Args:  cobra.NoArgs,
		RunE: withStore(func(_ []string) error {
			usage, err := fileStore.Usage()
			if err != nil {
				return err
			}
			fmt.Printf("Total: %d\nUsed:  %d (%.1f%%)\nFree:  %d\n", usage.Total, usage.Used, usage.UsedPercent, usage.Free)
			return nil
		}),
	}
)

func formatTime(ts int64) string {
	return time.Unix(ts, 0).Format(time.RFC3339)
}
