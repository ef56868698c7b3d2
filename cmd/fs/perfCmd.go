package fs

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dFS/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for a dFS store",
		Long:    "Runs write, read and flush benchmarks in a scratch directory of a namespace. Every flushed file is replicated, so peers on the broadcast domain receive the benchmark files as well.",
		RunE:    withStore(runPerf),
		PreRunE: processPerfConfig,
	}
	perfDir              = "__perf"
	perfNamespace        = ""
	perfLargeValueSizeKB = 1000
	perfFiles            = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. write,read)"))
	key = "perf-namespace"
	perfTestCmd.Flags().String(key, "", util.WrapString("Namespace to run the benchmarks in (default: the first configured namespace)"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the file for the write-large and sync tests should be (in KB)"))
	key = "files"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different files to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		_ = fileStore.Close()
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfFiles = max(viper.GetInt("files"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	perfNamespace = viper.GetString("perf-namespace")
	namespaces := fileStore.Namespaces()
	if perfNamespace == "" && len(namespaces) > 0 {
		perfNamespace = namespaces[0]
	}
	if !slices.Contains(namespaces, perfNamespace) {
		// the store is already open, the run function would close it
		_ = fileStore.Close()
		return fmt.Errorf("namespace %s is not configured", perfNamespace)
	}
	return nil
}

func runPerf(_ []string) error {
	fmt.Println("Performance testing tool for a dFS store")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	if remote {
		fmt.Print(clientConfig.String())
	} else {
		fmt.Print(config.String())
	}
	fmt.Printf("Namespace: %s, Files: %d, Large value: %d KB\n", perfNamespace, perfFiles, perfLargeValueSizeKB)
	fmt.Println()

	fmt.Println("starting tests...")

	paths := make([]string, perfFiles)
	for i := range paths {
		paths[i] = fmt.Sprintf("/%s/%s/file-%d", perfNamespace, perfDir, i)
	}
	cleanup := func() {
		for _, p := range paths {
			_ = fileStore.Delete(p)
		}
	}
	prepare := func(data []byte) {
		for _, p := range paths {
			_ = fileStore.Create(p)
			if _, err := fileStore.Write(p, data, 0); err != nil {
				fmt.Printf("(prepare) - error writing %s: %v\n", p, err)
			}
		}
	}

	results := make(map[string]testing.BenchmarkResult)
	small := []byte("benchmark payload")
	large := make([]byte, perfLargeValueSizeKB*1024)

	results["write"] = benchmark("write", func(b *testing.B, timer gometrics.Timer) {
		prepare(nil)
		b.Cleanup(cleanup)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			start := time.Now()
			if _, err := fileStore.Write(paths[i%perfFiles], small, 0); err != nil {
				fmt.Printf("(write) - error writing: %v\n", err)
			}
			timer.UpdateSince(start)
		}
	})

	results["write-large"] = benchmark("write-large", func(b *testing.B, timer gometrics.Timer) {
		prepare(nil)
		b.Cleanup(cleanup)
		b.SetBytes(int64(len(large)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			start := time.Now()
			if _, err := fileStore.Write(paths[i%perfFiles], large, 0); err != nil {
				fmt.Printf("(write-large) - error writing: %v\n", err)
			}
			timer.UpdateSince(start)
		}
	})

	results["read"] = benchmark("read", func(b *testing.B, timer gometrics.Timer) {
		prepare(small)
		b.Cleanup(cleanup)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			start := time.Now()
			if _, err := fileStore.Read(paths[i%perfFiles], len(small), 0); err != nil {
				fmt.Printf("(read) - error reading: %v\n", err)
			}
			timer.UpdateSince(start)
		}
	})

	results["sync"] = benchmark("sync", func(b *testing.B, timer gometrics.Timer) {
		prepare(large)
		b.Cleanup(cleanup)
		b.SetBytes(int64(len(large)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			p := paths[i%perfFiles]
			start := time.Now()
			if _, err := fileStore.Write(p, small, 0); err != nil {
				fmt.Printf("(sync) - error writing: %v\n", err)
			}
			if err := fileStore.Sync(p); err != nil {
				fmt.Printf("(sync) - error flushing: %v\n", err)
			}
			timer.UpdateSince(start)
		}
	})

	results["create-delete"] = benchmark("create-delete", func(b *testing.B, timer gometrics.Timer) {
		for i := 0; i < b.N; i++ {
			p := paths[i%perfFiles]
			start := time.Now()
			if err := fileStore.Create(p); err != nil {
				fmt.Printf("(create-delete) - error creating: %v\n", err)
			}
			if err := fileStore.Delete(p); err != nil {
				fmt.Printf("(create-delete) - error deleting: %v\n", err)
			}
			timer.UpdateSince(start)
		}
	})

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// latencies holds the latency distribution of every test that ran
var latencies = gometrics.NewRegistry()

// benchmark runs fn unless it is skipped and prints the result. fn reports
// the duration of each operation to timer.
func benchmark(test string, fn func(b *testing.B, timer gometrics.Timer)) testing.BenchmarkResult {
	var result testing.BenchmarkResult
	var timer gometrics.Timer
	if !shouldSkip(test) {
		result = testing.Benchmark(func(b *testing.B) {
			// only the final run with the largest b.N is kept
			if timer != nil {
				timer.Stop()
			}
			timer = gometrics.NewTimer()
			fn(b, timer)
		})
		timer.Stop()
		_ = latencies.Register(test, timer)
	}
	printResult(test, result)
	return result
}

// percentiles returns the p50 and p99 latency of test in nanoseconds
func percentiles(test string) (float64, float64) {
	timer, ok := latencies.Get(test).(gometrics.Timer)
	if !ok || timer.Count() == 0 {
		return 0, 0
	}
	ps := timer.Percentiles([]float64{0.5, 0.99})
	return ps[0], ps[1]
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
	if result.Bytes > 0 {
		fmt.Printf("\t%.1f MB/s", float64(result.Bytes)*float64(result.N)/result.T.Seconds()/1e6)
	}
	if p50, p99 := percentiles(test); p99 > 0 {
		fmt.Printf("\tp50 %s\tp99 %s", time.Duration(p50), time.Duration(p99))
	}
	fmt.Println()
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Skipped",
		"Namespace", "Files", "LargeValueSizeKB",
		"FlushAfter", "SendRate", "PortStart", "PortEnd",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		p50, p99 := percentiles(test)
		skipped := "true"
		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", p50),
			fmt.Sprintf("%.0f", p99),
			skipped,
			perfNamespace,
			strconv.Itoa(perfFiles),
			strconv.Itoa(perfLargeValueSizeKB),
			config.FlushAfter.String(),
			strconv.FormatFloat(config.Transport.SendRatePerSecond, 'f', -1, 64),
			strconv.Itoa(config.Transport.PortStart),
			strconv.Itoa(config.Transport.PortEnd),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
