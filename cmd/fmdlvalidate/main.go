// Command fmdlvalidate walks a directory of .fmdl files and round-trip
// validates each one: read, write, re-read, write again, and confirm the
// second write is byte-identical to the first (the only way to check
// lossless round-tripping without a reference decoder to compare against).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"pes-fmdl/internal/fmdl"
	"pes-fmdl/internal/fmdlcfg"
)

// Result holds the outcome of validating one file.
type Result struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Clamped bool   `json:"clamped,omitempty"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var flags fmdlcfg.Flags
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to JSON config file")
	flag.StringVar(&flags.InputDir, "dir", "", "directory to walk for .fmdl files")
	flag.StringVar(&flags.ReportPath, "report", "", "path to write the JSON report")
	flag.IntVar(&flags.Workers, "workers", 0, "number of worker goroutines")
	flag.Parse()

	var cfg fmdlcfg.Config
	if configPath != "" {
		loaded, err := fmdlcfg.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fmdlvalidate: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.Resolve(flags)

	var paths []string
	err := filepath.Walk(cfg.InputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".fmdl" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fmdlvalidate: walk %s: %v\n", cfg.InputDir, err)
		os.Exit(1)
	}

	results := run(cfg, paths)

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fmdlvalidate: marshal report: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(cfg.ReportPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "fmdlvalidate: write report: %v\n", err)
		os.Exit(1)
	}

	failures := 0
	for _, r := range results {
		if !r.Success {
			failures++
		}
	}
	fmt.Printf("%d/%d files round-tripped cleanly (report: %s)\n", len(results)-failures, len(results), cfg.ReportPath)
	if failures > 0 {
		os.Exit(1)
	}
}

// run validates every path using a worker pool, reporting progress every two
// seconds while work is in flight.
func run(cfg fmdlcfg.Config, paths []string) []Result {
	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					fmt.Printf("  [%d/%d] %.1f files/sec\n", p, total, float64(p)/elapsed)
				}
			}
		}
	}()

	pathChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range pathChan {
				results[idx] = validateFile(paths[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range paths {
		pathChan <- i
	}
	close(pathChan)

	wg.Wait()
	close(done)

	return results
}

func validateFile(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path, Error: err.Error()}
	}

	result, err := fmdl.ReadWithResult(bytes.NewReader(data))
	if err != nil {
		return Result{Path: path, Error: fmt.Sprintf("read: %v", err)}
	}
	if result.Clamped {
		fmt.Fprintf(os.Stderr, "%s: string pool length clamped to remaining file length\n", path)
	}
	model := result.Model

	var buf1 bytes.Buffer
	if err := fmdl.Write(&buf1, model); err != nil {
		return Result{Path: path, Error: fmt.Sprintf("write: %v", err)}
	}

	model2, err := fmdl.Read(bytes.NewReader(buf1.Bytes()))
	if err != nil {
		return Result{Path: path, Error: fmt.Sprintf("re-read: %v", err)}
	}

	var buf2 bytes.Buffer
	if err := fmdl.Write(&buf2, model2); err != nil {
		return Result{Path: path, Error: fmt.Sprintf("re-write: %v", err)}
	}

	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		offset := firstDiff(buf1.Bytes(), buf2.Bytes())
		return Result{Path: path, Error: fmt.Sprintf("non-idempotent write: first mismatch at byte %d", offset)}
	}

	return Result{Path: path, Success: true, Clamped: result.Clamped}
}

func firstDiff(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
