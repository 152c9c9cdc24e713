package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cwbudde/algo-utau/frq"
	"github.com/cwbudde/algo-utau/internal/config"
	"github.com/cwbudde/algo-utau/internal/wavio"
)

func main() {
	dir := flag.String("voicebank", "", "Voicebank directory to scan for WAV files")
	force := flag.Bool("force", false, "Overwrite existing sidecars")
	hop := flag.Int("hop", frq.DefaultHop, "Samples per analysis chunk")
	minHz := flag.Float64("min-hz", 60, "Lowest detectable pitch")
	maxHz := flag.Float64("max-hz", 1200, "Highest detectable pitch")
	threshold := flag.Float64("threshold", 0.45, "Normalised autocorrelation required for a voiced chunk")
	workers := flag.String("workers", "auto", "Parallel workers (number or 'auto')")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Error: -voicebank is required")
		os.Exit(2)
	}
	n, err := parseWorkers(*workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid workers value: %v\n", err)
		os.Exit(2)
	}
	logger := config.NewLogger(*logLevel)
	opts := frq.EstimateOptions{Hop: *hop, MinHz: *minHz, MaxHz: *maxHz, Threshold: *threshold}

	res, err := generate(*dir, opts, *force, n, logger)
	if err != nil {
		logger.Error("sidecar generation incomplete", "error", err)
	}
	fmt.Printf("wrote %d sidecars, skipped %d, failed %d\n", res.written, res.skipped, res.failed)
	if err != nil {
		os.Exit(1)
	}
}

type result struct {
	written, skipped, failed int
}

// generate estimates a sidecar for every WAV under dir. Existing sidecars
// are kept unless force is set. Per-file failures are joined into the
// returned error; the other files are still processed.
func generate(dir string, opts frq.EstimateOptions, force bool, workers int, logger *slog.Logger) (result, error) {
	var res result
	paths, err := findWAVs(dir)
	if err != nil {
		return res, err
	}

	var todo []string
	for _, p := range paths {
		if !force {
			if _, err := os.Stat(frq.SidecarPath(p)); err == nil {
				res.skipped++
				continue
			}
		}
		todo = append(todo, p)
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(todo) {
		workers = len(todo)
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				avg, err := writeSidecar(p, opts)
				mu.Lock()
				if err != nil {
					res.failed++
					errs = append(errs, fmt.Errorf("%s: %w", p, err))
				} else {
					res.written++
				}
				mu.Unlock()
				if err != nil {
					logger.Warn("sidecar failed", "file", p, "error", err)
				} else {
					logger.Debug("sidecar written", "file", p, "average_hz", avg)
				}
			}
		}()
	}
	for _, p := range todo {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	return res, errors.Join(errs...)
}

func writeSidecar(path string, opts frq.EstimateOptions) (float64, error) {
	clip, err := wavio.Read(path)
	if err != nil {
		return 0, err
	}
	f, err := frq.Estimate(mixdown(clip), clip.SampleRate, opts)
	if err != nil {
		return 0, err
	}
	return f.Average, frq.WriteFile(frq.SidecarPath(path), f)
}

func mixdown(c *wavio.Clip) []float32 {
	if c.Channels <= 1 {
		return c.Data
	}
	out := make([]float32, c.Frames())
	inv := 1 / float32(c.Channels)
	for i := range out {
		var s float32
		for ch := 0; ch < c.Channels; ch++ {
			s += c.Data[i*c.Channels+ch]
		}
		out[i] = s * inv
	}
	return out
}

func findWAVs(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".wav") {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func parseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}
