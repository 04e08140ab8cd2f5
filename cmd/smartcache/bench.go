package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type BenchmarkResult struct {
	TotalOps      int
	SuccessfulOps int
	FailedOps     int
	Duration      time.Duration
	OpsPerSec     float64
	AvgLatency    time.Duration
	MinLatency    time.Duration
	MaxLatency    time.Duration
}

var benchOpts struct {
	target      string
	ops         int
	concurrency int
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load a running gateway with writes and reads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		b := newBenchClient(benchOpts.target)
		if !b.checkHealth(cmd.Context()) {
			return fmt.Errorf("gateway %s is not available", benchOpts.target)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "=== smartcache benchmark: %s ===\n", benchOpts.target)
		for _, c := range []int{1, benchOpts.concurrency} {
			w, r := b.run(cmd.Context(), benchOpts.ops, c)
			printResult(out, fmt.Sprintf("Writes (%d goroutines)", c), w)
			printResult(out, fmt.Sprintf("Reads (%d goroutines)", c), r)
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().StringVar(&benchOpts.target, "target", "http://localhost:8080", "gateway base URL")
	benchCmd.Flags().IntVar(&benchOpts.ops, "ops", 100, "operations per phase")
	benchCmd.Flags().IntVar(&benchOpts.concurrency, "concurrency", 10, "goroutines for the concurrent phase")
	rootCmd.AddCommand(benchCmd)
}

type benchClient struct {
	baseURL string
	client  *http.Client
	// префикс ключей, чтобы прогоны не пересекались
	prefix string
}

func newBenchClient(baseURL string) *benchClient {
	return &benchClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		prefix:  uuid.NewString()[:8],
	}
}

func (b *benchClient) checkHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// run writes totalOps keys and reads them back, both with concurrency goroutines.
func (b *benchClient) run(ctx context.Context, totalOps, concurrency int) (writes, reads BenchmarkResult) {
	key := func(g, j int) string { return fmt.Sprintf("bench_%s_%d_%d_%d", b.prefix, concurrency, g, j) }

	writes = b.phase(totalOps, concurrency, func(g, j int) error {
		return b.putKey(ctx, key(g, j), fmt.Sprintf("value_%d_%d", g, j))
	})
	reads = b.phase(totalOps, concurrency, func(g, j int) error {
		_, found, err := b.getKey(ctx, key(g, j))
		if err == nil && !found {
			err = fmt.Errorf("key %s not found", key(g, j))
		}
		return err
	})
	return writes, reads
}

func (b *benchClient) phase(totalOps, concurrency int, op func(g, j int) error) BenchmarkResult {
	if concurrency < 1 {
		concurrency = 1
	}
	start := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex

	successful := 0
	failed := 0
	latencies := make([]time.Duration, 0, totalOps)

	opsPerGoroutine := totalOps / concurrency
	remainder := totalOps % concurrency

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			ops := opsPerGoroutine
			if goroutineID < remainder {
				ops++
			}

			for j := 0; j < ops; j++ {
				opStart := time.Now()
				err := op(goroutineID, j)
				latency := time.Since(opStart)

				mu.Lock()
				if err == nil {
					successful++
				} else {
					failed++
				}
				latencies = append(latencies, latency)
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	duration := time.Since(start)

	// Вычисление статистики латентности
	var minLat, maxLat, sum time.Duration
	for i, lat := range latencies {
		if i == 0 || lat < minLat {
			minLat = lat
		}
		if lat > maxLat {
			maxLat = lat
		}
		sum += lat
	}
	var avgLatency time.Duration
	if len(latencies) > 0 {
		avgLatency = sum / time.Duration(len(latencies))
	}

	return BenchmarkResult{
		TotalOps:      totalOps,
		SuccessfulOps: successful,
		FailedOps:     failed,
		Duration:      duration,
		OpsPerSec:     float64(successful) / duration.Seconds(),
		AvgLatency:    avgLatency,
		MinLatency:    minLat,
		MaxLatency:    maxLat,
	}
}

func (b *benchClient) putKey(ctx context.Context, key, value string) error {
	data := url.Values{}
	data.Set("key", key)
	data.Set("value", value)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.baseURL+"/api/string", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Читаем тело ответа для очистки
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

func (b *benchClient) getKey(ctx context.Context, key string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/string?key="+url.QueryEscape(key), nil)
	if err != nil {
		return "", false, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		Status string `json:"status"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false, err
	}
	return result.Value, true, nil
}

func printResult(w io.Writer, testName string, result BenchmarkResult) {
	fmt.Fprintf(w, "%s\n", testName)
	fmt.Fprintf(w, "  Total Operations: %d\n", result.TotalOps)
	fmt.Fprintf(w, "  Successful: %d\n", result.SuccessfulOps)
	fmt.Fprintf(w, "  Failed: %d\n", result.FailedOps)
	fmt.Fprintf(w, "  Duration: %v\n", result.Duration)
	fmt.Fprintf(w, "  Operations/sec: %.2f\n", result.OpsPerSec)
	fmt.Fprintf(w, "  Avg Latency: %v\n", result.AvgLatency)
	fmt.Fprintf(w, "  Min Latency: %v\n", result.MinLatency)
	fmt.Fprintf(w, "  Max Latency: %v\n", result.MaxLatency)
}
