// Benchmark tool for load-testing Harrier with a CSV of shipments.
//
// Usage:
//
//	go run ./cmd/benchmark -csv /path/to/shipments.csv -url http://localhost:8080
//
// This tool:
//  1. Reads shipments from a CSV file; every column becomes a request field
//  2. Posts each shipment to /score with a pool of workers
//  3. Reports the risk level distribution, latency (mean, p95) and errors
//  4. When an expected_level column is present, reports level agreement
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// expectedColumn holds an optional reference level per row.
const expectedColumn = "expected_level"

// Row is one shipment from the CSV file.
type Row struct {
	Line     int
	Fields   map[string]any
	Expected string
}

// ScoreResponse is the subset of the assessment the benchmark reads.
type ScoreResponse struct {
	ID     string `json:"id"`
	Cached bool   `json:"cached"`
	Result struct {
		Score float64 `json:"score"`
		Level string  `json:"level"`
	} `json:"result"`
}

// Sample is the outcome of one request.
type Sample struct {
	Row     Row
	Latency time.Duration
	Level   string
	Score   float64
	Cached  bool
	Err     error
}

// Summary aggregates the samples of a run.
type Summary struct {
	Total      int
	Errors     int
	Cached     int
	Levels     map[string]int
	Mean       time.Duration
	P95        time.Duration
	Compared   int
	Agreements int
}

func main() {
	csvPath := flag.String("csv", "", "Path to shipments CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Harrier base URL")
	limit := flag.Int("limit", 10000, "Maximum shipments to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	lang := flag.String("lang", "", "Response language (en, vi, zh)")
	verbose := flag.Bool("verbose", false, "Print each shipment result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/shipments.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║            HARRIER BENCHMARK - Shipment Scoring               ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Harrier URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Harrier not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Harrier is running:")
		fmt.Println("  go run ./cmd/harrier")
		os.Exit(1)
	}
	fmt.Println("✓ Harrier is healthy")

	file, err := os.Open(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: Failed to open CSV: %v\n", err)
		os.Exit(1)
	}
	rows, err := readShipments(file, *limit)
	file.Close()
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d shipments\n", len(rows))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	start := time.Now()
	samples := runBenchmark(rows, *baseURL, *lang, *workers, *verbose)
	duration := time.Since(start)

	printResults(summarize(samples), duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readShipments maps each CSV row onto a request mapping keyed by the
// lower-cased header. Numeric cells are sent as numbers, empty cells are
// omitted so the server counts them as missing.
func readShipments(r io.Reader, limit int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range header {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		row := Row{Line: line, Fields: make(map[string]any, len(header))}
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if header[i] == expectedColumn {
				row.Expected = cell
				continue
			}
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				row.Fields[header[i]] = f
			} else {
				row.Fields[header[i]] = cell
			}
		}
		rows = append(rows, row)

		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, nil
}

func runBenchmark(rows []Row, baseURL, lang string, numWorkers int, verbose bool) []Sample {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	samples := make([]Sample, len(rows))
	work := make(chan int, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for idx := range work {
				row := rows[idx]
				start := time.Now()
				result, err := scoreShipment(client, baseURL, lang, row.Fields)
				s := Sample{Row: row, Latency: time.Since(start), Err: err}
				if err == nil {
					s.Level = result.Result.Level
					s.Score = result.Result.Score
					s.Cached = result.Cached
				}
				samples[idx] = s

				if verbose {
					if err != nil {
						fmt.Printf("ERROR line %d: %v\n", row.Line, err)
						continue
					}
					fmt.Printf("line %-6d | %-8s | score %6.2f | %-8s | cached %v\n",
						row.Line, describe(row.Fields), s.Score, s.Level, s.Cached)
				}
			}
		}()
	}

	for i := range rows {
		work <- i
	}
	close(work)
	wg.Wait()

	return samples
}

func scoreShipment(client *http.Client, baseURL, lang string, fields map[string]any) (*ScoreResponse, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	url := baseURL + "/score"
	if lang != "" {
		url += "?lang=" + lang
	}
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func describe(fields map[string]any) string {
	pol, _ := fields["pol"].(string)
	pod, _ := fields["pod"].(string)
	if pol != "" && pod != "" {
		return pol + "-" + pod
	}
	if route, ok := fields["route"].(string); ok {
		return route
	}
	return "-"
}

func summarize(samples []Sample) Summary {
	s := Summary{Total: len(samples), Levels: make(map[string]int)}

	var latencies []time.Duration
	var sum time.Duration
	for _, smp := range samples {
		if smp.Err != nil {
			s.Errors++
			continue
		}
		s.Levels[smp.Level]++
		if smp.Cached {
			s.Cached++
		}
		if smp.Row.Expected != "" {
			s.Compared++
			if strings.EqualFold(smp.Row.Expected, smp.Level) {
				s.Agreements++
			}
		}
		latencies = append(latencies, smp.Latency)
		sum += smp.Latency
	}

	if len(latencies) > 0 {
		s.Mean = sum / time.Duration(len(latencies))
		s.P95 = percentile(latencies, 0.95)
	}
	return s
}

// percentile uses the nearest-rank method.
func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), d...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func printResults(s Summary, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", s.Total)
	fmt.Printf("   Errors:           %d\n", s.Errors)
	fmt.Printf("   Cache Hits:       %d\n", s.Cached)

	fmt.Printf("\n📈 RISK LEVELS\n")
	for _, level := range []string{"Low", "Medium", "High", "Critical"} {
		n := s.Levels[level]
		pct := 0.0
		if ok := s.Total - s.Errors; ok > 0 {
			pct = 100 * float64(n) / float64(ok)
		}
		fmt.Printf("   %-9s %6d (%5.1f%%)\n", level+":", n, pct)
	}

	if s.Compared > 0 {
		fmt.Printf("\n🎯 LEVEL AGREEMENT\n")
		fmt.Printf("   Compared:   %d\n", s.Compared)
		fmt.Printf("   Agreement:  %.1f%%\n", 100*float64(s.Agreements)/float64(s.Compared))
	}

	fmt.Printf("\n⏱  PERFORMANCE\n")
	fmt.Printf("   Duration:      %s\n", duration.Round(time.Millisecond))
	fmt.Printf("   Mean Latency:  %s\n", s.Mean.Round(time.Microsecond))
	fmt.Printf("   P95 Latency:   %s\n", s.P95.Round(time.Microsecond))
	if duration > 0 {
		fmt.Printf("   Throughput:    %.1f shipments/sec\n", float64(s.Total)/duration.Seconds())
	}
	fmt.Println()
}
