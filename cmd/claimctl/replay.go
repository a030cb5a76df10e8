package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/claimdesk/internal/domain"
)

var (
	replayFile    string
	replayURL     string
	replayUser    string
	replayWorkers int
	replayVerbose bool
)

// CorpusEntry is one payload of a replay corpus. Expected is optional.
type CorpusEntry struct {
	FNOL     *domain.FNOL `json:"fnol"`
	Expected string       `json:"expected,omitempty"`
}

// ReplayReport summarises a replay run.
type ReplayReport struct {
	Processed int
	Errors    int
	Decisions map[string]int
	Labelled  int
	Matched   int
	Latencies []time.Duration
	Duration  time.Duration
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Post a corpus of FNOL payloads to /claims/evaluate",
	Long: `Replay sends every payload in a JSON corpus to a running server's dry-run
endpoint concurrently, then reports the decision distribution, agreement with
any expected decisions and request latency.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		corpus, err := loadCorpus(replayFile)
		if err != nil {
			return err
		}

		client := &http.Client{Timeout: 10 * time.Second}
		if err := checkHealth(client, replayURL); err != nil {
			return fmt.Errorf("claimdesk not reachable at %s: %w", replayURL, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Replaying %d payloads against %s with %d workers...\n", len(corpus), replayURL, replayWorkers)
		report := runReplay(client, replayURL, replayUser, corpus, replayWorkers, replayVerbose, cmd.OutOrStdout())
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "corpus JSON file (array of {fnol, expected})")
	replayCmd.Flags().StringVar(&replayURL, "url", "http://localhost:8080", "claimdesk base URL")
	replayCmd.Flags().StringVar(&replayUser, "user", "claimctl", "X-User-ID sent with each request")
	replayCmd.Flags().IntVarP(&replayWorkers, "workers", "w", 10, "number of concurrent workers")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "print each result")
	replayCmd.MarkFlagRequired("file")
}

func loadCorpus(path string) ([]CorpusEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading corpus: %w", err)
	}
	var corpus []CorpusEntry
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("error parsing corpus: %w", err)
	}
	return corpus, nil
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func runReplay(client *http.Client, baseURL, userID string, corpus []CorpusEntry, workers int, verbose bool, out io.Writer) *ReplayReport {
	if workers < 1 {
		workers = 1
	}
	report := &ReplayReport{Decisions: make(map[string]int)}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	work := make(chan CorpusEntry, workers)
	start := time.Now()

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range work {
				begin := time.Now()
				result, err := evaluateRemote(client, baseURL, userID, entry.FNOL)
				elapsed := time.Since(begin)

				mu.Lock()
				report.Processed++
				report.Latencies = append(report.Latencies, elapsed)
				if err != nil {
					report.Errors++
					if verbose {
						fmt.Fprintf(out, "ERROR  %-16s %v\n", claimLabel(entry.FNOL), err)
					}
					mu.Unlock()
					continue
				}
				report.Decisions[result.Decision]++
				if entry.Expected != "" {
					report.Labelled++
					if strings.EqualFold(entry.Expected, result.Decision) {
						report.Matched++
					}
				}
				if verbose {
					fmt.Fprintf(out, "%-6s %-16s %-14s %s\n", "OK", claimLabel(entry.FNOL), result.Decision, result.Reason)
				}
				mu.Unlock()
			}
		}()
	}

	for _, entry := range corpus {
		work <- entry
	}
	close(work)
	wg.Wait()

	report.Duration = time.Since(start)
	return report
}

func claimLabel(f *domain.FNOL) string {
	if f == nil || f.ClaimID == "" {
		return "(no id)"
	}
	return f.ClaimID
}

func evaluateRemote(client *http.Client, baseURL, userID string, fnol *domain.FNOL) (*domain.EvaluationResult, error) {
	if fnol == nil {
		return nil, fmt.Errorf("entry has no fnol")
	}
	body, err := json.Marshal(map[string]any{"fnol": fnol})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/claims/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result domain.EvaluationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Percentile returns the p-th percentile (0-100) of the recorded latencies.
func (r *ReplayReport) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), r.Latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[idx]
}

func printReport(w io.Writer, r *ReplayReport) {
	heading := color.New(color.FgCyan, color.Bold)

	fmt.Fprintln(w)
	heading.Fprintln(w, "REPLAY RESULTS")
	fmt.Fprintf(w, "  Processed:   %d\n", r.Processed)
	if r.Errors > 0 {
		color.New(color.FgRed).Fprintf(w, "  Errors:      %d\n", r.Errors)
	} else {
		fmt.Fprintf(w, "  Errors:      0\n")
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "DECISIONS")
	names := make([]string, 0, len(r.Decisions))
	for name := range r.Decisions {
		names = append(names, name)
	}
	sort.Strings(names)
	ok := r.Processed - r.Errors
	for _, name := range names {
		n := r.Decisions[name]
		pct := 0.0
		if ok > 0 {
			pct = 100 * float64(n) / float64(ok)
		}
		decisionColor(name).Fprintf(w, "  %-14s", name)
		fmt.Fprintf(w, " %6d  (%5.1f%%)\n", n, pct)
	}

	if r.Labelled > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "EXPECTED DECISIONS")
		fmt.Fprintf(w, "  Matched:     %d / %d (%.1f%%)\n", r.Matched, r.Labelled, 100*float64(r.Matched)/float64(r.Labelled))
	}

	fmt.Fprintln(w)
	heading.Fprintln(w, "LATENCY")
	fmt.Fprintf(w, "  p50:         %v\n", r.Percentile(50))
	fmt.Fprintf(w, "  p95:         %v\n", r.Percentile(95))
	fmt.Fprintf(w, "  max:         %v\n", r.Percentile(100))
	if r.Duration > 0 {
		fmt.Fprintf(w, "  Throughput:  %.1f req/s\n", float64(r.Processed)/r.Duration.Seconds())
	}
}
