// Command sieve answers natural language questions about a SQLite dataset.
// It classifies each query, plans SQL and transform steps, executes them
// best-effort, and narrates the consolidated result.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/sievedata/sieve/pkg/dict"
	"github.com/sievedata/sieve/pkg/events"
	"github.com/sievedata/sieve/pkg/goals"
	"github.com/sievedata/sieve/pkg/logger"
	"github.com/sievedata/sieve/pkg/metrics"
	"github.com/sievedata/sieve/pkg/pipeline"
	"github.com/sievedata/sieve/pkg/store"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultModel       = string(anthropic.ModelClaudeHaiku4_5_20251001)
	defaultMaxTokens   = 4096
	defaultLLMTimeout  = 60 * time.Second
	defaultMetricsAddr = ""
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	dbPathFlag := flag.String("db", "data.db", "path to the SQLite database (or set SIEVE_DB env var)")
	dictPathFlag := flag.String("dict", "", "path to an optional data dictionary, JSON or YAML (or set SIEVE_DICT env var)")
	modelFlag := flag.String("model", defaultModel, "Anthropic model to use")
	maxTokensFlag := flag.Int64("max-tokens", defaultMaxTokens, "max tokens per LLM completion")
	llmTimeoutFlag := flag.Duration("llm-timeout", defaultLLMTimeout, "deadline per LLM completion")
	queryFlag := flag.String("query", "", "process a single query and exit; omit for interactive mode")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "address to serve prometheus metrics on (empty to disable)")

	flag.Parse()

	// .env is optional; flags and real env vars win
	_ = godotenv.Load()

	// Override flags with environment variables if set
	if envDB := os.Getenv("SIEVE_DB"); envDB != "" {
		*dbPathFlag = envDB
	}
	if envDict := os.Getenv("SIEVE_DICT"); envDict != "" {
		*dictPathFlag = envDict
	}
	if envModel := os.Getenv("SIEVE_MODEL"); envModel != "" {
		*modelFlag = envModel
	}

	log := logger.New(*verboseFlag)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("received signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("prometheus metrics server failed", "error", err)
			}
		}()
	}

	db, err := store.Open(*dbPathFlag, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	var dictionary *dict.Dictionary
	if *dictPathFlag != "" {
		dictionary, err = dict.Load(*dictPathFlag)
		if err != nil {
			return fmt.Errorf("failed to load data dictionary: %w", err)
		}
		log.Info("data dictionary loaded", "path", *dictPathFlag, "fields", len(dictionary.Fields))
	}

	prompts, err := pipeline.LoadPrompts()
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	llm := pipeline.NewAnthropicLLMClient(anthropic.Model(*modelFlag), *maxTokensFlag, *llmTimeoutFlag, log)

	processor, err := pipeline.New(&pipeline.Config{
		Logger:  log,
		LLM:     llm,
		Store:   db,
		Dict:    dictionary,
		Events:  events.SlogSink{Log: log},
		Prompts: prompts,
	})
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}

	tracker := goals.NewTracker(events.SlogSink{Log: log})

	if *queryFlag != "" {
		return processOne(ctx, processor, tracker, *queryFlag)
	}
	return interactive(ctx, processor, tracker, log)
}

// processOne handles a single query and prints the answer.
func processOne(ctx context.Context, p *pipeline.Processor, tracker *goals.Tracker, query string) error {
	goalID, err := tracker.Create("process_query", map[string]string{"query": query})
	if err != nil {
		return err
	}
	_ = tracker.SetState(goalID, goals.StateActive)

	res, err := p.ProcessQuery(ctx, query)
	if res != nil {
		for _, step := range res.Reasoning {
			_ = tracker.AddReasoningStep(goalID, step.Label, step.Detail)
		}
	}
	if err != nil {
		_ = tracker.SetState(goalID, goals.StateFailed)
		printReasoning(res)
		return err
	}
	_ = tracker.SetResult(goalID, res.Answer)

	fmt.Println(res.Answer)
	return nil
}

// interactive reads queries from stdin until EOF or cancellation.
func interactive(ctx context.Context, p *pipeline.Processor, tracker *goals.Tracker, log *slog.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Enter a question (ctrl-d to quit):")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := processOne(ctx, p, tracker, query); err != nil {
			log.Error("query failed", "error", err)
		}
	}
	return scanner.Err()
}

func printReasoning(res *pipeline.Result) {
	if res == nil {
		return
	}
	for _, step := range res.Reasoning {
		fmt.Fprintf(os.Stderr, "  %d. %s: %s\n", step.Number, step.Label, step.Detail)
	}
}
