// Package main is the Matome CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/matomesearch/matome/internal/analyze"
	"github.com/matomesearch/matome/internal/archive"
	"github.com/matomesearch/matome/internal/cache"
	"github.com/matomesearch/matome/internal/cli"
	"github.com/matomesearch/matome/internal/config"
	"github.com/matomesearch/matome/internal/fanout"
	"github.com/matomesearch/matome/internal/models"
	"github.com/matomesearch/matome/internal/rank"
	"github.com/matomesearch/matome/internal/search"
	"github.com/matomesearch/matome/internal/server"
	"github.com/matomesearch/matome/internal/source"
	"github.com/matomesearch/matome/internal/storage"
	"github.com/matomesearch/matome/internal/watcher"
	"github.com/matomesearch/matome/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/matome/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for matome.yaml in the current directory (for development); when neither that
// nor the default file exists, built-in defaults are used. Returns the config
// and the path that was actually loaded ("" when running on defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "matome.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "analyze":
		runAnalyze()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("matome version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// fanoutConfig maps the search tunables onto the fan-out coordinator's config.
// MaxRetries counts retries after the first attempt, so attempts are one more.
func fanoutConfig(search *config.SearchConfig) fanout.Config {
	return fanout.Config{
		SourceTimeout: time.Duration(search.SourceTimeout),
		MaxConcurrent: search.MaxConcurrent,
		MaxAttempts:   search.MaxRetries + 1,
		RetryDelay:    time.Duration(search.RetryDelay),
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	port := fs.Int("port", 0, "listen port (overrides config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	debugMode := cfg.Logging.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Reload the searchable tunables when the config file changes. The listen
	// address is fixed for the process lifetime; changing it needs a restart.
	if resolvedConfigPath != "" {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		configWatcher := watcher.New(resolvedConfigPath, func() {
			reloaded, _, reloadErr := loadConfig(resolvedConfigPath)
			if reloadErr != nil {
				logger.Warn("config reload failed", zap.Error(reloadErr))
				return
			}
			components.Coordinator.UpdateConfig(fanoutConfig(&reloaded.Search))
			components.Cache.SetTTL(time.Duration(reloaded.Cache.TTL))
			logger.Info("config reloaded",
				zap.Duration("source_timeout", time.Duration(reloaded.Search.SourceTimeout)),
				zap.Int("max_retries", reloaded.Search.MaxRetries),
				zap.Duration("cache_ttl", time.Duration(reloaded.Cache.TTL)),
			)
		}, watchOpts...)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := configWatcher.Start(watchCtx); err != nil {
			logger.Warn("config watcher not started", zap.Error(err))
		} else {
			defer configWatcher.Stop()
		}
	}

	srv := server.NewServer(
		components.Orchestrator,
		components.Analyzer,
		components.Registry,
		components.Cache,
		components.Store,
		components.Archive,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: matome search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  matome search go concurrency patterns
  matome search "go concurrency patterns"          # same as above
  matome search --sources duckduckgo,wikipedia --max 10 "go generics"
  matome search --json --page 2 linux kernel
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "matome search \"query\" -max 5"
// would otherwise leave -max unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run the search in-process)")
	sources := fs.String("sources", "", "comma-separated source names (default from config)")
	maxResults := fs.Int("max", 0, "max results per source (default from config)")
	page := fs.Int("page", 0, "result page")
	jsonOut := fs.Bool("json", false, "print the raw JSON response")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}

	req := &models.SearchRequest{
		Query:      queryStr,
		MaxResults: *maxResults,
		Page:       *page,
	}
	if *sources != "" {
		req.Sources = splitList(*sources)
	}

	if *serverURL != "" {
		// Use the HTTP API when the server is running, sharing its cache and
		// history instead of opening a second store handle.
		response, err := searchViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// In-process search (when the server is not running).
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Logging.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Orchestrator.Search(context.Background(), req, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runAnalyze() {
	analyzeArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "print the analysis as JSON")
	_ = fs.Parse(analyzeArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: matome analyze [flags] <query>")
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: matome analyze [flags] <query>")
		os.Exit(1)
	}

	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}
	analysis := analyze.NewAnalyzer().Analyze(queryStr)
	if err := cli.WriteAnalysis(os.Stdout, analysis, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the store directly)")
	limit := fs.Int("limit", 20, "number of records")
	queryFilter := fs.String("q", "", "only searches containing this text")
	jsonOut := fs.Bool("json", false, "print records as JSON")
	_ = fs.Parse(os.Args[2:])

	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}

	var records []*models.SearchRecord
	if *serverURL != "" {
		var err error
		records, err = historyViaHTTP(*serverURL, *limit, *queryFilter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		records, err = store.History(context.Background(), *limit, *queryFilter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	}
	if records == nil {
		records = []*models.SearchRecord{}
	}
	if err := cli.WriteHistory(os.Stdout, records, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func historyViaHTTP(serverURL string, limit int, query string) ([]*models.SearchRecord, error) {
	endpoint := fmt.Sprintf("%s/api/history?limit=%d", serverURL, limit)
	if query != "" {
		endpoint += "&q=" + url.QueryEscape(query)
	}
	var out struct {
		History []*models.SearchRecord `json:"history"`
	}
	if err := getJSON(endpoint, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the store directly)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("# configuration")
	if resolvedConfigPath != "" {
		fmt.Printf("config_path:      %s\n", resolvedConfigPath)
	} else {
		fmt.Println("config_path:      (built-in defaults)")
	}
	fmt.Printf("listen:           %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("default_sources:  %s\n", strings.Join(cfg.Search.DefaultSources, ", "))
	fmt.Printf("source_timeout:   %s\n", time.Duration(cfg.Search.SourceTimeout))
	fmt.Printf("max_retries:      %d\n", cfg.Search.MaxRetries)
	fmt.Printf("max_concurrent:   %d\n", cfg.Search.MaxConcurrent)
	fmt.Printf("cache_ttl:        %s\n", time.Duration(cfg.Cache.TTL))
	fmt.Printf("storage_path:     %s\n", cfg.Storage.Path)
	fmt.Printf("archive_path:     %s (enabled: %t)\n", cfg.Archive.Path, cfg.Archive.EnabledOrDefault())

	if *serverURL != "" {
		var stats cache.Stats
		if err := getJSON(*serverURL+"/api/cache/stats", &stats); err != nil {
			fmt.Printf("\nserver not reachable at %s: %v\n", *serverURL, err)
			return
		}
		fmt.Println("\n# cache")
		fmt.Printf("entries:   %d\n", stats.Entries)
		fmt.Printf("hits:      %d\n", stats.Hits)
		fmt.Printf("misses:    %d\n", stats.Misses)
		fmt.Printf("hit_rate:  %s\n", stats.HitRate)

		var analytics models.Analytics
		if err := getJSON(*serverURL+"/api/analytics", &analytics); err != nil {
			fmt.Printf("\nhistory unavailable: %v\n", err)
			return
		}
		printAnalytics(&analytics)
		return
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	analytics, err := store.Analytics(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analytics failed: %v\n", err)
		os.Exit(1)
	}
	printAnalytics(analytics)
	if diskBytes, diskErr := storage.DiskUsageBytes(cfg.Storage.Path, cfg.Archive.Path); diskErr == nil {
		fmt.Printf("disk_usage_bytes: %d\n", diskBytes)
	}
}

func printAnalytics(a *models.Analytics) {
	fmt.Println("\n# history")
	fmt.Printf("total_searches:   %d\n", a.TotalSearches)
	fmt.Printf("avg_duration_ms:  %.1f\n", a.AvgDurationMS)
	for status, n := range a.StatusCounts {
		fmt.Printf("  %-10s %d\n", status+":", n)
	}
	if len(a.TopQueries) > 0 {
		fmt.Println("top queries:")
		for _, qc := range a.TopQueries {
			fmt.Printf("  %4d  %s\n", qc.Count, qc.Query)
		}
	}
}

func getJSON(endpoint string, out interface{}) error {
	resp, err := http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Store        storage.Store
	Archive      *archive.Index
	Registry     *source.Registry
	Coordinator  *fanout.Coordinator
	Cache        *cache.ResponseCache
	Analyzer     *analyze.Analyzer
	Orchestrator *search.Orchestrator
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var archiveIndex *archive.Index
	if cfg.Archive.EnabledOrDefault() {
		archiveIndex, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			// The archive is optional; searches keep working without it.
			if logger != nil {
				logger.Warn("archive index unavailable",
					zap.String("path", cfg.Archive.Path),
					zap.Error(err))
			}
			archiveIndex = nil
		}
	}

	adapters := []source.Adapter{
		source.NewDuckDuckGo(nil),
		source.NewWikipedia(nil),
	}
	if archiveIndex != nil {
		adapters = append(adapters, source.NewArchive(archiveIndex))
	}
	registry := source.NewRegistry(adapters...)

	coordinator := fanout.New(fanoutConfig(&cfg.Search), logger)
	responseCache := cache.New(time.Duration(cfg.Cache.TTL), cfg.Cache.MaxEntries)
	analyzer := analyze.NewAnalyzer()

	orchestrator := search.NewOrchestrator(
		registry,
		coordinator,
		rank.NewRanker(),
		responseCache,
		store,
		archiveIndex,
		&cfg.Search,
		logger,
	)

	return &Components{
		Store:        store,
		Archive:      archiveIndex,
		Registry:     registry,
		Coordinator:  coordinator,
		Cache:        responseCache,
		Analyzer:     analyzer,
		Orchestrator: orchestrator,
	}, nil
}

func printUsage() {
	fmt.Println(`matome - Concurrent metasearch aggregator

Usage:
  matome server [flags]            Start the HTTP/WebSocket server
  matome search [flags] <query>    Run a search and print the results
  matome analyze [flags] <query>   Analyze a query without searching
  matome history [flags]           Show recent searches
  matome status [flags]            Show configuration and store status
  matome version                   Show version
  matome help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/matome/config.yaml)
  --port int         Listen port (overrides config)
  --debug            Enable debug logging

Search Flags:
  --config string    Config file path (for in-process mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run in-process when the server is not running.
  --sources string   Comma-separated source names (default from config)
  --max int          Max results per source (default from config)
  --page int         Result page (default: 1)
  --json             Print the raw JSON response

Analyze Flags:
  --json             Print the analysis as JSON

History Flags:
  --config string    Config file path (for direct store mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read the store directly.
  --limit int        Number of records (default: 20)
  --q string         Only searches containing this text
  --json             Print records as JSON

Status Flags:
  --config string    Config file path
  --server string    Server URL for live cache stats (default: http://localhost:8080)

Examples:
  matome server
  matome search best pizza in rome
  matome search --sources duckduckgo,wikipedia --max 10 "go generics"
  matome search --json climate change
  matome analyze how to learn rust
  matome history --limit 10
  matome status`)
}
