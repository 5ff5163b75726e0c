// Package main is the lostfound CLI entry point.
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
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lostfound/internal/cli"
	"github.com/hyperjump/lostfound/internal/config"
	"github.com/hyperjump/lostfound/internal/keyword"
	"github.com/hyperjump/lostfound/internal/models"
	"github.com/hyperjump/lostfound/internal/reconcile"
	"github.com/hyperjump/lostfound/internal/server"
	"github.com/hyperjump/lostfound/internal/storage"
	"github.com/hyperjump/lostfound/internal/watcher"
	"github.com/hyperjump/lostfound/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/lostfound/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default and config.yaml exists
// in the current directory, that file is used instead.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
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
	case "match":
		runMatch()
	case "report":
		runReport()
	case "import":
		runImport()
	case "discover":
		runDiscover()
	case "reconcile":
		runReconcile()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("lostfound version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads the config and creates the logger for commands that work on local state.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, reconcile details)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolvedConfigPath := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("backend", cfg.Storage.Backend),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if cfg.Watch.Enabled {
		if cfg.Storage.Backend != config.BackendJSON {
			logger.Warn("watch is only supported for the json backend, ignoring", zap.String("backend", cfg.Storage.Backend))
		} else {
			w := watcher.NewWatcher(
				[]string{cfg.Storage.ItemsPath},
				func(path string) {
					logger.Info("record store changed", zap.String("path", path))
					components.refresh(ctx, logger)
				},
				watcher.WithLogger(logger),
			)
			if err := w.Start(ctx); err != nil {
				logger.Fatal("Failed to start watcher", zap.Error(err))
			}
			defer w.Stop()
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Reconciler,
		components.Storage,
		components.KeywordIndex,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = srv.Stop(stopCtx)
	if err := components.Vectors.Persist(); err != nil {
		logger.Warn("vector index persist failed", zap.Error(err))
	}
}

// argsReorder moves flags that appear after positional arguments to the front so
// that flag.Parse sees them ("lostfound import items.json -config c.yaml").
func argsReorder(args []string) []string {
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

// readVector decodes an embedding from path ("-" reads stdin). The input is either a
// JSON array of numbers or an object with an "embedding" array.
func readVector(path string, stdin io.Reader) ([]float32, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read embedding: %w", err)
	}
	data = bytes.TrimSpace(data)
	var vec []float32
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &vec)
	} else {
		var wrapped struct {
			Embedding []float32 `json:"embedding"`
		}
		err = json.Unmarshal(data, &wrapped)
		vec = wrapped.Embedding
	}
	if err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(vec) == 0 {
		return nil, errors.New("embedding is empty")
	}
	return vec, nil
}

// readItemInput decodes an item report from path ("-" reads stdin).
func readItemInput(path string, stdin io.Reader) (*models.ItemInput, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("read item: %w", err)
		}
		defer f.Close()
		r = f
	}
	var input models.ItemInput
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return &input, nil
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage and index)")
	embeddingPath := fs.String("embedding", "-", "JSON file holding the query vector (- for stdin)")
	reportType := fs.String("report-type", "", "report type of the query item: lost or found (empty = no filtering)")
	topK := fs.Int("top-k", 0, "number of candidates to consider (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	vec, err := readVector(*embeddingPath, os.Stdin)
	if err != nil {
		fatalf("%v", err)
	}
	query := &models.MatchQuery{Embedding: vec, TopK: *topK, ReportType: models.ReportType(strings.ToLower(*reportType))}

	var response *models.MatchResponse
	if *serverURL != "" {
		response = &models.MatchResponse{}
		if err := postJSON(*serverURL+"/api/v1/matches", query, response); err != nil {
			fatalf("Match failed: %v", err)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		if err := query.Validate(cfg.Match.TopK, cfg.Match.MaxTopK); err != nil {
			fatalf("%v", err)
		}
		if len(query.Embedding) != components.Vectors.Dimensions() {
			fatalf("embedding has %d dimensions, index expects %d", len(query.Embedding), components.Vectors.Dimensions())
		}
		start := time.Now()
		matches := components.Engine.FindMatches(ctx, query.Embedding, query.TopK, query.ReportType)
		response = &models.MatchResponse{Matches: matches, Total: len(matches), QueryTime: time.Since(start).Milliseconds()}
	}
	if err := cli.WriteMatches(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage and index)")
	inputPath := fs.String("input", "-", "JSON file holding the item report (- for stdin)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	input, err := readItemInput(*inputPath, os.Stdin)
	if err != nil {
		fatalf("%v", err)
	}

	var resp *models.ReportResponse
	if *serverURL != "" {
		resp = &models.ReportResponse{}
		if err := postJSON(*serverURL+"/api/v1/items", input, resp); err != nil {
			fatalf("Report failed: %v", err)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		resp, err = components.Indexer.Report(ctx, input)
		if err != nil {
			fatalf("Report failed: %v", err)
		}
	}
	if err := cli.WriteReport(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: lostfound import [flags] <items.json>")
		os.Exit(1)
	}
	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	n, err := components.Indexer.ImportFile(ctx, fs.Arg(0))
	fmt.Printf("Imported %d items from %s\n", n, fs.Arg(0))
	if err != nil {
		fatalf("Import stopped: %v", err)
	}
}

// discoverQuery builds the query string for GET /api/v1/items.
func discoverQuery(q string, filter models.ItemFilter) url.Values {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if filter.ReportType != "" {
		v.Set("report_type", string(filter.ReportType))
	}
	if filter.Category != "" {
		v.Set("category", filter.Category)
	}
	if filter.Location != "" {
		v.Set("location", filter.Location)
	}
	if filter.Oldest {
		v.Set("sort", "oldest")
	}
	if filter.Limit > 0 {
		v.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		v.Set("offset", strconv.Itoa(filter.Offset))
	}
	return v
}

func runDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage)")
	q := fs.String("q", "", "free-text search over category, type, description and location")
	fuzzy := fs.Bool("fuzzy", false, "tolerate typos in --q")
	reportType := fs.String("report-type", "", "lost or found")
	category := fs.String("category", "", "category substring")
	location := fs.String("location", "", "location substring")
	oldest := fs.Bool("oldest", false, "oldest first (default newest first)")
	limit := fs.Int("limit", 20, "maximum items")
	offset := fs.Int("offset", 0, "items to skip")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	filter := models.ItemFilter{
		Category: *category,
		Location: *location,
		Oldest:   *oldest,
		Limit:    *limit,
		Offset:   *offset,
	}
	if *reportType != "" {
		rt, err := models.ParseReportType(*reportType)
		if err != nil {
			fatalf("%v", err)
		}
		filter.ReportType = rt
	}

	var items []*models.ItemRecord
	if *serverURL != "" {
		var resp struct {
			Items []*models.ItemRecord `json:"items"`
		}
		v := discoverQuery(*q, filter)
		if *fuzzy {
			v.Set("fuzzy", "true")
		}
		u := *serverURL + "/api/v1/items?" + v.Encode()
		if err := getJSON(u, &resp); err != nil {
			fatalf("Discover failed: %v", err)
		}
		items = resp.Items
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		items, err = discoverLocal(ctx, components, *q, *fuzzy, filter)
		if err != nil {
			fatalf("Discover failed: %v", err)
		}
	}
	if err := cli.WriteItems(os.Stdout, items, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// discoverLocal lists records from the local store, narrowing by keyword search when q is set.
func discoverLocal(ctx context.Context, c *Components, q string, fuzzy bool, filter models.ItemFilter) ([]*models.ItemRecord, error) {
	if strings.TrimSpace(q) == "" {
		return c.Storage.List(ctx, filter)
	}
	hits, err := c.KeywordIndex.Search(ctx, q, 200, &keyword.SearchOptions{ReportType: filter.ReportType, FuzzyEnabled: fuzzy})
	if err != nil {
		return nil, err
	}
	var items []*models.ItemRecord
	for _, h := range hits {
		rec, err := c.Storage.Get(ctx, h.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if storage.MatchesFilter(rec, filter) {
			items = append(items, rec)
		}
	}
	return storage.Page(items, filter.Offset, filter.Limit), nil
}

func runReconcile() {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "", "server URL (empty = reconcile local files)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var report *reconcile.Report
	if *serverURL != "" {
		report = &reconcile.Report{}
		if err := postJSON(*serverURL+"/api/v1/reconcile", struct{}{}, report); err != nil {
			fatalf("Reconcile failed: %v", err)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		// initializeComponents already reconciled; this pass reports the settled state.
		report, err = components.Reconciler.Reconcile(ctx)
		if err != nil {
			fatalf("Reconcile failed: %v", err)
		}
	}
	if err := cli.WriteReconcile(os.Stdout, report, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	Backend         string  `json:"backend"`
	VectorIndexType string  `json:"vector_index_type"`
	Dimensions      int     `json:"dimensions"`
	ScoreThreshold  float64 `json:"score_threshold"`
	TopK            int     `json:"top_k"`
	RecordsPath     string  `json:"records_path,omitempty"`
	IndexPath       string  `json:"index_path,omitempty"`
	IDMapPath       string  `json:"id_map_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Items           int64                 `json:"items"`
	VectorIndexSize int                   `json:"vector_index_size"`
	DiskUsageBytes  *int64                `json:"disk_usage_bytes,omitempty"`
	Config          *statusConfigResponse `json:"config,omitempty"`
}

func localStatus(ctx context.Context, cfg *config.Config, c *Components) (*statusResponse, error) {
	count, err := c.Storage.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	recordsPath := cfg.Storage.DatabasePath
	if cfg.Storage.Backend == config.BackendJSON {
		recordsPath = cfg.Storage.ItemsPath
	}
	status := &statusResponse{
		Items:           count,
		VectorIndexSize: c.Vectors.Size(),
		Config: &statusConfigResponse{
			Backend:         cfg.Storage.Backend,
			VectorIndexType: c.Vectors.Type(),
			Dimensions:      c.Vectors.Dimensions(),
			ScoreThreshold:  c.Engine.Threshold(),
			TopK:            cfg.Match.TopK,
			RecordsPath:     recordsPath,
			IndexPath:       cfg.Storage.IndexPath,
			IDMapPath:       cfg.Storage.IDMapPath,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(recordsPath, cfg.Storage.IndexPath, cfg.Storage.IDMapPath); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var status *statusResponse
	if *serverURL != "" {
		status = &statusResponse{}
		if err := getJSON(*serverURL+"/api/v1/status", status); err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		ctx := context.Background()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		status, err = localStatus(ctx, cfg, components)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	}
	if err := writeStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func writeStatus(w io.Writer, status *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(w, "items:              %d   # records in the store\n", status.Items)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the similarity index\n", status.VectorIndexSize)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # records + index on disk\n", *status.DiskUsageBytes)
	}
	if c := status.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "backend:            %s\n", c.Backend)
		fmt.Fprintf(w, "vector_index_type:  %s\n", c.VectorIndexType)
		fmt.Fprintf(w, "dimensions:         %d\n", c.Dimensions)
		fmt.Fprintf(w, "score_threshold:    %g\n", c.ScoreThreshold)
		fmt.Fprintf(w, "top_k:              %d\n", c.TopK)
		if c.RecordsPath != "" {
			fmt.Fprintf(w, "records_path:       %s\n", c.RecordsPath)
		}
		if c.IndexPath != "" {
			fmt.Fprintf(w, "index_path:         %s\n", c.IndexPath)
		}
		if c.IDMapPath != "" {
			fmt.Fprintf(w, "id_map_path:        %s\n", c.IDMapPath)
		}
	}
	return nil
}

func postJSON(u string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(u, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(u string, out interface{}) error {
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println(`lostfound - Lost and found similarity matching

Usage:
  lostfound server [flags]            Start the HTTP server
  lostfound match [flags]             Find candidates for a query vector
  lostfound report [flags]            Report a lost or found item
  lostfound import [flags] <file>     Report every item in a JSON array
  lostfound discover [flags]          List and filter reported items
  lostfound reconcile [flags]         Bring the vector index up to date with the records
  lostfound status [flags]            Show store/index status
  lostfound version                   Show version
  lostfound help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/lostfound/config.yaml)
  --debug            Enable debug logging

Match Flags:
  --server string       Server URL (default: http://localhost:8080). Use --server "" for local files.
  --embedding string    JSON file with the query vector, array or {"embedding": [...]} (default: stdin)
  --report-type string  lost or found; only items of the other type are returned
  --top-k int           Candidates to consider (default from config)
  --output string       Output format: text or json

Report Flags:
  --server string    Server URL (default: http://localhost:8080)
  --input string     JSON file with the item report (default: stdin)

Discover Flags:
  --q string            Free-text search
  --fuzzy               Tolerate typos in --q
  --report-type string  lost or found
  --category string     Category substring
  --location string     Location substring
  --oldest              Oldest first
  --limit int           Maximum items (default: 20)
  --offset int          Items to skip

Examples:
  lostfound server
  lostfound match --report-type lost --embedding query.json
  lostfound report --input wallet.json
  lostfound import --config ./config.yaml items.json
  lostfound discover --report-type found --category wallet
  lostfound reconcile --config ./config.yaml
  lostfound status --output json`)
}
