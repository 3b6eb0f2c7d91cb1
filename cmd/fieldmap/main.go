// Package main is the fieldmap CLI entry point.
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
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/fieldmap/internal/cli"
	"github.com/hyperjump/fieldmap/internal/config"
	"github.com/hyperjump/fieldmap/internal/convert"
	"github.com/hyperjump/fieldmap/internal/indexer"
	"github.com/hyperjump/fieldmap/internal/keyword"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/query"
	"github.com/hyperjump/fieldmap/internal/search"
	"github.com/hyperjump/fieldmap/internal/server"
	"github.com/hyperjump/fieldmap/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/fieldmap/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory is preferred, and a missing default file yields the built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "fields":
		runFields()
	case "compile":
		runCompile()
	case "build":
		runBuild()
	case "index":
		runIndex()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("fieldmap version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (metadata resolution, indexing, compiled queries)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
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

	srv := server.NewServer(
		components.Indexer,
		components.Compiler,
		components.KeywordIndex,
		entityTypes(),
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

func runFields() {
	fs := flag.NewFlagSet("fields", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: fieldmap fields [flags] <type>")
		os.Exit(1)
	}
	format := mustOutputFormat(*outputFormat)
	t := mustLookupType(fs.Arg(0))
	components := mustOfflineComponents(*configPath)

	e, err := components.Metadata.Entity(t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid search configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFields(os.Stdout, e, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runCompile() {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Println("Usage: fieldmap compile [flags] <type> <query.json|->")
		os.Exit(1)
	}
	format := mustOutputFormat(*outputFormat)
	t := mustLookupType(fs.Arg(0))
	components := mustOfflineComponents(*configPath)

	data, err := readInput(fs.Arg(1), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read query: %v\n", err)
		os.Exit(1)
	}
	compiled, err := compileQuery(components.Compiler, t, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQuery(os.Stdout, compiled, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Println("Usage: fieldmap build [flags] <type> <entity.json|->")
		os.Exit(1)
	}
	format := mustOutputFormat(*outputFormat)
	t := mustLookupType(fs.Arg(0))
	components := mustOfflineComponents(*configPath)

	data, err := readInput(fs.Arg(1), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read entity: %v\n", err)
		os.Exit(1)
	}
	doc, err := buildDocument(components.Builder, t, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteDocument(os.Stdout, doc, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Println("Usage: fieldmap index [flags] <type> <entity.json|->")
		os.Exit(1)
	}
	t := mustLookupType(fs.Arg(0))
	data, err := readInput(fs.Arg(1), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read entity: %v\n", err)
		os.Exit(1)
	}
	path := "/api/v1/entities/" + strings.ToLower(t.Name()) + "/documents"
	var resp map[string]interface{}
	if err := postJSON(*serverURL+path, data, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Index failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(describeIndexResponse(t.Name(), resp))
}

// describeIndexResponse summarizes the server's answer to a single or batch index request.
func describeIndexResponse(typeName string, resp map[string]interface{}) string {
	if indexed, ok := resp["indexed"]; ok {
		return fmt.Sprintf("indexed %v of %v %s entities", indexed, resp["total"], typeName)
	}
	if id, ok := resp["id"]; ok {
		return fmt.Sprintf("indexed %s/%v", typeName, id)
	}
	return fmt.Sprintf("%s: %v", typeName, resp["status"])
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents      uint64   `json:"documents"`
	EntityTypes    []string `json:"entity_types"`
	DiskUsageBytes *int64   `json:"disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := mustOutputFormat(*outputFormat)
	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Printf("documents:     %d   # count of indexed documents\n", status.Documents)
	fmt.Printf("entity_types:  %s\n", strings.Join(status.EntityTypes, ", "))
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage:    %d   # bytes used by the keyword index\n", *status.DiskUsageBytes)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func postJSON(url string, body []byte, out interface{}) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// compileQuery decodes a JSON query description and compiles it for t.
func compileQuery(c *query.Compiler, t reflect.Type, data []byte) (string, error) {
	var req models.QueryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", fmt.Errorf("invalid query JSON: %w", err)
	}
	q, err := query.FromRequest(&req)
	if err != nil {
		return "", err
	}
	return c.Compile(t, q)
}

// buildDocument decodes a JSON entity of type t and builds its document.
func buildDocument(b *indexer.DocumentBuilder, t reflect.Type, data []byte) (*models.Document, error) {
	entity := reflect.New(t)
	if err := json.Unmarshal(data, entity.Interface()); err != nil {
		return nil, fmt.Errorf("invalid %s JSON: %w", t.Name(), err)
	}
	return b.Build(entity.Interface())
}

// readInput reads the file at path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops at
// the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' {
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

func mustOutputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func mustLookupType(name string) reflect.Type {
	t, ok := lookupType(name)
	if !ok {
		names := make([]string, 0, len(entityTypes()))
		for _, et := range entityTypes() {
			names = append(names, strings.ToLower(et.Name()))
		}
		fmt.Fprintf(os.Stderr, "Unknown entity type %q; available: %s\n", name, strings.Join(names, ", "))
		os.Exit(1)
	}
	return t
}

func mustOfflineComponents(configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeCore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components
}

// Components holds the wired services.
type Components struct {
	Metadata     *search.Metadata
	Converter    *convert.CastConverter
	Builder      *indexer.DocumentBuilder
	Compiler     *query.Compiler
	KeywordIndex keyword.KeywordIndex
	Indexer      *indexer.Indexer
}

// Close releases the keyword index, if one was opened.
func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

// initializeCore wires the metadata, conversion, build and compile services. It opens no index.
func initializeCore(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	registry := metadata.NewRegistry(indexTypes(), metadata.WithLogger(logger))
	if err := registerEntities(registry); err != nil {
		return nil, fmt.Errorf("failed to register entities: %w", err)
	}
	meta := search.NewMetadata(registry)

	loc, err := cfg.Conversion.Location()
	if err != nil {
		return nil, err
	}
	conv := convert.New(
		convert.WithDateLayout(cfg.Conversion.DateLayout),
		convert.WithLocation(loc),
	)
	return &Components{
		Metadata:  meta,
		Converter: conv,
		Builder:   indexer.NewDocumentBuilder(meta, conv),
		Compiler:  query.NewCompiler(meta, conv),
	}, nil
}

// initializeComponents wires the core services plus the keyword index and indexer.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c, err := initializeCore(cfg, logger)
	if err != nil {
		return nil, err
	}
	im, err := keyword.NewIndexMapping(c.Metadata, entityTypes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build index mapping: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath, im)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex
	c.Indexer = indexer.NewIndexer(c.Builder, keywordIndex,
		indexer.WithLogger(logger),
		indexer.WithWorkers(cfg.Indexing.Workers),
	)
	if logger != nil {
		logger.Info("keyword index initialized",
			zap.String("path", cfg.Storage.BleveIndexPath),
			zap.Int("entity_types", len(entityTypes())),
		)
	}
	return c, nil
}

func printUsage() {
	fmt.Println(`fieldmap - Search field mapping and query compilation for Go entities

Usage:
  fieldmap server [flags]                          Start the HTTP server
  fieldmap fields [flags] <type>                   List the searchable fields of an entity type
  fieldmap compile [flags] <type> <query.json|->   Compile a JSON query description
  fieldmap build [flags] <type> <entity.json|->    Build the search document of a JSON entity
  fieldmap index [flags] <type> <entity.json|->    Index a JSON entity (or an array of them) through the server
  fieldmap status [flags]                          Show index status
  fieldmap version                                 Show version
  fieldmap help                                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/fieldmap/config.yaml)
  --debug            Enable debug logging

Fields/Compile/Build Flags:
  --config string    Config file path (date layout and time zone)
  --output string    Output format: text or json (default: text)

Index/Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format for status: text or json (default: text)

Entity types:
  book, author

Examples:
  fieldmap server --debug
  fieldmap fields book
  echo '{"fragments":[{"field":"pages","op":">","value":300}]}' | fieldmap compile book -
  fieldmap build author author.json --output json`)
}
