package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/jobmatch/internal/config"
	"github.com/dshills/jobmatch/internal/dataset"
	"github.com/dshills/jobmatch/internal/embedder"
	"github.com/dshills/jobmatch/internal/logging"
	"github.com/dshills/jobmatch/internal/mcp"
	"github.com/dshills/jobmatch/internal/metrics"
	"github.com/dshills/jobmatch/internal/recommender"
	"github.com/dshills/jobmatch/internal/report"
)

const prompt = "Enter a job description, skills, or keywords to find similar jobs: "

var errUsage = errors.New("usage")

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	embedder *embedder.CachingEmbedder
	rec      *recommender.Recommender
}

func newApp(configPath, logFormat string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.New(stderr, cfg.LogLevel, logFormat)
	m := metrics.New()

	emb, err := embedder.New(cfg.EmbedderConfig(), logger, m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	rec, err := recommender.New(recommender.Options{
		Embedder: emb,
		TopK:     cfg.MaxRecommendations,
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		_ = emb.Close()
		return nil, err
	}

	logger.Debug("configuration loaded",
		"provider", emb.Provider(),
		"model", emb.Model(),
		"dimension", emb.Dimension(),
		"cache_file", cfg.CacheFile,
		"cache_entries", emb.CacheLen())

	return &app{cfg: cfg, logger: logger, metrics: m, embedder: emb, rec: rec}, nil
}

func (a *app) close() {
	if err := a.embedder.Close(); err != nil {
		a.logger.Warn("failed to close embedder", "error", err)
	}
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	if len(args) > 0 && args[0] == "serve" {
		err = runServe(ctx, args[1:], stdin, stdout, stderr)
	} else {
		err = runRecommend(ctx, args, stdin, stdout, stderr)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "jobmatch: %v\n", err)
		return 1
	}
}

func runRecommend(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("jobmatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	logFormat := fs.String("log-format", logging.FormatText, "log format: text or json")
	query := fs.String("query", "", "query text; prompts on stdin when neither -query nor -query-file is set")
	queryFile := fs.String("query-file", "", "read the query from a text file")
	datasetPath := fs.String("dataset", "", "CSV dataset, overrides DATASET")
	limit := fs.Int("limit", 0, "number of recommendations, overrides MAX_RECOMMENDATIONS")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *query != "" && *queryFile != "" {
		fmt.Fprintln(stderr, "-query and -query-file are mutually exclusive")
		return errUsage
	}
	if *limit < 0 {
		fmt.Fprintln(stderr, "-limit must not be negative")
		return errUsage
	}

	a, err := newApp(*configPath, *logFormat, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	text, err := readQuery(*query, *queryFile, stdin, stdout)
	if err != nil {
		return err
	}

	path := a.cfg.Dataset
	if *datasetPath != "" {
		path = *datasetPath
	}

	results, err := a.rec.RecommendN(ctx, text, path, *limit)
	if err != nil {
		return err
	}
	return report.NewPrinter(stdout).Print(results)
}

// readQuery picks the query from the flag, the file, or one line of stdin.
func readQuery(query, queryFile string, stdin io.Reader, stdout io.Writer) (string, error) {
	switch {
	case query != "":
		return query, nil
	case queryFile != "":
		return dataset.ReadText(queryFile)
	}

	if _, err := fmt.Fprint(stdout, prompt); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read query: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runServe(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("jobmatch serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	logFormat := fs.String("log-format", logging.FormatText, "log format: text or json")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	a, err := newApp(*configPath, *logFormat, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := mcp.NewServer(mcp.Options{
		Version:     version,
		Recommender: a.rec,
		Embedding:   a.embedder,
		Dataset:     a.cfg.Dataset,
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	a.logger.Info("jobmatch MCP server starting", "version", version)

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		// The client closing stdin ends the session and stops the metrics listener.
		defer cancel()
		return srv.Serve(serveCtx, stdin, stdout)
	})
	if addr := a.cfg.MetricsAddr; addr != "" {
		g.Go(func() error {
			a.logger.Info("metrics listening", "addr", addr)
			return a.metrics.Serve(serveCtx, addr)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
