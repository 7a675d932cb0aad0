package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/llm/openai"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
	"github.com/joseph-ayodele/docstruct/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory of documents to process (required)")
		out     = flag.String("out", "", "output directory for CSV files and workbook (defaults to <dir>/structured)")
		dbPath  = flag.String("db", "docstruct.db", "SQLite session store path")
		inmem   = flag.Bool("inmem", false, "use an in-memory session store")
		workers = flag.Int("workers", 0, "extraction concurrency (defaults to EXTRACT_CONCURRENCY)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(*dir, "structured")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Pipeline.ExtractConcurrency = *workers
	}

	ctx := context.Background()

	dsn := *dbPath
	if *inmem {
		dsn = ":memory:"
	}
	store, err := repository.NewSQLiteStore(ctx, dsn, logger)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing session store", "error", err)
		}
	}()

	source := document.NewFSSource(*dir, logger)
	docs, err := source.ListDocuments(ctx, "")
	if err != nil {
		logger.Error("failed to list documents", "dir", *dir, "error", err)
		os.Exit(1)
	}

	capability := openai.NewClient(openai.FromCommon(cfg.LLM), logger)
	orch := pipeline.NewOrchestrator(capability, logger,
		pipeline.WithExtractConcurrency(cfg.Pipeline.ExtractConcurrency))

	sessionID := uuid.New().String()
	st, runErr := orch.Run(ctx, sessionID, docs)
	if err := store.SaveSession(ctx, st); err != nil {
		logger.Error("failed to persist session", "session_id", sessionID, "error", err)
	}
	if runErr != nil {
		logger.Error("pipeline failed", "session_id", sessionID, "error", runErr)
		os.Exit(1)
	}

	exporter := export.NewService(logger)
	files, err := exporter.WriteTablesCSV(st.Tables, *out)
	if err != nil {
		logger.Error("csv export failed", "error", err)
		os.Exit(1)
	}
	xlsx, err := exporter.TablesXLSX(st.Tables)
	if err != nil {
		logger.Error("xlsx export failed", "error", err)
		os.Exit(1)
	}
	workbook := filepath.Join(*out, "tables.xlsx")
	if err := os.WriteFile(workbook, xlsx, 0o644); err != nil {
		logger.Error("writing workbook failed", "path", workbook, "error", err)
		os.Exit(1)
	}

	logger.Info("session complete",
		"session_id", sessionID,
		"outcome", st.Outcome(),
		"documents", len(docs),
		"records", len(st.Records),
		"tables", len(st.Tables),
		"csv_files", len(files),
		"workbook", workbook,
	)
	for _, e := range st.Errors {
		logger.Warn("session error", "stage", e.Stage, "document", e.Document, "message", e.Message)
	}
}
