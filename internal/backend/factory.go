package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "folio/internal/sheets/google"
	"folio/internal/sheets/memory"
	"folio/internal/sheets/xlsx"
	"folio/internal/storage"
)

// Factory creates stores for the primary backend and for the mirror.
type Factory struct {
	logger *slog.Logger
	// newSheetsClient is replaced in tests.
	newSheetsClient func(ctx context.Context) (*gsheet.Client, error)
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger, newSheetsClient: gsheet.NewFromEnv}
}

// Create opens the store selected by config.Type.
func (f *Factory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLite(config.SQLiteDBPath)
	case XLSX:
		return f.createXLSX(ctx, config.WorkbookPath)
	case Sheets:
		return f.createSheets(ctx)
	default:
		f.logger.Info("Initialized memory backend")
		return &Result{Type: Memory, Store: memory.New()}, nil
	}
}

// CreateMirror opens the spreadsheet the worker copies records into: the
// Google spreadsheet when one is configured, else a local workbook.
func (f *Factory) CreateMirror(ctx context.Context, config Config) (*Result, error) {
	if config.GoogleSpreadsheetID != "" && config.Type != Sheets {
		return f.createSheets(ctx)
	}
	if config.MirrorWorkbookPath == "" {
		return nil, fmt.Errorf("mirror workbook path is required when no spreadsheet is configured")
	}
	if config.Type == XLSX && config.MirrorWorkbookPath == config.WorkbookPath {
		return nil, fmt.Errorf("mirror workbook must differ from the primary workbook")
	}
	return f.createXLSX(ctx, config.MirrorWorkbookPath)
}

func (f *Factory) createSQLite(path string) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	version, _, err := storage.SchemaVersion(path)
	if err != nil {
		f.logger.Warn("Could not read schema version", "db_path", path, "error", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", path, "schema_version", version)
	return &Result{Type: SQLite, Store: repo, Cleanup: repo.Close}, nil
}

func (f *Factory) createXLSX(ctx context.Context, path string) (*Result, error) {
	store, err := xlsx.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	f.logger.Info("Initialized xlsx backend", "path", path)
	return &Result{Type: XLSX, Store: store}, nil
}

func (f *Factory) createSheets(ctx context.Context) (*Result, error) {
	cli, err := f.newSheetsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	store, err := gsheet.Open(ctx, cli)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "location", store.Location())
	return &Result{Type: Sheets, Store: store}, nil
}
