// Package backend builds record stores from configuration.
package backend

import (
	"context"
	"fmt"

	"folio/internal/config"
	ports "folio/internal/sheets"
)

// Type names a record store implementation.
type Type string

const (
	Memory Type = config.BackendMemory
	XLSX   Type = config.BackendXLSX
	SQLite Type = config.BackendSQLite
	Sheets Type = config.BackendSheets
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case Memory, XLSX, SQLite, Sheets:
		return true
	default:
		return false
	}
}

// Locator is implemented by stores persisted somewhere addressable.
type Locator interface {
	Location() string
	Exists(ctx context.Context) (bool, error)
}

// CleanupFunc releases resources held by a store.
type CleanupFunc func() error

// Result is a ready store with its cleanup function, which may be nil.
type Result struct {
	Type    Type
	Store   ports.RecordStore
	Cleanup CleanupFunc
}

// Info describes where the records live.
type Info struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Exists   bool   `json:"exists"`
}

// Describe reports the backend name, location and whether the backing file
// or spreadsheet exists. In-memory stores always exist.
func (r *Result) Describe(ctx context.Context) (Info, error) {
	info := Info{Backend: r.Type.String(), Location: "memory", Exists: true}
	loc, ok := r.Store.(Locator)
	if !ok {
		return info, nil
	}
	exists, err := loc.Exists(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("check storage: %w", err)
	}
	info.Location = loc.Location()
	info.Exists = exists
	return info, nil
}

// Close runs the cleanup function when present.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Config holds what the factory needs to build stores.
type Config struct {
	Type Type

	WorkbookPath string
	SQLiteDBPath string

	GoogleSpreadsheetID string

	MirrorWorkbookPath string
}

// FromAppConfig extracts the backend settings from the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:                t,
		WorkbookPath:        appConfig.WorkbookPath,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		MirrorWorkbookPath:  appConfig.MirrorWorkbookPath,
	}, nil
}

// Validate checks the settings required by the selected type.
func (c Config) Validate() error {
	switch c.Type {
	case Memory:
	case XLSX:
		if c.WorkbookPath == "" {
			return fmt.Errorf("workbook path is required for xlsx backend")
		}
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case Sheets:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}
