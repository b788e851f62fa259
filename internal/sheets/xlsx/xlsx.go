// Package xlsx stores records in a single Excel workbook on disk.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"folio/internal/core"
	"folio/internal/sheets/tabular"
)

const defaultSheet = "Sheet1"

// Workbook is a tabular.Backend reading and writing one .xlsx file.
type Workbook struct {
	path string
}

var _ tabular.Backend = (*Workbook)(nil)

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Open returns a record store backed by the workbook at path, creating the
// file with the default configuration when it does not exist.
func Open(ctx context.Context, path string) (*tabular.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create workbook directory: %w", err)
	}
	s := tabular.NewStore(NewWorkbook(path))
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (w *Workbook) Location() string { return w.path }

func (w *Workbook) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (w *Workbook) Load(ctx context.Context) (core.Snapshot, error) {
	ok, err := w.Exists(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	if !ok {
		return core.Snapshot{}, nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	wb := tabular.Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("read sheet %s: %w", name, err)
		}
		wb[name] = rows
	}
	return tabular.Decode(wb), nil
}

// Save rewrites the whole workbook. The file is written next to the target
// and renamed over it.
func (w *Workbook) Save(_ context.Context, snap core.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, sh := range tabular.Encode(snap) {
		name := sh.Table.Name
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		for r := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &sh.Rows[r]); err != nil {
				return fmt.Errorf("write %s!%s: %w", name, cell, err)
			}
		}
		last, err := excelize.ColumnNumberToName(len(sh.Table.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, "A", last, 22); err != nil {
			return err
		}
		if err := f.SetRowStyle(name, 1, 1, bold); err != nil {
			return err
		}
	}

	tmp := filepath.Join(filepath.Dir(w.path), ".tmp-"+filepath.Base(w.path))
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace %s: %w", w.path, err)
	}
	return nil
}
