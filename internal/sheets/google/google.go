package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"folio/internal/core"
	"folio/internal/sheets/tabular"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client keeps the four record sheets in a Google Spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ tabular.Backend = (*Client)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// NewFromEnv creates a Sheets client using service account credentials.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

// Open returns a record store backed by the spreadsheet, creating the record
// sheets with the default configuration when they are missing.
func Open(ctx context.Context, c *Client) (*tabular.Store, error) {
	s := tabular.NewStore(c)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Location() string {
	return "https://docs.google.com/spreadsheets/d/" + c.spreadsheetID
}

func (c *Client) Exists(ctx context.Context) (bool, error) {
	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return false, err
	}
	return titles[tabular.SheetAccounts], nil
}

func (c *Client) sheetTitles(ctx context.Context) (map[string]bool, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	titles := make(map[string]bool, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}
	return titles, nil
}

func (c *Client) Load(ctx context.Context) (core.Snapshot, error) {
	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	var names, ranges []string
	for _, t := range tabular.Tables {
		name := t.Name
		if !titles[name] {
			name = t.Legacy
		}
		if name == "" || !titles[name] {
			continue
		}
		names = append(names, name)
		ranges = append(ranges, tabular.Range(name, len(t.Header)+4))
	}
	if len(ranges) == 0 {
		return core.Snapshot{}, nil
	}

	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(ranges...).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read %v: %w", ranges, err)
	}
	wb := tabular.Workbook{}
	for i, vr := range resp.ValueRanges {
		if i >= len(names) {
			break
		}
		rows := make([][]string, len(vr.Values))
		for j, row := range vr.Values {
			rows[j] = toStrings(row)
		}
		wb[names[i]] = rows
	}
	return tabular.Decode(wb), nil
}

// Save creates missing sheets, clears the record sheets and writes every row.
func (c *Client) Save(ctx context.Context, snap core.Snapshot) error {
	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return err
	}
	var add []*gsheet.Request
	for _, t := range tabular.Tables {
		if !titles[t.Name] {
			add = append(add, &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: t.Name},
			}})
		}
	}
	if len(add) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: add}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("create record sheets: %w", err)
		}
	}

	sheets := tabular.Encode(snap)
	ranges := make([]string, 0, len(sheets))
	data := make([]*gsheet.ValueRange, 0, len(sheets))
	for _, sh := range sheets {
		ranges = append(ranges, tabular.Range(sh.Table.Name, len(sh.Table.Header)+4))
		data = append(data, &gsheet.ValueRange{
			Range:  sh.Table.Name + "!A1",
			Values: sh.Rows,
		})
	}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{Ranges: ranges}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear record sheets: %w", err)
	}
	_, err = c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write record sheets: %w", err)
	}
	return nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
