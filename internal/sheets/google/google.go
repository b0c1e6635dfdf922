// Package google mirrors history entries into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"backoffice/internal/ledger"
)

// valuesAPI is the subset of the Sheets values API the mirror needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Append(ctx context.Context, rng string, rows [][]any) error
}

type sheetsValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (v sheetsValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := v.svc.Spreadsheets.Values.Get(v.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (v sheetsValues) Append(ctx context.Context, rng string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := v.svc.Spreadsheets.Values.Append(v.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

// Client appends ledger entries to one sheet, one row per entry. The entry id
// in column A makes appends idempotent across redeliveries.
type Client struct {
	values valuesAPI
	sheet  string

	mu        sync.Mutex
	known     map[string]struct{}
	loaded    bool
	hasHeader bool
}

// New creates a Sheets client from service account credentials.
func New(ctx context.Context, credentialsJSON []byte, spreadsheetID, sheet string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials for Sheets")
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	return newClient(sheetsValues{svc: svc, spreadsheetID: spreadsheetID}, sheet), nil
}

func newClient(values valuesAPI, sheet string) *Client {
	return &Client{values: values, sheet: sheet, known: map[string]struct{}{}}
}

// AppendEntry writes e unless a row with its id already exists. The header
// row is written first when the sheet is empty.
func (c *Client) AppendEntry(ctx context.Context, e ledger.Entry) error {
	if e.ID == "" {
		return errors.New("history entry without id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadKnown(ctx); err != nil {
		return err
	}
	if _, ok := c.known[e.ID]; ok {
		slog.DebugContext(ctx, "History entry already mirrored", "entry_id", e.ID)
		return nil
	}

	rows := [][]any{entryRow(e)}
	if !c.hasHeader {
		rows = append([][]any{headerRow()}, rows...)
	}
	if err := c.values.Append(ctx, c.rangeA1("A:I"), rows); err != nil {
		return fmt.Errorf("append history entry %s: %w", e.ID, err)
	}
	c.known[e.ID] = struct{}{}
	c.hasHeader = true

	slog.InfoContext(ctx, "History entry mirrored",
		"entry_id", e.ID,
		"action", e.Action,
		"type", e.Type)
	return nil
}

// loadKnown reads the ids already present in column A once per client.
func (c *Client) loadKnown(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	values, err := c.values.Get(ctx, c.rangeA1("A:A"))
	if err != nil {
		return fmt.Errorf("read history ids: %w", err)
	}
	ids, header := parseIDs(values)
	for _, id := range ids {
		c.known[id] = struct{}{}
	}
	c.hasHeader = header
	c.loaded = true
	return nil
}

func (c *Client) rangeA1(cols string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheet, "'", "''"), cols)
}
