package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"receipts/internal/config"
	ports "receipts/internal/sheets"
	"receipts/internal/storage"
)

// Client writes transactions to one sheet of a spreadsheet, one row per
// item. Column A holds the transaction id and is used to find the rows of
// a transaction again.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location

	// serializes read-modify-write cycles on the sheet
	mu sync.Mutex
}

var _ ports.Sink = (*Client)(nil)

// NewFromConfig creates a Sheets client authorized with the OAuth client
// and token from cfg, given either inline or as files.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if strings.TrimSpace(cfg.GoogleSpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	clientJSON, err := credential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client: %w", err)
	}
	tokenJSON, err := credential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	svc, err := newSheetsService(ctx, clientJSON, tokenJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, loc), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		loc:           loc,
	}
}

func credential(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return b, nil
	default:
		return nil, errors.New("neither inline JSON nor file given")
	}
}

func newSheetsService(ctx context.Context, clientJSON, tokenJSON []byte) (*gsheet.Service, error) {
	oauthCfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	// the token source refreshes through the pooled client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauthCfg.Client(ctx, &token)

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets")
	return svc, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// lastColumn is the column letter of the last exported field.
func lastColumn() string {
	return string(rune('A' + len(ports.Header) - 1))
}

func (c *Client) columnRange() string {
	return fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn())
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn(), row)
}

// WriteTransaction replaces the rows of t, appending them at the end of the
// sheet. A header is written first when the sheet is empty.
func (c *Client) WriteTransaction(ctx context.Context, t storage.TransactionDetails) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}
	if err := c.clearRows(ctx, rowsOf(ids, t.ID)); err != nil {
		return "", err
	}

	var values [][]any
	if len(ids) == 0 {
		values = append(values, toValues(ports.Header))
	}
	for _, row := range ports.Rows(t, c.loc) {
		values = append(values, toValues(row))
	}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.columnRange(), &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append transaction %d to %s: %w", t.ID, c.sheetName, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Transaction written to sheet", "component", "sheets", "id", t.ID, "ref", ref, "rows", len(values))
	return ref, nil
}

// DeleteTransaction blanks every row of transaction id.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	rows := rowsOf(ids, id)
	if err := c.clearRows(ctx, rows); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction removed from sheet", "component", "sheets", "id", id, "rows", len(rows))
	return nil
}

// ReplaceAll clears the sheet and writes the header followed by ts.
func (c *Client) ReplaceAll(ctx context.Context, ts []storage.TransactionDetails) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.columnRange(), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", c.sheetName, err)
	}

	values := [][]any{toValues(ports.Header)}
	for _, t := range ts {
		for _, row := range ports.Rows(t, c.loc) {
			values = append(values, toValues(row))
		}
	}

	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheetName), &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Sheet rewritten", "component", "sheets", "transactions", len(ts), "rows", len(values))
	return nil
}

// readIDs returns column A. Index i holds row i+1.
func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) clearRows(ctx context.Context, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	ranges := make([]string, len(rows))
	for i, row := range rows {
		ranges[i] = c.rowRange(row)
	}
	_, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, &gsheet.BatchClearValuesRequest{Ranges: ranges}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %d rows of %s: %w", len(rows), c.sheetName, err)
	}
	return nil
}

// rowsOf returns the 1-based sheet rows whose id column equals id.
func rowsOf(ids []string, id int64) []int {
	want := strconv.FormatInt(id, 10)
	var rows []int
	for i, v := range ids {
		if v == want {
			rows = append(rows, i+1)
		}
	}
	return rows
}

func toValues(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
