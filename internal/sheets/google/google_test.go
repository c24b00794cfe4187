package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"receipts/internal/config"
	"receipts/internal/core"
	"receipts/internal/storage"
)

// fakeSheet serves the handful of Sheets API calls the client makes
// against an in-memory grid.
type fakeSheet struct {
	mu   sync.Mutex
	rows [][]string
}

var rowRangePattern = regexp.MustCompile(`![A-Z]+(\d+):[A-Z]+(\d+)$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		values := make([][]any, 0, len(f.rows))
		last := 0
		for i, row := range f.rows {
			if len(row) > 0 && row[0] != "" {
				last = i + 1
			}
		}
		for _, row := range f.rows[:last] {
			if len(row) == 0 || row[0] == "" {
				values = append(values, []any{})
				continue
			}
			values = append(values, []any{row[0]})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"values": values})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		start := len(f.rows) + 1
		for _, row := range vr.Values {
			f.rows = append(f.rows, toStrings(row))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": fmt.Sprintf("Receipts!A%d:M%d", start, len(f.rows))},
		})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchClear"):
		var req gsheet.BatchClearValuesRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rng := range req.Ranges {
			m := rowRangePattern.FindStringSubmatch(rng)
			if m == nil {
				http.Error(w, "bad range "+rng, http.StatusBadRequest)
				return
			}
			row, _ := strconv.Atoi(m[1])
			if row-1 < len(f.rows) {
				f.rows[row-1] = nil
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"clearedRanges": req.Ranges})

	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.rows = nil
		_ = json.NewEncoder(w).Encode(map[string]any{})

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.rows = f.rows[:0]
		for _, row := range vr.Values {
			f.rows = append(f.rows, toStrings(row))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": len(vr.Values)})

	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func (f *fakeSheet) snapshot() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.rows))
	copy(out, f.rows)
	return out
}

func toStrings(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func newFakeClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Receipts", time.UTC), fake
}

func details(id int64, items ...string) storage.TransactionDetails {
	d := storage.TransactionDetails{
		Transaction: core.Transaction{ID: id, Date: time.Date(2024, 3, int(id), 12, 0, 0, 0, time.UTC), TotalCost: core.Money{Cents: 100 * id}},
		ShopName:    "Corner",
	}
	for i, name := range items {
		d.Items = append(d.Items, storage.ItemRecord{
			Item:        core.Item{ID: id*10 + int64(i), Price: core.Money{Cents: 100}, Quantity: core.Units},
			ProductName: name,
		})
	}
	return d
}

func TestWriteTransactionAddsHeaderOnce(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	ref, err := c.WriteTransaction(ctx, details(1, "Milk", "Bread"))
	require.NoError(t, err)
	assert.Equal(t, "Receipts!A1:M3", ref)

	_, err = c.WriteTransaction(ctx, details(2, "Eggs"))
	require.NoError(t, err)

	rows := fake.snapshot()
	require.Len(t, rows, 4)
	assert.Equal(t, "Transaction", rows[0][0])
	assert.Equal(t, []string{"1", "1"}, []string{rows[1][0], rows[2][0]})
	assert.Equal(t, "Eggs", rows[3][6])
}

func TestWriteTransactionReplacesRows(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	_, err := c.WriteTransaction(ctx, details(1, "Milk", "Bread"))
	require.NoError(t, err)
	_, err = c.WriteTransaction(ctx, details(2, "Eggs"))
	require.NoError(t, err)
	_, err = c.WriteTransaction(ctx, details(1, "Butter"))
	require.NoError(t, err)

	var products []string
	for _, row := range fake.snapshot()[1:] {
		if len(row) == 0 {
			continue
		}
		products = append(products, row[0]+":"+row[6])
	}
	assert.Equal(t, []string{"2:Eggs", "1:Butter"}, products)
}

func TestDeleteTransaction(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	_, err := c.WriteTransaction(ctx, details(1, "Milk"))
	require.NoError(t, err)
	_, err = c.WriteTransaction(ctx, details(2, "Eggs"))
	require.NoError(t, err)

	require.NoError(t, c.DeleteTransaction(ctx, 1))
	require.NoError(t, c.DeleteTransaction(ctx, 42))

	rows := fake.snapshot()
	assert.Empty(t, rows[1])
	assert.Equal(t, "2", rows[2][0])
}

func TestReplaceAll(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	_, err := c.WriteTransaction(ctx, details(1, "Milk"))
	require.NoError(t, err)

	require.NoError(t, c.ReplaceAll(ctx, []storage.TransactionDetails{details(3, "Tea"), details(4)}))

	rows := fake.snapshot()
	require.Len(t, rows, 3)
	assert.Equal(t, "Transaction", rows[0][0])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "4", rows[2][0])
}

func TestUninitializedClient(t *testing.T) {
	c := &Client{sheetName: "Receipts"}
	_, err := c.WriteTransaction(context.Background(), details(1))
	assert.Error(t, err)
	assert.Error(t, c.DeleteTransaction(context.Background(), 1))
	assert.Error(t, c.ReplaceAll(context.Background(), nil))
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(tokenFile, []byte(`{"access_token":"test","token_type":"Bearer"}`), 0o600))

	clientJSON := `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{"missing spreadsheet", func(c *config.Config) { c.GoogleSpreadsheetID = "" }, "missing GOOGLE_SPREADSHEET_ID"},
		{"missing client", func(c *config.Config) { c.GoogleOAuthClientJSON = "" }, "oauth client"},
		{"invalid client JSON", func(c *config.Config) { c.GoogleOAuthClientJSON = "invalid-json" }, "oauth config"},
		{"missing token file", func(c *config.Config) { c.GoogleOAuthTokenFile = filepath.Join(dir, "nope.json") }, "oauth token"},
		{"valid", func(c *config.Config) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				GoogleSpreadsheetID:   "sheet-id",
				GoogleSheetName:       "Receipts",
				GoogleOAuthClientJSON: clientJSON,
				GoogleOAuthTokenFile:  tokenFile,
				BucketTimezone:        "UTC",
			}
			tt.modify(cfg)

			c, err := NewFromConfig(context.Background(), cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Receipts", c.sheetName)
		})
	}
}

func TestRowsOf(t *testing.T) {
	ids := []string{"Transaction", "1", "2", "", "1"}
	assert.Equal(t, []int{2, 5}, rowsOf(ids, 1))
	assert.Nil(t, rowsOf(ids, 9))
	assert.Equal(t, "M", lastColumn())
}
