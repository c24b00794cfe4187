package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_GeneratesID(t *testing.T) {
	m := NewMiddleware()

	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/shops", nil))

	if seen == "" {
		t.Fatal("expected a request id in the context")
	}
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id %q should start with req_", seen)
	}
	if got := rec.Header().Get(Header); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
	if got := m.TotalRequests(); got != 1 {
		t.Errorf("TotalRequests() = %d, want 1", got)
	}
}

func TestMiddleware_InboundID(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"well formed", "abc-123.x_y", true},
		{"empty", "", false},
		{"with spaces", "abc 123", false},
		{"header injection", "abc\r\nSet-Cookie: x", false},
		{"too long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := NewMiddleware().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header[Header] = []string{tt.inbound}
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.reuse {
				if seen != tt.inbound {
					t.Errorf("request id = %q, want inbound %q", seen, tt.inbound)
				}
				return
			}
			if seen == tt.inbound {
				t.Errorf("inbound id %q should have been replaced", tt.inbound)
			}
			if !strings.HasPrefix(seen, "req_") {
				t.Errorf("generated id %q should start with req_", seen)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID(empty) = %q, want empty", got)
	}
	if got := GetRequestID(WithRequestID(context.Background(), "x")); got != "x" {
		t.Errorf("GetRequestID = %q, want x", got)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate request id %q after %d ids", id, i)
		}
		seen[id] = true
	}
}
