package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"receipts/internal/core"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// decodeJSON reads exactly one JSON value into dst. Unknown fields are
// rejected so typos in field names do not silently become missing values.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// confirmed reports whether ?confirm= is a true boolean.
func confirmed(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}

// parsePeriod reads ?period=, the default period when absent.
func parsePeriod(r *http.Request) (core.Period, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return core.DefaultPeriod, nil
	}
	return core.ParsePeriod(raw)
}

// parseDimension reads ?dimension= and ?id=. Every kind but all needs a
// positive id.
func parseDimension(r *http.Request) (core.Dimension, error) {
	q := r.URL.Query()
	var id int64
	if raw := q.Get("id"); raw != "" {
		var err error
		if id, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return core.Dimension{}, fmt.Errorf("invalid id %q", raw)
		}
	}
	return dimensionOf(q.Get("dimension"), id)
}

func dimensionOf(kindName string, id int64) (core.Dimension, error) {
	kind, err := core.ParseDimensionKind(kindName)
	if err != nil {
		return core.Dimension{}, err
	}
	if kind == core.AllSpending {
		return core.All, nil
	}
	if id <= 0 {
		return core.Dimension{}, fmt.Errorf("dimension %s needs a positive id", kind)
	}
	return core.DimensionOf(kind, id), nil
}
