package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"receipts/internal/core"
	applog "receipts/internal/log"
	"receipts/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Error sets an {"error": msg} body.
func (b *JSONResponseBuilder) Error(msg string) *JSONResponseBuilder {
	b.body = errorBody{Error: msg}
	return b
}

// Write sends the response. A nil body with a 204 status writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

type idBody struct {
	ID int64 `json:"id"`
}

type fieldErrorBody struct {
	Code  string `json:"code"`
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

type failureBody struct {
	Errors []fieldErrorBody `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	NewJSONResponse().Status(status).Error(msg).Write(w)
}

// writeInternal logs err and hides it from the client.
func writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Context().Err() != nil {
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, applog.ComponentHTTP, r.Method, nil)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// writeResult maps a use case outcome to a response. Success answers
// {"id": n} with successStatus. Failure answers the errors with 422, or
// 409 when the only objection is an unconfirmed dangerous delete.
func writeResult[E core.FieldError](w http.ResponseWriter, r *http.Request, entity, op string, successStatus int, res core.Result[E], err error) {
	if err != nil {
		writeInternal(w, r, entity+" "+op+" failed", err)
		return
	}

	switch res := res.(type) {
	case core.Success[E]:
		writeJSON(w, successStatus, idBody{ID: res.ID})
	case core.Failure[E]:
		body := failureBody{Errors: make([]fieldErrorBody, 0, len(res.Errors))}
		problems := make([]string, 0, len(res.Errors))
		status := http.StatusConflict
		for _, e := range res.Errors {
			body.Errors = append(body.Errors, fieldErrorBody{
				Code:  e.String(),
				Field: e.Field(),
				Kind:  e.Kind().String(),
			})
			problems = append(problems, e.String())
			if e.Kind() != core.DangerousDeleteError {
				status = http.StatusUnprocessableEntity
			}
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRejected(r.Context(), entity, op, problems)
		writeJSON(w, status, body)
	default:
		writeInternal(w, r, entity+" "+op+" failed", errors.New("use case returned no result"))
	}
}
