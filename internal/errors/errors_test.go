package errors

import (
	"errors"
	"io"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{"not found", NotFound("row"), http.StatusNotFound, ErrNotFound, "row not found"},
		{"row not found", RowNotFound(7), http.StatusNotFound, ErrRowNotFound, "row 7 not found"},
		{"bad request", BadRequest("nope"), http.StatusBadRequest, ErrValidationFailed, "nope"},
		{"missing field", MissingField("field"), http.StatusBadRequest, ErrMissingField, "Missing required field: field"},
		{"fetch failed", FetchFailed("HTTP error: 503", 503), http.StatusBadGateway, ErrFetchFailed, "HTTP error: 503"},
		{"conflict", Conflict("busy"), http.StatusConflict, ErrConflict, "busy"},
		{"too many", TooManyRequests(), http.StatusTooManyRequests, ErrRateLimited, "Too many requests"},
		{"internal wrapped", InternalWithError("failed", io.EOF), http.StatusInternalServerError, ErrInternal, "failed: EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tt.wantStatus)
			}
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %s, want %s", got, tt.wantCode)
			}
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestDetails(t *testing.T) {
	if d := FetchFailed("x", 0).Details(); d != nil {
		t.Errorf("expected no details for transport failure, got %v", d)
	}
	if d := FetchFailed("x", 404).Details(); d["remote_status"] != 404 {
		t.Errorf("expected remote_status 404, got %v", d)
	}
	if d := RowNotFound(3).Details(); d["index"] != 3 {
		t.Errorf("expected index 3, got %v", d)
	}
}

func TestUnwrap(t *testing.T) {
	var ews ErrorWithStatus
	err := error(InvalidFormat("index", io.ErrUnexpectedEOF))
	if !errors.As(err, &ews) || ews.StatusCode() != http.StatusBadRequest {
		t.Fatalf("expected ErrorWithStatus, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected wrapped error to be reachable")
	}
}
