package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/pagetable/internal/errors"
)

// maxBodySize bounds request bodies; every request is a small JSON object.
const maxBodySize = 64 << 10

// Validatable is implemented by every request type.
type Validatable interface {
	Validate() error
}

// Wrap adapts fn to an http.Handler.
//
// The request body, when present, is decoded as JSON into In. Fields tagged
// `path:"name"` are filled from r.PathValue and fields tagged
// `query:"name"` from the query string. Validate is called before fn.
//
// Example:
//
//	type RemoveRowRequest struct {
//	    Index string `path:"index"`
//	}
//
//	func (h *Handler) RemoveRow(ctx context.Context, req *RemoveRowRequest) (*ViewResponse, error)
func Wrap[In any, PtrIn interface {
	*In
	Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeErrorResponse(w, http.StatusBadRequest, apierrors.ErrValidationFailed, "Failed to read request body", nil)
			return
		}
		if len(body) > maxBodySize {
			writeErrorResponse(w, http.StatusRequestEntityTooLarge, apierrors.ErrValidationFailed, "Request body too large", nil)
			return
		}
		input := PtrIn(new(In))
		if len(body) > 0 {
			d := json.NewDecoder(bytes.NewReader(body))
			d.DisallowUnknownFields()
			if err := d.Decode(input); err != nil {
				slog.WarnContext(ctx, "Failed to decode request body", "err", err)
				writeErrorResponse(w, http.StatusBadRequest, apierrors.ErrInvalidFormat, "Invalid request body", nil)
				return
			}
		}
		populateTaggedFields(input, "path", r.PathValue)
		populateTaggedFields(input, "query", r.URL.Query().Get)
		if err := input.Validate(); err != nil {
			writeError(ctx, w, err)
			return
		}

		output, err := fn(ctx, input)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// populateTaggedFields sets string, int and bool fields tagged with tag to
// lookup(name). Empty values are skipped.
func populateTaggedFields(input any, tag string, lookup func(string) string) {
	elem := reflect.ValueOf(input).Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		name := field.Tag.Get(tag)
		if name == "" {
			continue
		}
		value := lookup(name)
		if value == "" {
			continue
		}
		//nolint:exhaustive // Only string, int and bool parameters are used.
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(value)
		case reflect.Int:
			if n, err := strconv.Atoi(value); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		case reflect.Bool:
			if b, err := strconv.ParseBool(value); err == nil {
				elem.Field(i).SetBool(b)
			}
		default:
		}
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	code := apierrors.ErrInternal
	var details map[string]any
	var ews apierrors.ErrorWithStatus
	if errors.As(err, &ews) {
		statusCode = ews.StatusCode()
		code = ews.Code()
		details = ews.Details()
	}
	if statusCode >= 500 {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", code)
	} else {
		slog.InfoContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", code)
	}
	writeErrorResponse(w, statusCode, code, err.Error(), details)
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error   errorBody      `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type errorBody struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code apierrors.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   errorBody{Code: code, Message: message},
		Details: details,
	})
}
