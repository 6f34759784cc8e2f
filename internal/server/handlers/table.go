// Package handlers implements the JSON API over the table view.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	apierrors "github.com/maruel/pagetable/internal/errors"
	"github.com/maruel/pagetable/internal/loader"
	"github.com/maruel/pagetable/internal/remote"
	"github.com/maruel/pagetable/internal/table"
)

// Cursor exposes the page cursor of the cache.
type Cursor interface {
	Offset() int
	PageSize() int
}

// Handler serves the API.
type Handler struct {
	co      *loader.Coordinator
	cursor  Cursor
	version string
}

// New returns the API handler.
func New(co *loader.Coordinator, cursor Cursor, version string) *Handler {
	return &Handler{co: co, cursor: cursor, version: version}
}

// ViewResponse is the rendered table and the page cursor.
type ViewResponse struct {
	table.View
	Offset   int `json:"offset"`
	PageSize int `json:"page_size"`
}

// LoadResponse reports a load trigger and the resulting view.
type LoadResponse struct {
	loader.Result
	View ViewResponse `json:"view"`
}

// ViewRequest is empty.
type ViewRequest struct{}

// Validate implements server.Validatable.
func (*ViewRequest) Validate() error { return nil }

// LoadRequest is empty.
type LoadRequest struct{}

// Validate implements server.Validatable.
func (*LoadRequest) Validate() error { return nil }

// SortRequest toggles the sort on a column.
type SortRequest struct {
	Field string `json:"field"`
}

// Validate implements server.Validatable.
func (r *SortRequest) Validate() error {
	if r.Field == "" {
		return apierrors.MissingField("field")
	}
	return nil
}

// RemoveRowRequest removes one row by its storage index.
type RemoveRowRequest struct {
	Index string `path:"index"`

	index int
}

// Validate implements server.Validatable.
func (r *RemoveRowRequest) Validate() error {
	if r.Index == "" {
		return apierrors.MissingField("index")
	}
	n, err := strconv.Atoi(r.Index)
	if err != nil {
		return apierrors.InvalidFormat("index", err)
	}
	r.index = n
	return nil
}

// ClearRequest is empty.
type ClearRequest struct{}

// Validate implements server.Validatable.
func (*ClearRequest) Validate() error { return nil }

// View returns the current view.
func (h *Handler) View(ctx context.Context, req *ViewRequest) (*ViewResponse, error) {
	v := h.view()
	return &v, nil
}

// Load runs the initial load. It is only offered while the table is empty.
func (h *Handler) Load(ctx context.Context, req *LoadRequest) (*LoadResponse, error) {
	if h.co.State().Len() > 0 {
		return nil, apierrors.Conflict("data is already loaded")
	}
	return h.load(h.co.InitialLoad(ctx))
}

// More loads the next page, as when the user scrolls near the bottom.
func (h *Handler) More(ctx context.Context, req *LoadRequest) (*LoadResponse, error) {
	return h.load(h.co.OnScrollProximity(ctx))
}

// Sort advances the sort cycle of a column.
func (h *Handler) Sort(ctx context.Context, req *SortRequest) (*ViewResponse, error) {
	s := h.co.State()
	// The active field stays accepted so its cycle can be finished after the
	// rows holding it were removed.
	known := slices.Contains(s.Fields(), req.Field) || (req.Field != "" && req.Field == s.Sort().Field)
	if !known {
		return nil, apierrors.NewAPIError(http.StatusBadRequest, apierrors.ErrUnknownField, "unknown field: "+req.Field).WithDetail("field", req.Field)
	}
	s.SetSortField(req.Field)
	v := h.view()
	return &v, nil
}

// RemoveRow deletes a row by storage index.
func (h *Handler) RemoveRow(ctx context.Context, req *RemoveRowRequest) (*ViewResponse, error) {
	if !h.co.State().RemoveAt(req.index) {
		return nil, apierrors.RowNotFound(req.index)
	}
	v := h.view()
	return &v, nil
}

// Clear erases the persisted data and the table.
func (h *Handler) Clear(ctx context.Context, req *ClearRequest) (*ViewResponse, error) {
	if err := h.co.ClearAll(ctx); err != nil {
		return nil, apierrors.NewAPIError(http.StatusInternalServerError, apierrors.ErrStorageError, "failed to clear data").Wrap(err)
	}
	v := h.view()
	return &v, nil
}

func (h *Handler) load(res loader.Result, err error) (*LoadResponse, error) {
	if err != nil {
		var fe *remote.FetchError
		if errors.As(err, &fe) {
			return nil, apierrors.FetchFailed(fe.Error(), fe.Status)
		}
		return nil, apierrors.NewAPIError(http.StatusInternalServerError, apierrors.ErrStorageError, "failed to load page").Wrap(err)
	}
	return &LoadResponse{Result: res, View: h.view()}, nil
}

func (h *Handler) view() ViewResponse {
	return ViewResponse{
		View:     h.co.View(),
		Offset:   h.cursor.Offset(),
		PageSize: h.cursor.PageSize(),
	}
}
