// Package table holds the live dataset shown to the user together with its
// sort order, and derives the rendered view from them.
package table

import (
	"slices"
	"strings"
	"sync"

	"github.com/maruel/pagetable/internal/record"
)

// ActionsHeader is the trailing column holding the per-row remove action.
const ActionsHeader = "actions"

// Direction is a sort direction. The zero value means unsorted.
type Direction int

// Sort directions.
const (
	None Direction = iota
	Asc
	Desc
)

func (d Direction) String() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	case None:
		return ""
	default:
		return ""
	}
}

// Arrow is the header hint of the direction.
func (d Direction) Arrow() string {
	switch d {
	case Asc:
		return "↑"
	case Desc:
		return "↓"
	case None:
		return ""
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// SortSpec is the active sort. Field is empty iff Direction is None.
type SortSpec struct {
	Field     string    `json:"field,omitempty" yaml:"field,omitempty"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Next returns the spec after the user activates field.
//
// Repeated activation of one field cycles none, ascending, descending,
// none. Activating another field starts it ascending.
func (s SortSpec) Next(field string) SortSpec {
	if s.Field != field {
		return SortSpec{Field: field, Direction: Asc}
	}
	switch s.Direction {
	case Asc:
		return SortSpec{Field: field, Direction: Desc}
	case Desc:
		return SortSpec{}
	case None:
		return SortSpec{Field: field, Direction: Asc}
	default:
		return SortSpec{}
	}
}

// Column is a rendered header cell. Action marks the trailing remove column,
// which is never a record field even when a record has a field of the same
// name.
type Column struct {
	Name   string `json:"name"`
	Arrow  string `json:"arrow,omitempty"`
	Action bool   `json:"action,omitempty"`
}

// Label is the header text including its arrow.
func (c Column) Label() string {
	if c.Arrow == "" {
		return c.Name
	}
	return c.Name + " " + c.Arrow
}

// Row is a rendered row. Index is its position in the unsorted dataset and
// is the argument to RemoveAt.
type Row struct {
	Index  int            `json:"index"`
	Record *record.Record `json:"record"`
}

// View is the full rendered model.
type View struct {
	Columns   []Column `json:"columns"`
	Rows      []Row    `json:"rows"`
	Sort      SortSpec `json:"sort"`
	Loading   bool     `json:"loading"`
	ShowTable bool     `json:"show_table"`
}

// State is the live dataset and sort spec. It is safe for concurrent use.
type State struct {
	mu   sync.RWMutex
	data record.Dataset
	sort SortSpec
}

// New returns an empty state.
func New() *State {
	return &State{}
}

// AppendPage appends records in order.
func (s *State) AppendPage(page record.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, page...)
}

// RemoveAt deletes the record at index i of the unsorted dataset. Out of
// range indexes are ignored; it reports whether a record was removed.
func (s *State) RemoveAt(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.data) {
		return false
	}
	s.data = slices.Delete(s.data, i, i+1)
	return true
}

// Clear empties the dataset. The sort spec is kept.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
}

// SetSortField advances the sort spec for field and returns the new spec.
func (s *State) SetSortField(field string) SortSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Next(field)
	return s.sort
}

// Sort returns the current sort spec.
func (s *State) Sort() SortSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// Len returns the number of records.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Headers returns the keys of the first record followed by ActionsHeader,
// or an empty slice when there is no data.
func (s *State) Headers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headersLocked()
}

// Fields returns the keys of the first record, the sortable columns.
func (s *State) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) == 0 {
		return []string{}
	}
	return s.data[0].Keys()
}

// Rows returns the rows in display order.
func (s *State) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rowsLocked()
}

// View derives the rendered model. loading is whether a load is in flight.
func (s *State) View(loading bool) View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cols := []Column{}
	if len(s.data) > 0 {
		for _, k := range s.data[0].Keys() {
			c := Column{Name: k}
			if k == s.sort.Field {
				c.Arrow = s.sort.Direction.Arrow()
			}
			cols = append(cols, c)
		}
		cols = append(cols, Column{Name: ActionsHeader, Action: true})
	}
	return View{
		Columns:   cols,
		Rows:      s.rowsLocked(),
		Sort:      s.sort,
		Loading:   loading,
		ShowTable: len(s.data) > 0 || loading,
	}
}

func (s *State) headersLocked() []string {
	if len(s.data) == 0 {
		return []string{}
	}
	return append(s.data[0].Keys(), ActionsHeader)
}

func (s *State) rowsLocked() []Row {
	rows := make([]Row, len(s.data))
	for i, r := range s.data {
		rows[i] = Row{Index: i, Record: r}
	}
	if s.sort.Direction == None {
		return rows
	}
	field := s.sort.Field
	sign := 1
	if s.sort.Direction == Desc {
		sign = -1
	}
	// Ties keep insertion order in both directions.
	slices.SortStableFunc(rows, func(a, b Row) int {
		return sign * strings.Compare(a.Record.String(field), b.Record.String(field))
	})
	return rows
}
