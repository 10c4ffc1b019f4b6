package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Page size bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	// ErrInvalidCursor is returned for a cursor that does not decode, or that
	// was issued for another listing.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrNoCursor signals a first page request.
	ErrNoCursor = errors.New("no cursor provided")
)

// PaginationRequest holds the query parameters of a listing.
type PaginationRequest struct {
	// Cursor is the NextCursor of the previous page.
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"  validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the page size, defaulted and clamped to MaxLimit.
func (p *PaginationRequest) GetLimit() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// DecodeCursor decodes the request cursor. It returns ErrNoCursor when the
// request has none.
func (p *PaginationRequest) DecodeCursor() (*CursorData, error) {
	return DecodeCursor(p.Cursor)
}

// CursorFor decodes the request cursor and checks it was issued for a
// listing sorted by field.
func (p *PaginationRequest) CursorFor(field string) (*CursorData, error) {
	cursor, err := p.DecodeCursor()
	if err != nil {
		return nil, err
	}

	if cursor.Field != field {
		return nil, fmt.Errorf("%w: sorted by %q, want %q", ErrInvalidCursor, cursor.Field, field)
	}

	return cursor, nil
}

// PaginatedResponse is one page of a listing.
type PaginatedResponse[T any] struct {
	Items []T `json:"items"`

	// NextCursor is empty on the last page.
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// NewPaginatedResponse builds a page from up to limit+1 items; the extra
// item only signals that another page follows.
func NewPaginatedResponse[T any](items []T, limit int, cursorBuilder func(T) *CursorData) *PaginatedResponse[T] {
	if len(items) == 0 {
		return EmptyPaginatedResponse[T]()
	}

	resp := &PaginatedResponse[T]{Items: items}

	if len(items) > limit {
		resp.Items = items[:limit]
		resp.HasMore = true

		if cursorBuilder != nil && limit > 0 {
			resp.NextCursor = EncodeCursor(cursorBuilder(resp.Items[limit-1]))
		}
	}

	return resp
}

// EmptyPaginatedResponse returns a page with no items.
func EmptyPaginatedResponse[T any]() *PaginatedResponse[T] {
	return &PaginatedResponse[T]{Items: []T{}}
}

// CursorData is the position encoded in a cursor: the sort field, its value
// at the last returned item, and that item's id to break ties.
type CursorData struct {
	Field string `json:"f"`
	Value string `json:"v"`
	ID    string `json:"id"`
}

// NewCursor creates cursor data.
func NewCursor(field, value, id string) *CursorData {
	return &CursorData{Field: field, Value: value, ID: id}
}

// EncodeCursor encodes data as an opaque URL-safe string.
func EncodeCursor(data *CursorData) string {
	if data == nil {
		return ""
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. An empty string yields ErrNoCursor.
func DecodeCursor(encoded string) (*CursorData, error) {
	if encoded == "" {
		return nil, ErrNoCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var data CursorData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, ErrInvalidCursor
	}

	return &data, nil
}
