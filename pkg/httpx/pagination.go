package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidPageParams is returned by ParsePageParams for malformed query strings.
var ErrInvalidPageParams = errors.New("invalid pagination parameters")

// PageParams are the parsed ?page=&size=&sort= query parameters.
// Page is zero based. Sort is empty when the caller did not ask for one.
type PageParams struct {
	Page int
	Size int
	Sort string
	Desc bool
}

// Offset returns the number of rows to skip.
func (p PageParams) Offset() int {
	return p.Page * p.Size
}

// ParsePageParams reads page (>= 0), size (1..MaxPageSize, default
// DefaultPageSize) and sort ("name" ascending, "-name" descending).
// sort must be one of sortable when given.
func ParsePageParams(r *http.Request, sortable ...string) (PageParams, error) {
	q := r.URL.Query()
	p := PageParams{Size: DefaultPageSize}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: page must be a non-negative integer", ErrInvalidPageParams)
		}
		p.Page = n
	}

	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			return p, fmt.Errorf("%w: size must be between 1 and %d", ErrInvalidPageParams, MaxPageSize)
		}
		p.Size = n
	}

	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		field, desc := strings.CutPrefix(v, "-")
		if !slices.Contains(sortable, field) {
			return p, fmt.Errorf("%w: sort must be one of %s", ErrInvalidPageParams, strings.Join(sortable, ", "))
		}
		p.Sort, p.Desc = field, desc
	}

	return p, nil
}

// Page is the JSON envelope for paginated list responses.
type Page[T any] struct {
	Content       []T `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"total_elements"`
	TotalPages    int `json:"total_pages"`
}

// NewPage builds a Page envelope. content is never encoded as null.
func NewPage[T any](content []T, p PageParams, total int) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = (total + p.Size - 1) / p.Size
	}
	return Page[T]{
		Content:       content,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
