package store

import (
	"math"
	"strings"
)

// Pagination bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxOffset bounds how deep a page may reach.
	MaxOffset = math.MaxInt32
)

// SortField is a whitelisted sort key.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortDueDate   SortField = "dueDate"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
	SortStatus    SortField = "status"
	SortName      SortField = "name"
)

var taskSortFields = map[SortField]bool{
	SortCreatedAt: true,
	SortUpdatedAt: true,
	SortDueDate:   true,
	SortPriority:  true,
	SortTitle:     true,
	SortStatus:    true,
}

var userSortFields = map[SortField]bool{
	SortName:      true,
	SortCreatedAt: true,
}

// Page selects a window of results.
type Page struct {
	Number int
	Limit  int
	Sort   SortField
	Desc   bool
}

// Offset is the number of rows skipped before this page, saturating at
// MaxOffset.
func (p Page) Offset() int {
	if p.Number < 1 || p.Limit < 1 {
		return 0
	}
	if p.Number-1 > MaxOffset/p.Limit {
		return MaxOffset
	}
	return (p.Number - 1) * p.Limit
}

// InRange reports whether the page starts within MaxOffset.
func (p Page) InRange() bool {
	return p.Limit < 1 || p.Number-1 <= MaxOffset/p.Limit
}

// TotalPages returns the page count for total results.
func (p Page) TotalPages(total int) int {
	if p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// ParseSort splits "-field" into (field, true). ok is false for unknown fields.
func ParseSort(raw string, allowed map[SortField]bool) (SortField, bool, bool) {
	desc := strings.HasPrefix(raw, "-")
	field := SortField(strings.TrimPrefix(raw, "-"))
	return field, desc, allowed[field]
}

// ParseTaskSort parses a task sort expression such as "-createdAt".
func ParseTaskSort(raw string) (SortField, bool, bool) {
	return ParseSort(raw, taskSortFields)
}

// ParseUserSort parses a user sort expression such as "name".
func ParseUserSort(raw string) (SortField, bool, bool) {
	return ParseSort(raw, userSortFields)
}
