package pagination

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PageSize is the fixed number of disasters shown per catalog page.
const PageSize = 50

// MaxPage is the largest page index whose offset fits in an int.
const MaxPage = math.MaxInt / PageSize

// Pages returns ceil(total / PageSize).
func Pages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// Offset returns the row offset of a zero-based page index.
func Offset(page int) int {
	if page <= 0 {
		return 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	return page * PageSize
}

// ParsePage reads the page query parameter. A missing value means page 0.
func ParsePage(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid page %q: %w", raw, err)
	}
	if page < 0 {
		return 0, fmt.Errorf("invalid page %d: must not be negative", page)
	}
	if page > MaxPage {
		return 0, fmt.Errorf("invalid page %d: exceeds %d", page, MaxPage)
	}
	return page, nil
}
