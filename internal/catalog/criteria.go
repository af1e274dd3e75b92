package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fema-catalog/internal/models"
)

// AllValue is the form value meaning "do not filter on this dimension". It is
// only understood by ParseCriteria; everything past the HTTP boundary uses nil.
const AllValue = "all"

// Criteria holds the optional search filters. A nil field leaves that
// dimension unconstrained; non-nil fields are combined with AND.
type Criteria struct {
	State         *string
	DisasterType  *string
	DeclarationID *string
	Month         *int
	Year          *int
}

func (c Criteria) IsEmpty() bool {
	return c.State == nil && c.DisasterType == nil && c.DeclarationID == nil &&
		c.Month == nil && c.Year == nil
}

func (c Criteria) Validate() error {
	if c.Month != nil && (*c.Month < 1 || *c.Month > 12) {
		return fmt.Errorf("%w: month %d out of range 1-12", models.ErrInvalidCriteria, *c.Month)
	}
	if c.Year != nil && (*c.Year < 1000 || *c.Year > 9999) {
		return fmt.Errorf("%w: year %d is not a four digit year", models.ErrInvalidCriteria, *c.Year)
	}
	return nil
}

// Query renders the criteria back into the query string used by the search
// results page, so pagination links keep the active filters.
func (c Criteria) Query() url.Values {
	v := url.Values{}
	set := func(key string, s *string) {
		if s != nil {
			v.Set(key, *s)
		} else {
			v.Set(key, AllValue)
		}
	}
	set("state", c.State)
	set("disaster-type", c.DisasterType)
	set("declaration-id", c.DeclarationID)
	if c.Month != nil {
		v.Set("month", strconv.Itoa(*c.Month))
	}
	if c.Year != nil {
		v.Set("year", strconv.Itoa(*c.Year))
	}
	return v
}

// ParseCriteria reads search filters from request query values. Blank values
// and the "all" sentinel both mean unconstrained.
func ParseCriteria(q url.Values) (Criteria, error) {
	var c Criteria
	c.State = optionalString(q.Get("state"))
	if c.State != nil {
		upper := strings.ToUpper(*c.State)
		c.State = &upper
	}
	c.DisasterType = optionalString(q.Get("disaster-type"))
	c.DeclarationID = optionalString(q.Get("declaration-id"))

	var err error
	if c.Month, err = optionalInt("month", q.Get("month")); err != nil {
		return Criteria{}, err
	}
	if c.Year, err = optionalInt("year", q.Get("year")); err != nil {
		return Criteria{}, err
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func optionalString(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, AllValue) {
		return nil
	}
	return &raw
}

func optionalInt(name, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, AllValue) {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", models.ErrInvalidCriteria, name, raw)
	}
	return &n, nil
}

// String and Int build criteria values inline.
func String(s string) *string { return &s }

func Int(n int) *int { return &n }
