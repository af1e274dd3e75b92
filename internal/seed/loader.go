package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"
)

// Event rows: declaration_id|fema_id|state_id|name|county|start_date|end_date|
// declared_on|close_out_date|disaster_type[|damaged_property]
const eventFields = 10

// Grant rows: fema_id|county|grant|total
const grantFields = 4

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

// Store is the write side of the catalog used while seeding.
type Store interface {
	InsertEvents(ctx context.Context, events []models.Event) error
	InsertGrants(ctx context.Context, grants []models.Grant) error
}

type Loader struct {
	Store  Store
	Logger *logger.Logger

	// event row ids by fema id and county, filled by LoadEvents
	index map[eventKey]int64
}

type eventKey struct {
	femaID int
	county string
}

func NewLoader(store Store, log *logger.Logger) *Loader {
	return &Loader{Store: store, Logger: log, index: make(map[eventKey]int64)}
}

// RowError points at the offending line of a seed file.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// clean drops the stray tabs the FEMA export carries around values.
func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\t", ""))
}

func parseDate(raw string) (time.Time, error) {
	raw = clean(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func parseEvent(rec []string) (models.Event, error) {
	if len(rec) < eventFields {
		return models.Event{}, fmt.Errorf("expected at least %d fields, got %d", eventFields, len(rec))
	}

	femaID, err := strconv.Atoi(clean(rec[1]))
	if err != nil {
		return models.Event{}, fmt.Errorf("fema id %q: %w", rec[1], err)
	}

	e := models.Event{
		DeclarationID: clean(rec[0]),
		FemaID:        femaID,
		StateID:       strings.ToUpper(clean(rec[2])),
		Name:          clean(rec[3]),
		County:        clean(rec[4]),
		DisasterType:  clean(rec[9]),
	}
	dates := []*time.Time{&e.StartDate, &e.EndDate, &e.DeclaredOn, &e.CloseOutDate}
	for i, dst := range dates {
		if *dst, err = parseDate(rec[5+i]); err != nil {
			return models.Event{}, err
		}
	}
	if len(rec) > eventFields {
		if v := clean(rec[eventFields]); v != "" {
			if e.DamagedProperty, err = strconv.ParseBool(v); err != nil {
				return models.Event{}, fmt.Errorf("damaged property %q: %w", v, err)
			}
		}
	}
	return e, nil
}

// LoadEvents parses event rows from r and inserts them. Blank lines are
// skipped; any malformed row aborts the load before anything is written.
func (l *Loader) LoadEvents(ctx context.Context, name string, r io.Reader) (int, error) {
	cr := newReader(r)
	var events []models.Event
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && clean(rec[0]) == "" {
			continue
		}
		e, err := parseEvent(rec)
		if err != nil {
			return 0, &RowError{File: name, Line: line, Err: err}
		}
		events = append(events, e)
	}

	if err := l.Store.InsertEvents(ctx, events); err != nil {
		return 0, err
	}
	for _, e := range events {
		key := eventKey{femaID: e.FemaID, county: strings.ToLower(e.County)}
		if _, seen := l.index[key]; !seen {
			l.index[key] = e.ID
		}
	}
	l.Logger.LogDatabase("SEED", "events", fmt.Sprintf("Loaded %d rows from %s", len(events), name))
	return len(events), nil
}

// LoadGrants attaches grant rows to events loaded earlier by the same Loader.
func (l *Loader) LoadGrants(ctx context.Context, name string, r io.Reader) (int, error) {
	cr := newReader(r)
	var grants []models.Grant
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && clean(rec[0]) == "" {
			continue
		}
		if len(rec) < grantFields {
			return 0, &RowError{File: name, Line: line, Err: fmt.Errorf("expected %d fields, got %d", grantFields, len(rec))}
		}

		femaID, err := strconv.Atoi(clean(rec[0]))
		if err != nil {
			return 0, &RowError{File: name, Line: line, Err: fmt.Errorf("fema id %q: %w", rec[0], err)}
		}
		eventID, ok := l.index[eventKey{femaID: femaID, county: strings.ToLower(clean(rec[1]))}]
		if !ok {
			return 0, &RowError{File: name, Line: line, Err: fmt.Errorf("no event for fema id %d county %q", femaID, clean(rec[1]))}
		}
		total, err := strconv.ParseFloat(strings.ReplaceAll(clean(rec[3]), ",", ""), 64)
		if err != nil {
			return 0, &RowError{File: name, Line: line, Err: fmt.Errorf("total %q: %w", rec[3], err)}
		}

		grants = append(grants, models.Grant{Grant: clean(rec[2]), Total: total, EventID: eventID})
	}

	if err := l.Store.InsertGrants(ctx, grants); err != nil {
		return 0, err
	}
	l.Logger.LogDatabase("SEED", "grants", fmt.Sprintf("Loaded %d rows from %s", len(grants), name))
	return len(grants), nil
}
