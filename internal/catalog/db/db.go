package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fema-catalog/internal/catalog"
	"fema-catalog/internal/database"
	"fema-catalog/internal/models"
	"fema-catalog/internal/pagination"

	"github.com/uptrace/bun"
)

const insertBatchSize = 500

type DB struct {
	Bun *bun.DB
}

// applyCriteria adds one AND predicate per constrained dimension. Queries
// passed in must alias the events table as e.
func (d *DB) applyCriteria(q *bun.SelectQuery, c catalog.Criteria) *bun.SelectQuery {
	if c.State != nil {
		q = q.Where("e.state_id = ?", *c.State)
	}
	if c.DisasterType != nil {
		q = q.Where("e.disaster_type = ?", *c.DisasterType)
	}
	if c.DeclarationID != nil {
		q = q.Where("e.declaration_id = ?", *c.DeclarationID)
	}
	if c.Year != nil {
		start := time.Date(*c.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("e.declared_on >= ?", start).
			Where("e.declared_on < ?", start.AddDate(1, 0, 0))
	}
	if c.Month != nil {
		q = q.Where(d.monthExpr()+" = ?", *c.Month)
	}
	return q
}

func (d *DB) monthExpr() string {
	if database.IsPostgres(d.Bun) {
		return "EXTRACT(MONTH FROM e.declared_on AT TIME ZONE 'UTC')"
	}
	return "CAST(strftime('%m', e.declared_on) AS INTEGER)"
}

// representatives selects, per FEMA id, the lowest row id among the rows
// matching c. Every selected row therefore satisfies c itself.
func (d *DB) representatives(c catalog.Criteria) *bun.SelectQuery {
	sub := d.Bun.NewSelect().
		TableExpr("events AS e").
		ColumnExpr("MIN(e.id)").
		GroupExpr("e.fema_id")
	return d.applyCriteria(sub, c)
}

// ListEvents returns one page of matching disasters, one row per FEMA id,
// ascending by FEMA id.
func (d *DB) ListEvents(ctx context.Context, c catalog.Criteria, page int) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		Where("e.id IN (?)", d.representatives(c)).
		OrderExpr("e.fema_id ASC").
		Limit(pagination.PageSize).
		Offset(pagination.Offset(page)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CountDisasters counts distinct FEMA ids matching c.
func (d *DB) CountDisasters(ctx context.Context, c catalog.Criteria) (int, error) {
	var total int
	q := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("COUNT(DISTINCT e.fema_id)")
	err := d.applyCriteria(q, c).Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("count disasters: %w", err)
	}
	return total, nil
}

// GetCounties returns every county row of a disaster.
func (d *DB) GetCounties(ctx context.Context, femaID int) ([]models.Event, error) {
	counties := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&counties).
		Where("e.fema_id = ?", femaID).
		OrderExpr("e.county ASC, e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get counties for %d: %w", femaID, err)
	}
	return counties, nil
}

// GetEventByFemaID loads the representative row of a disaster with its grants.
func (d *DB) GetEventByFemaID(ctx context.Context, femaID int) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Grants").
		Where("e.fema_id = ?", femaID).
		OrderExpr("e.id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", femaID, err)
	}
	return &event, nil
}

// GetGrantsByFemaID returns grants attached to any county row of a disaster.
func (d *DB) GetGrantsByFemaID(ctx context.Context, femaID int) ([]models.Grant, error) {
	grants := make([]models.Grant, 0)
	err := d.Bun.NewSelect().
		Model(&grants).
		Join("JOIN events AS e ON e.id = g.event_id").
		Where("e.fema_id = ?", femaID).
		OrderExpr("g.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get grants for %d: %w", femaID, err)
	}
	return grants, nil
}

func (d *DB) ListStates(ctx context.Context) ([]string, error) {
	return d.distinct(ctx, "state_id")
}

func (d *DB) ListDisasterTypes(ctx context.Context) ([]string, error) {
	return d.distinct(ctx, "disaster_type")
}

func (d *DB) distinct(ctx context.Context, column string) ([]string, error) {
	values := make([]string, 0)
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("DISTINCT e.?", bun.Ident(column)).
		Where("e.? IS NOT NULL AND e.? <> ''", bun.Ident(column), bun.Ident(column)).
		OrderExpr("e.? ASC", bun.Ident(column)).
		Scan(ctx, &values)
	if err != nil {
		return nil, fmt.Errorf("list distinct %s: %w", column, err)
	}
	return values, nil
}

// InsertEvents bulk inserts events in batches and fills in their ids.
func (d *DB) InsertEvents(ctx context.Context, events []models.Event) error {
	for start := 0; start < len(events); start += insertBatchSize {
		end := min(start+insertBatchSize, len(events))
		batch := events[start:end]
		if _, err := d.Bun.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
	}
	return nil
}

func (d *DB) InsertGrants(ctx context.Context, grants []models.Grant) error {
	for start := 0; start < len(grants); start += insertBatchSize {
		end := min(start+insertBatchSize, len(grants))
		batch := grants[start:end]
		if _, err := d.Bun.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("insert grants: %w", err)
		}
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}
