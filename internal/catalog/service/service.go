package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fema-catalog/internal/catalog"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"
	"fema-catalog/internal/observability"
	"fema-catalog/internal/pagination"
)

type CatalogDBLayer interface {
	ListEvents(ctx context.Context, c catalog.Criteria, page int) ([]models.Event, error)
	CountDisasters(ctx context.Context, c catalog.Criteria) (int, error)
	GetCounties(ctx context.Context, femaID int) ([]models.Event, error)
	GetEventByFemaID(ctx context.Context, femaID int) (*models.Event, error)
	GetGrantsByFemaID(ctx context.Context, femaID int) ([]models.Grant, error)
	ListStates(ctx context.Context) ([]string, error)
	ListDisasterTypes(ctx context.Context) ([]string, error)
}

type CatalogService struct {
	DB      CatalogDBLayer
	Metrics *observability.Metrics
	Logger  *logger.Logger
}

func NewCatalogService(db CatalogDBLayer, metrics *observability.Metrics, log *logger.Logger) *CatalogService {
	return &CatalogService{DB: db, Metrics: metrics, Logger: log}
}

// Query returns one page of deduplicated disasters matching c. A page past
// the end is returned empty without an error.
func (s *CatalogService) Query(ctx context.Context, c catalog.Criteria, page int) (*models.EventPage, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: page %d must not be negative", models.ErrInvalidCriteria, page)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	total, err := s.DB.CountDisasters(ctx, c)
	if err != nil {
		return nil, err
	}

	events := []models.Event{}
	if page < pagination.Pages(total) {
		if events, err = s.DB.ListEvents(ctx, c, page); err != nil {
			return nil, err
		}
	}

	return &models.EventPage{
		Events: events,
		Total:  total,
		Pages:  pagination.Pages(total),
		Page:   page,
	}, nil
}

// ListEvents is the unfiltered catalog listing.
func (s *CatalogService) ListEvents(ctx context.Context, page int) (*models.EventPage, error) {
	start := time.Now()
	result, err := s.Query(ctx, catalog.Criteria{}, page)
	s.observe("listing", start, result, err)
	return result, err
}

// Search runs a filtered query. An empty page is returned together with
// ErrNoResults so the caller can send the user back to the search form.
func (s *CatalogService) Search(ctx context.Context, c catalog.Criteria, page int) (*models.EventPage, error) {
	start := time.Now()
	result, err := s.Query(ctx, c, page)
	s.observe("search", start, result, err)
	if err != nil {
		return nil, err
	}
	if len(result.Events) == 0 {
		s.Logger.LogCatalog("SEARCH", fmt.Sprintf("no events match %s page %d", c.Query().Encode(), page))
		return result, models.ErrNoResults
	}
	return result, nil
}

func (s *CatalogService) observe(kind string, start time.Time, result *models.EventPage, err error) {
	s.Metrics.QueryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		s.Metrics.Searches.WithLabelValues(kind, "error").Inc()
		if !errors.Is(err, models.ErrInvalidCriteria) {
			s.Logger.Error("CATALOG", fmt.Sprintf("%s query failed: %v", kind, err))
		}
	case len(result.Events) == 0:
		s.Metrics.Searches.WithLabelValues(kind, "empty").Inc()
	default:
		s.Metrics.Searches.WithLabelValues(kind, "results").Inc()
	}
}

// GetDisaster collects the representative event of a disaster together with
// every affected county and all grants awarded across them.
func (s *CatalogService) GetDisaster(ctx context.Context, femaID int) (*models.DisasterDetail, error) {
	event, err := s.DB.GetEventByFemaID(ctx, femaID)
	if err != nil {
		return nil, err
	}

	counties, err := s.DB.GetCounties(ctx, femaID)
	if err != nil {
		return nil, err
	}

	grants, err := s.DB.GetGrantsByFemaID(ctx, femaID)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, g := range grants {
		total += g.Total
	}

	return &models.DisasterDetail{
		Event:            event,
		Counties:         counties,
		CountiesAffected: len(counties),
		Grants:           grants,
		GrantTotal:       total,
	}, nil
}

func (s *CatalogService) SearchOptions(ctx context.Context) (*models.SearchOptions, error) {
	states, err := s.DB.ListStates(ctx)
	if err != nil {
		return nil, err
	}
	kinds, err := s.DB.ListDisasterTypes(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.DB.CountDisasters(ctx, catalog.Criteria{})
	if err != nil {
		return nil, err
	}
	return &models.SearchOptions{States: states, DisasterTypes: kinds, Disasters: total}, nil
}
