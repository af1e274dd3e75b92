package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is one county-level row of a FEMA disaster declaration. Several rows
// share a FemaID when a disaster spans more than one county.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	DeclarationID   string    `bun:"declaration_id,notnull" json:"declaration_id"`
	FemaID          int       `bun:"fema_id" json:"fema_id"`
	StateID         string    `bun:"state_id" json:"state_id"`
	Name            string    `bun:"name" json:"name"`
	County          string    `bun:"county" json:"county"`
	StartDate       time.Time `bun:"start_date,nullzero" json:"start_date"`
	EndDate         time.Time `bun:"end_date,nullzero" json:"end_date"`
	DeclaredOn      time.Time `bun:"declared_on,nullzero" json:"declared_on"`
	CloseOutDate    time.Time `bun:"close_out_date,nullzero" json:"close_out_date"`
	DisasterType    string    `bun:"disaster_type" json:"disaster_type"`
	UserID          *int64    `bun:"user_id" json:"user_id,omitempty"`
	DamagedProperty bool      `bun:"damaged_property,notnull,default:false" json:"damaged_property"`

	Grants []*Grant `bun:"rel:has-many,join:id=event_id" json:"grants,omitempty"`
}

// EventPage is one window of the deduplicated, FEMA id ordered catalog.
type EventPage struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Pages  int     `json:"pages"`
	Page   int     `json:"page"`
}

// DisasterDetail groups every county row of a single disaster.
type DisasterDetail struct {
	Event            *Event  `json:"event"`
	Counties         []Event `json:"counties"`
	CountiesAffected int     `json:"counties_affected"`
	Grants           []Grant `json:"grants"`
	GrantTotal       float64 `json:"grant_total"`
}

// SearchOptions feeds the select boxes of the search form.
type SearchOptions struct {
	States        []string `json:"states"`
	DisasterTypes []string `json:"disaster_types"`
	Disasters     int      `json:"disasters"`
}
