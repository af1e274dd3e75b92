package models

import "github.com/uptrace/bun"

// Grant is funding awarded for a disaster, attached to one event row.
type Grant struct {
	bun.BaseModel `bun:"table:grants,alias:g"`

	ID      int64   `bun:"id,pk,autoincrement" json:"id"`
	Total   float64 `bun:"total" json:"total"`
	Grant   string  `bun:"grant" json:"grant"`
	EventID int64   `bun:"event_id,notnull" json:"event_id"`
}
