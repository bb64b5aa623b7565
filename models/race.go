package models

import "github.com/uptrace/bun"

// Race is a race edition, keyed by its source slug (e.g. "race/milano-sanremo/2025").
type Race struct {
	bun.BaseModel `bun:"table:races,alias:rc"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Slug string `bun:"pcs_slug,notnull,unique" json:"slug"`
	Name string `bun:"name,notnull" json:"name"`
	Date Date   `bun:"race_date,notnull,type:date" json:"date"`
	Tier int    `bun:"tier,notnull" json:"tier"`
}
