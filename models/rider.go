package models

import "github.com/uptrace/bun"

// Rider is a professional rider, keyed by source slug ("rider/<slug>").
// Riders are never deleted; Active marks riders seen in current data.
type Rider struct {
	bun.BaseModel `bun:"table:riders,alias:rd"`

	ID          int64   `bun:"id,pk,autoincrement" json:"id"`
	Slug        string  `bun:"pcs_slug,notnull,unique" json:"slug"`
	Name        string  `bun:"rider_name,notnull" json:"name"`
	TeamName    *string `bun:"team_name" json:"teamName,omitempty"`
	Nationality *string `bun:"nationality" json:"nationality,omitempty"`
	PhotoURL    *string `bun:"photo_url" json:"photoURL,omitempty"`
	Active      bool    `bun:"active,notnull" json:"active"`
}

// RiderPoints is the season total for a rider, the sum of PointsAwarded
// over the season's races.
type RiderPoints struct {
	bun.BaseModel `bun:"table:rider_points,alias:rp"`

	ID         int64 `bun:"id,pk,autoincrement" json:"id"`
	SeasonYear int   `bun:"season_year,notnull,unique:rider_points_season_rider" json:"seasonYear"`
	RiderID    int64 `bun:"rider_id,notnull,unique:rider_points_season_rider" json:"riderID"`
	Points     int   `bun:"points,notnull,default:0" json:"points"`
}

// RiderPrice is what a rider costs a team for a season.
type RiderPrice struct {
	bun.BaseModel `bun:"table:rider_prices,alias:rpr"`

	ID         int64 `bun:"id,pk,autoincrement" json:"id"`
	SeasonYear int   `bun:"season_year,notnull,unique:rider_prices_season_rider" json:"seasonYear"`
	RiderID    int64 `bun:"rider_id,notnull,unique:rider_prices_season_rider" json:"riderID"`
	Price      int   `bun:"price,notnull,default:0" json:"price"`
}
