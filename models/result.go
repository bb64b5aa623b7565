package models

import "github.com/uptrace/bun"

// RaceResult is one rider's finishing rank in one race. PointsAwarded is
// derived from Rank and the race tier and is rewritten on recompute.
type RaceResult struct {
	bun.BaseModel `bun:"table:race_results,alias:rr"`

	ID            int64 `bun:"id,pk,autoincrement" json:"id"`
	RaceID        int64 `bun:"race_id,notnull,unique:race_results_race_rider" json:"raceID"`
	RiderID       int64 `bun:"rider_id,notnull,unique:race_results_race_rider" json:"riderID"`
	Rank          int   `bun:"rank,notnull" json:"rank"`
	PointsAwarded int   `bun:"points_awarded,notnull,default:0" json:"pointsAwarded"`

	Race  *Race  `bun:"rel:belongs-to,join:race_id=id" json:"-"`
	Rider *Rider `bun:"rel:belongs-to,join:rider_id=id" json:"rider,omitempty"`
}
