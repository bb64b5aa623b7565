package models

import "github.com/uptrace/bun"

// Team is an owner's fantasy team for one season.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64  `bun:"user_id,notnull,unique:teams_user_season" json:"userID"`
	SeasonYear int    `bun:"season_year,notnull,unique:teams_user_season" json:"seasonYear"`
	TeamName   string `bun:"team_name,notnull" json:"teamName"`
	Locked     bool   `bun:"locked,notnull,default:false" json:"locked"`
	TotalCost  int    `bun:"total_cost,notnull,default:0" json:"totalCost"`
	Points     int    `bun:"points,notnull,default:0" json:"points"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

// TeamRider places a rider in a numbered roster slot.
type TeamRider struct {
	bun.BaseModel `bun:"table:team_riders,alias:tr"`

	ID      int64 `bun:"id,pk,autoincrement" json:"id"`
	TeamID  int64 `bun:"team_id,notnull,unique:team_riders_team_slot" json:"teamID"`
	Slot    int   `bun:"slot,notnull,unique:team_riders_team_slot" json:"slot"`
	RiderID int64 `bun:"rider_id,notnull" json:"riderID"`

	Rider *Rider `bun:"rel:belongs-to,join:rider_id=id" json:"rider,omitempty"`
}
