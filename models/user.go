package models

import "github.com/uptrace/bun"

// AccessCode is the login code handed to a team owner.
type AccessCode struct {
	bun.BaseModel `bun:"table:access_codes,alias:ac"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Code     string `bun:"code,notnull,unique" json:"code"`
	IsActive bool   `bun:"is_active,notnull,default:true" json:"isActive"`
}

// User is a team owner, one per access code.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	AccessCodeID int64  `bun:"access_code_id,notnull,unique" json:"accessCodeID"`
	DisplayName  string `bun:"display_name,notnull" json:"displayName"`
}
