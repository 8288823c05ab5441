package models

import "time"

// Stats is a snapshot of marketplace counters. The row with the latest
// CreatedAt is the current one.
type Stats struct {
	ID            string    `json:"_id"`
	Users         int64     `json:"users"`
	Subscriptions int64     `json:"subscription"`
	Views         int64     `json:"views"`
	CreatedAt     time.Time `json:"createdAt"`
}
