package storage

import "time"

// RateSnapshot stores one day's parsed rate list, keyed by the date the
// list covers. Payload is the JSON encoding of the rate table. The date
// format (2006-01-02) sorts lexicographically in chronological order.
type RateSnapshot struct {
	Date      string    `json:"date" gorm:"primaryKey;column:date"`
	Payload   []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

// TableName pins the table shared with the goose migrations.
func (RateSnapshot) TableName() string { return "rate_snapshots" }
