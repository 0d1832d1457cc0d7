package models

import "time"

// Status of a recorded slip placement.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ProgressRecord is one line of the placement ledger.
type ProgressRecord struct {
	Index       int       `json:"index"`
	Combination string    `json:"combination"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}
