package domain

import (
	"context"
	"time"
)

// FlagType is the closed set of scanner heuristics.
type FlagType string

const (
	FlagRoundAmount FlagType = "round_amount"
	FlagBackdated   FlagType = "backdated"
	FlagDuplicate   FlagType = "duplicate"
	FlagLargeAmount FlagType = "large_amount"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Flag is one advisory finding over posted journal data. Flags never block
// posting; they annotate reports.
type Flag struct {
	Type        FlagType  `json:"type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Amount      int64     `json:"amount"`
	EntryNumber string    `json:"entry_number"`
}

// ScanRequest bounds a scan window. A zero To means "up to now".
type ScanRequest struct {
	From time.Time
	To   time.Time
}

type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) ([]Flag, error)
}
