package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"

	journaldomain "github.com/GymAurCode/rems-ledger/internal/journal/domain"
)

var (
	ErrVoucherNotApproved = errors.New("voucher_not_approved")
	ErrVoucherNotPosted   = errors.New("voucher_not_posted")
	ErrPostingConflict    = errors.New("posting_conflict")
)

// Severity grades a validation finding. Errors block posting, warnings are
// returned alongside a successful post.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one validation finding, tied to a line where applicable.
// Line is the zero-based position, -1 for voucher-level findings.
type Violation struct {
	Code        string   `json:"code"`
	Severity    Severity `json:"severity"`
	AccountCode string   `json:"account_code,omitempty"`
	Line        int      `json:"line"`
	Message     string   `json:"message"`
}

// Violations collects every finding at once so callers can fix a voucher in a
// single round trip. It satisfies error only when blocking findings exist.
type Violations []Violation

func (v Violations) Error() string {
	codes := make([]string, 0, len(v))
	for _, violation := range v {
		if violation.Severity == SeverityError {
			codes = append(codes, violation.Code)
		}
	}
	return "posting rejected: " + strings.Join(codes, ", ")
}

// HasErrors reports whether any finding blocks posting.
func (v Violations) HasErrors() bool {
	for _, violation := range v {
		if violation.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking findings.
func (v Violations) Warnings() []Violation {
	var out []Violation
	for _, violation := range v {
		if violation.Severity == SeverityWarning {
			out = append(out, violation)
		}
	}
	return out
}

// PostResult is the outcome of a post or reverse call. AlreadyPosted marks an
// idempotent replay that returned the previously created entry.
type PostResult struct {
	Entry         journaldomain.JournalEntry  `json:"entry"`
	Lines         []journaldomain.JournalLine `json:"lines"`
	AlreadyPosted bool                        `json:"already_posted"`
	Warnings      []Violation                 `json:"warnings,omitempty"`
}

// Engine converts approved vouchers into immutable journal entries.
type Engine interface {
	// Post validates and posts an approved voucher. Safe to retry: a voucher
	// posts at most once.
	Post(ctx context.Context, voucherID snowflake.ID) (PostResult, error)
	// Validate runs the posting checks without writing anything.
	Validate(ctx context.Context, voucherID snowflake.ID) (Violations, error)
	// Reverse creates the offsetting entry for a posted voucher. Safe to
	// retry: at most one reversal per entry.
	Reverse(ctx context.Context, voucherID snowflake.ID, description string) (PostResult, error)
}
