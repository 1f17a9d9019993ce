package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBalanced(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Debit: 50_000_00},
		{AccountID: 2, Credit: 50_000_00},
	}
	assert.NoError(t, ValidateBalanced(lines))
}

func TestValidateBalancedRejectsMismatch(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Debit: 1000_00},
		{AccountID: 2, Credit: 900_00},
	}
	assert.ErrorIs(t, ValidateBalanced(lines), ErrUnbalanced)
}

func TestValidateLinesRejectsBothSidesSet(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Debit: 100, Credit: 100},
		{AccountID: 2, Credit: 100},
	}
	assert.ErrorIs(t, ValidateLines(lines), ErrInvalidLine)
}

func TestValidateLinesRejectsEmptySides(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1},
		{AccountID: 2, Credit: 100},
	}
	assert.ErrorIs(t, ValidateLines(lines), ErrInvalidLine)
}

func TestValidateLinesRejectsSingleLine(t *testing.T) {
	assert.ErrorIs(t, ValidateLines([]JournalLine{{AccountID: 1, Debit: 100}}), ErrTooFewLines)
}

func TestReversedSwapsSides(t *testing.T) {
	original := []JournalLine{
		{AccountID: 1, Debit: 500_00, Position: 0},
		{AccountID: 2, Credit: 500_00, Position: 1},
	}
	reversed := Reversed(original)

	assert.Equal(t, int64(0), reversed[0].Debit)
	assert.Equal(t, int64(500_00), reversed[0].Credit)
	assert.Equal(t, int64(500_00), reversed[1].Debit)
	assert.NoError(t, ValidateBalanced(reversed))
}
