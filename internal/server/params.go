package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// money pairs the stored minor-unit integer with its decimal rendering so
// clients never have to guess the scale.
type money struct {
	Minor   int64  `json:"minor"`
	Decimal string `json:"decimal"`
}

func moneyOf(minor int64) money {
	return money{Minor: minor, Decimal: decimal.New(minor, -2).String()}
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError(name, "invalid_"+name, "invalid identifier")
	}
	return id, nil
}

func parseOptionalID(raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDate accepts a bare date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseOptionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}

// parseAmount converts a decimal string into minor units. Anything finer than
// two decimal places is rejected rather than silently rounded.
func parseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, ErrInvalidRequest
	}
	return shifted.IntPart(), nil
}

// dateWindow reads the from/to query pair. Either side may be absent.
func dateWindow(c *gin.Context) (time.Time, time.Time, error) {
	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("from", "invalid_from", "invalid date")
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("to", "invalid_to", "invalid date")
	}
	return from, to, nil
}

// asOfQuery reads ?as_of, defaulting to now for point-in-time reports.
func asOfQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("as_of")
	if strings.TrimSpace(raw) == "" {
		return time.Now().UTC(), nil
	}
	asOf, err := parseDate(raw)
	if err != nil {
		return time.Time{}, newValidationError("as_of", "invalid_as_of", "invalid date")
	}
	return asOf, nil
}
