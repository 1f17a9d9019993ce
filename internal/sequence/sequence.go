package sequence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Counter is the backing row for a named document counter.
type Counter struct {
	Name  string `gorm:"primaryKey;type:text"`
	Value int64  `gorm:"not null"`
}

// TableName sets the database table name.
func (Counter) TableName() string { return "sequences" }

// Next allocates the next value for the named counter inside the caller's
// transaction. The row update serializes concurrent allocations, so numbers
// are gapless only when the surrounding transaction commits.
func Next(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1`,
		name,
	).Error; err != nil {
		return 0, fmt.Errorf("advance sequence %s: %w", name, err)
	}

	var value int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT value FROM sequences WHERE name = ?`,
		name,
	).Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", name, err)
	}
	return value, nil
}

// Format renders a sequence value with its document prefix, e.g. JE-000042.
func Format(prefix string, value int64) string {
	return fmt.Sprintf("%s-%06d", prefix, value)
}
