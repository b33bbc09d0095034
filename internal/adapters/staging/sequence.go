package staging

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/efiling/internal/ports/secondary"
)

// ErrUnknownSequence means no counter row exists for a sequence name.
var ErrUnknownSequence = errors.New("unknown sequence")

// SequenceAllocator implements secondary.SequenceAllocator on the
// fes_sequences table. Each call is one atomic UPDATE ... RETURNING, so values
// are unique across processes sharing the staging database.
type SequenceAllocator struct {
	db *gorm.DB
}

// NewSequenceAllocator creates an allocator on db, which may be a transaction.
func NewSequenceAllocator(db *gorm.DB) *SequenceAllocator {
	return &SequenceAllocator{db: db}
}

// NextID returns the next value of a named sequence.
func (a *SequenceAllocator) NextID(ctx context.Context, name string) (int64, error) {
	var next int64
	result := a.db.WithContext(ctx).
		Raw("UPDATE fes_sequences SET last_value = last_value + 1 WHERE name = ? RETURNING last_value", name).
		Scan(&next)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to allocate %s sequence value: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("sequence %s: %w", name, ErrUnknownSequence)
	}
	return next, nil
}

var _ secondary.SequenceAllocator = (*SequenceAllocator)(nil)
