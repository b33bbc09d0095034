package idgen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UUIDGenerator produces random (v4) identifiers.
type UUIDGenerator struct{}

// NewID returns a new random identifier.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// BatchNamer names FES batches as a random prefix followed by the last
// digits of the batch sequence value, e.g. "EWK70123".
type BatchNamer struct {
	prefix      *RandomStringPattern
	suffixWidth int
}

// NewBatchNamer creates a BatchNamer. suffixWidth must be between 1 and 18.
func NewBatchNamer(prefix *RandomStringPattern, suffixWidth int) (*BatchNamer, error) {
	if prefix == nil {
		return nil, fmt.Errorf("batch namer requires a prefix pattern")
	}
	if suffixWidth < 1 || suffixWidth > 18 {
		return nil, fmt.Errorf("batch suffix width %d out of range", suffixWidth)
	}
	return &BatchNamer{prefix: prefix, suffixWidth: suffixWidth}, nil
}

// Name returns the batch name for a batch sequence value.
func (n *BatchNamer) Name(batchID int64) string {
	mod := int64(1)
	for i := 0; i < n.suffixWidth; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%s%0*d", n.prefix.Generate(), n.suffixWidth, batchID%mod)
}

// PatternBarcodeGenerator issues barcodes from a pattern. The barcode date is
// carried separately on the FES form, so Generate draws from the pattern alone
// and ignores date.
type PatternBarcodeGenerator struct {
	pattern *RandomStringPattern
}

// NewPatternBarcodeGenerator creates a barcode generator.
func NewPatternBarcodeGenerator(pattern *RandomStringPattern) *PatternBarcodeGenerator {
	return &PatternBarcodeGenerator{pattern: pattern}
}

// Generate returns a new barcode.
func (g *PatternBarcodeGenerator) Generate(ctx context.Context, date time.Time) (string, error) {
	if g.pattern == nil {
		return "", fmt.Errorf("barcode pattern not configured")
	}
	return g.pattern.Generate(), nil
}
