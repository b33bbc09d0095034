// Package idgen generates identifiers, names and timestamps.
package idgen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// MetaChar is the template character replaced by a random symbol.
const MetaChar = '#'

// ErrInvalidPattern is returned when a pattern template or alphabet is unusable.
var ErrInvalidPattern = errors.New("invalid random string pattern")

// IntSource picks an index in [0, n).
type IntSource interface {
	IntN(n int) int
}

// RandomStringPattern produces strings of the template's length where every
// MetaChar is replaced by a symbol drawn from the alphabet and every other
// character passes through unchanged.
type RandomStringPattern struct {
	template []rune
	alphabet []rune
	source   IntSource
}

// NewRandomStringPattern validates the template and alphabet up front.
// A nil source uses math/rand/v2.
func NewRandomStringPattern(template, alphabet string, source IntSource) (*RandomStringPattern, error) {
	if !strings.ContainsRune(template, MetaChar) {
		return nil, fmt.Errorf("%w: template %q has no %q", ErrInvalidPattern, template, MetaChar)
	}
	symbols := []rune(alphabet)
	if len(symbols) < 2 {
		return nil, fmt.Errorf("%w: alphabet %q needs at least two symbols", ErrInvalidPattern, alphabet)
	}
	if source == nil {
		source = defaultSource{}
	}
	return &RandomStringPattern{
		template: []rune(template),
		alphabet: symbols,
		source:   source,
	}, nil
}

// Generate returns a new string for the pattern.
func (p *RandomStringPattern) Generate() string {
	out := make([]rune, len(p.template))
	for i, r := range p.template {
		if r == MetaChar {
			out[i] = p.alphabet[p.source.IntN(len(p.alphabet))]
			continue
		}
		out[i] = r
	}
	return string(out)
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int { return rand.IntN(n) }
