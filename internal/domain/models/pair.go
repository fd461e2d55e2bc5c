package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPair = errors.New("invalid currency pair")

// Pair is a currency pair such as EUR/USD.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair accepts "BASE/QUOTE". Anything that does not split into
// exactly two non-empty components is rejected.
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	base := strings.ToUpper(strings.TrimSpace(parts[0]))
	quote := strings.ToUpper(strings.TrimSpace(parts[1]))
	if base == "" || quote == "" {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, s)
	}
	return Pair{Base: base, Quote: quote}, nil
}

// Name is the concatenated form, e.g. EURUSD.
func (p Pair) Name() string {
	return p.Base + p.Quote
}

func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// ArtifactName is the identifier the calendar is persisted under.
func (p Pair) ArtifactName() string {
	return "SR_" + p.Name() + "_daily"
}

func (p Pair) IsJPY() bool {
	return p.Base == "JPY" || p.Quote == "JPY"
}

// ZoneWidthFor scales width by multiplier for yen-quoted pairs.
func (p Pair) ZoneWidthFor(width, multiplier float64) float64 {
	if p.IsJPY() {
		return width * multiplier
	}
	return width
}
