package extrema

import "SRZones/internal/domain/models"

const (
	// MinWidth and MaxWidth bound the detection window, tried narrowest first.
	MinWidth = 4
	MaxWidth = 11

	// lookahead is how many bars must remain after the cursor for it to be evaluated.
	lookahead = 12
)

// Detector finds swing highs and lows in a close-price series.
type Detector struct {
	minHeightPct float64
}

// NewDetector returns a detector that requires an extremum to stand out from
// both window edges by more than minHeightPct percent of the price at the
// window start.
func NewDetector(minHeightPct float64) *Detector {
	return &Detector{minHeightPct: minHeightPct}
}

// Detect runs a full scan and returns every extremum in bar order.
func (d *Detector) Detect(bars []models.Bar) []models.Extremum {
	s := d.Scan(bars)
	var out []models.Extremum
	for {
		e, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// Scan returns a lazy iterator over the extrema of bars.
func (d *Detector) Scan(bars []models.Bar) *Scanner {
	return &Scanner{bars: bars, minHeightPct: d.minHeightPct}
}

// Scanner walks a bar series with a cursor. Detection windows never overlap:
// after a hit the cursor jumps past the window that produced it.
type Scanner struct {
	bars         []models.Bar
	minHeightPct float64
	cursor       int
}

// Next returns the next extremum, or false once the series is exhausted.
func (s *Scanner) Next() (models.Extremum, bool) {
	for s.cursor < len(s.bars)-lookahead {
		start := s.cursor
		th := s.bars[start].Close * s.minHeightPct / 100
		for w := MinWidth; w <= MaxWidth; w++ {
			if e, ok := s.peak(start, w, th); ok {
				s.cursor += w
				return e, true
			}
			if e, ok := s.valley(start, w, th); ok {
				s.cursor += w
				return e, true
			}
		}
		s.cursor++
	}
	return models.Extremum{}, false
}

// Reset rewinds the scanner to the first bar.
func (s *Scanner) Reset() {
	s.cursor = 0
}

// Cursor is the index of the next bar to be evaluated.
func (s *Scanner) Cursor() int {
	return s.cursor
}

func (s *Scanner) peak(start, w int, th float64) (models.Extremum, bool) {
	win := s.bars[start : start+w]
	idx := 0
	for i := 1; i < w; i++ {
		if win[i].Close > win[idx].Close {
			idx = i
		}
	}
	p := win[idx].Close
	if p-win[0].Close > th && p-win[w-1].Close > th && p > win[1].Close && p > win[w-2].Close {
		return s.extremum(start, w, idx, models.Peak), true
	}
	return models.Extremum{}, false
}

func (s *Scanner) valley(start, w int, th float64) (models.Extremum, bool) {
	win := s.bars[start : start+w]
	idx := 0
	for i := 1; i < w; i++ {
		if win[i].Close < win[idx].Close {
			idx = i
		}
	}
	v := win[idx].Close
	if win[0].Close-v > th && win[w-1].Close-v > th && v < win[1].Close && v < win[w-2].Close {
		return s.extremum(start, w, idx, models.Valley), true
	}
	return models.Extremum{}, false
}

func (s *Scanner) extremum(start, w, offset int, kind models.ExtremumKind) models.Extremum {
	b := s.bars[start+offset]
	return models.Extremum{
		Timestamp:   b.Timestamp,
		Price:       b.Close,
		Kind:        kind,
		Index:       start + offset,
		WindowStart: start,
		Width:       w,
	}
}
