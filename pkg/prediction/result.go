// Package prediction holds the candidate model and the top level merge/rank
// layer that turns source contributions into one ordered response.
package prediction

// SourceTag identifies which source produced a candidate.
type SourceTag uint8

const (
	SourceHistory SourceTag = iota
	SourceDictionary
	SourceSingleKanji
	SourceNumeric
	SourceZeroQuery
	SourceRealtime
)

func (s SourceTag) String() string {
	switch s {
	case SourceHistory:
		return "history"
	case SourceDictionary:
		return "dictionary"
	case SourceSingleKanji:
		return "single_kanji"
	case SourceNumeric:
		return "numeric"
	case SourceZeroQuery:
		return "zero_query"
	case SourceRealtime:
		return "realtime"
	}
	return "unknown"
}

// Mode selects which sources participate and how ties are broken.
type Mode uint8

const (
	ModeSuggestion Mode = iota
	ModePrediction
	ModeConversion
)

func (m Mode) String() string {
	switch m {
	case ModeSuggestion:
		return "suggestion"
	case ModePrediction:
		return "prediction"
	case ModeConversion:
		return "conversion"
	}
	return "unknown"
}

// Segment is one unit of a committed multi-part conversion.
type Segment struct {
	Key   string
	Value string
}

// Context carries the committed segments preceding the current input.
type Context struct {
	PrecedingSegments []Segment
}

// LastValue returns the surface form of the most recently committed
// segment, or "" when nothing precedes the input.
func (c Context) LastValue() string {
	if len(c.PrecedingSegments) == 0 {
		return ""
	}
	return c.PrecedingSegments[len(c.PrecedingSegments)-1].Value
}

// Request describes one prediction call.
type Request struct {
	Key           string
	Context       Context
	Mode          Mode
	MaxCandidates int
}

// Result is one candidate record. Results live for a single prediction
// call; only Score is adjusted after creation, during ranking.
type Result struct {
	Key         string
	Value       string
	Source      SourceTag
	Score       int
	Cost        int
	Removed     bool
	Description string
}

// priority orders sources on equal score. History wins in the
// interactive modes; conversion trusts the lattice scorer first.
func (r Result) priority(mode Mode) int {
	order := [...]SourceTag{SourceHistory, SourceDictionary, SourceSingleKanji, SourceNumeric, SourceZeroQuery, SourceRealtime}
	if mode == ModeConversion {
		order = [...]SourceTag{SourceRealtime, SourceHistory, SourceDictionary, SourceSingleKanji, SourceNumeric, SourceZeroQuery}
	}
	for i, tag := range order {
		if tag == r.Source {
			return i
		}
	}
	return len(order)
}
