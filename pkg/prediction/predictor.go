package prediction

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
)

// HistorySource supplies personalized candidates learned from commits.
type HistorySource interface {
	Suggest(req Request) []Result
}

// CandidateSource supplies dictionary/realtime/numeric candidates.
type CandidateSource interface {
	Aggregate(ctx context.Context, req Request) []Result
}

// BadValueFilter gates candidates before they reach the response.
// False positives are an accepted trade-off; false negatives are not.
type BadValueFilter interface {
	IsBad(value string) bool
}

// Predictor merges the history source and the aggregator into one
// ordered, budgeted candidate list. It keeps no state between calls.
type Predictor struct {
	history         HistorySource
	sources         CandidateSource
	filter          BadValueFilter
	defaultLimit    int
	maxLimit        int
	suggestionLimit int
}

// NewPredictor wires the merge layer. filter may be nil, which disables
// the bad-value gate entirely.
func NewPredictor(history HistorySource, sources CandidateSource, filter BadValueFilter, defaultLimit, maxLimit int) *Predictor {
	if defaultLimit < 1 {
		defaultLimit = 12
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Predictor{
		history:         history,
		sources:         sources,
		filter:          filter,
		defaultLimit:    defaultLimit,
		maxLimit:        maxLimit,
		suggestionLimit: defaultLimit,
	}
}

// SetSuggestionLimit tightens the candidate budget for suggestion mode,
// which shows far fewer candidates inline than an open lookup page.
func (p *Predictor) SetSuggestionLimit(n int) {
	if n >= 1 {
		p.suggestionLimit = n
	}
}

// Predict returns the ranked candidates for a request. An empty key is
// only meaningful for zero-query suggestion; anywhere else it yields an
// empty result, never an error.
func (p *Predictor) Predict(ctx context.Context, req Request) []Result {
	if req.Key == "" && (req.Mode != ModeSuggestion || req.Context.LastValue() == "") {
		return nil
	}
	req.MaxCandidates = p.clampLimit(req.MaxCandidates)
	if req.Mode == ModeSuggestion && req.MaxCandidates > p.suggestionLimit {
		req.MaxCandidates = p.suggestionLimit
	}

	var candidates []Result
	if p.history != nil {
		candidates = append(candidates, p.history.Suggest(req)...)
	}
	if p.sources != nil {
		candidates = append(candidates, p.sources.Aggregate(ctx, req)...)
	}
	log.Debugf("collected %d raw candidates for key %q", len(candidates), req.Key)

	merged := p.merge(req, candidates)
	if len(merged) > req.MaxCandidates {
		merged = merged[:req.MaxCandidates]
	}
	return merged
}

// merge drops removed and filtered candidates, deduplicates by
// (key, value) keeping the best-scored instance, and orders the rest.
func (p *Predictor) merge(req Request, candidates []Result) []Result {
	type slot struct {
		index int
	}
	seen := make(map[string]slot, len(candidates))
	merged := make([]Result, 0, len(candidates))

	for _, c := range candidates {
		if c.Removed || c.Value == "" {
			continue
		}
		if p.filter != nil && p.filter.IsBad(c.Value) {
			continue
		}
		id := c.Key + "\x1f" + c.Value
		if s, ok := seen[id]; ok {
			// Equal scores keep the earlier instance; history runs
			// first, which is the personalization bias.
			if c.Score > merged[s.index].Score {
				merged[s.index] = c
			}
			continue
		}
		seen[id] = slot{index: len(merged)}
		merged = append(merged, c)
	}

	// Pre-order by source priority so the stable sort resolves equal
	// scores deterministically per mode.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].priority(req.Mode) < merged[j].priority(req.Mode)
	})
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func (p *Predictor) clampLimit(limit int) int {
	if limit < 1 {
		return p.defaultLimit
	}
	if limit > p.maxLimit {
		return p.maxLimit
	}
	return limit
}
