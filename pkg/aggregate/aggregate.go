// Package aggregate fans a request out to the non-history candidate
// sources and normalizes everything into prediction.Result. Sources
// fail soft: an absent collaborator, an error or a blown latency
// budget all degrade to an empty contribution for that source.
package aggregate

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/kanaserve/internal/logger"
	"github.com/bastiangx/kanaserve/pkg/dictionary"
	"github.com/bastiangx/kanaserve/pkg/numeric"
	"github.com/bastiangx/kanaserve/pkg/prediction"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// RealtimeConverter is the lattice-based conversion collaborator. It
// returns already-ranked phrase candidates for the full key.
type RealtimeConverter interface {
	Convert(ctx context.Context, key string, reqCtx prediction.Context) ([]prediction.Result, error)
}

// Aggregator owns the candidate sources. Both collaborators may be
// nil; a nil source simply contributes nothing.
type Aggregator struct {
	dict     *dictionary.Dictionary
	realtime RealtimeConverter

	zeroQuery      map[string][]string
	numberSuffixes []string

	sourceTimeout time.Duration
	maxTokens     int
	log           *log.Logger
}

// Option tweaks an Aggregator at construction.
type Option func(*Aggregator)

// WithSourceTimeout bounds how long any single source may run.
func WithSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.sourceTimeout = d
		}
	}
}

// WithMaxTokens caps the dictionary contribution per request.
func WithMaxTokens(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// New builds an aggregator over the given collaborators.
func New(dict *dictionary.Dictionary, realtime RealtimeConverter, opts ...Option) *Aggregator {
	a := &Aggregator{
		dict:           dict,
		realtime:       realtime,
		zeroQuery:      defaultZeroQuery(),
		numberSuffixes: defaultNumberSuffixes(),
		sourceTimeout:  50 * time.Millisecond,
		maxTokens:      64,
		log:            logger.New("aggregate"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate runs every source enabled for the request mode and returns
// their combined contributions. Sources run concurrently; each one is
// abandoned, not awaited, when it exceeds the per-source budget.
func (a *Aggregator) Aggregate(ctx context.Context, req prediction.Request) []prediction.Result {
	// Slot order is the merge tie-break order for the interactive
	// modes: dictionary, single kanji, numeric, zero query, realtime.
	var slots [5][]prediction.Result

	g, gctx := errgroup.WithContext(ctx)
	if a.dictionaryEnabled(req) {
		g.Go(func() error {
			slots[0] = a.collect(gctx, "dictionary", func(c context.Context) []prediction.Result {
				return a.lookupDictionary(req)
			})
			return nil
		})
	}
	if a.singleKanjiEnabled(req) {
		g.Go(func() error {
			slots[1] = a.collect(gctx, "single_kanji", func(c context.Context) []prediction.Result {
				return a.lookupSingleKanji(req)
			})
			return nil
		})
	}
	if a.numericEnabled(req) {
		g.Go(func() error {
			slots[2] = a.collect(gctx, "numeric", func(c context.Context) []prediction.Result {
				return a.decodeNumbers(req)
			})
			return nil
		})
	}
	if a.zeroQueryEnabled(req) {
		g.Go(func() error {
			slots[3] = a.collect(gctx, "zero_query", func(c context.Context) []prediction.Result {
				return a.lookupZeroQuery(req)
			})
			return nil
		})
	}
	if a.realtimeEnabled(req) {
		g.Go(func() error {
			slots[4] = a.collect(gctx, "realtime", func(c context.Context) []prediction.Result {
				return a.convertRealtime(c, req)
			})
			return nil
		})
	}
	_ = g.Wait()

	var out []prediction.Result
	for _, s := range slots {
		out = append(out, s...)
	}
	return out
}

// collect runs one source under its latency budget. A source that
// overruns is left behind; its result is dropped whenever it finishes.
func (a *Aggregator) collect(ctx context.Context, name string, fn func(context.Context) []prediction.Result) []prediction.Result {
	cctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
	defer cancel()

	ch := make(chan []prediction.Result, 1)
	go func() {
		ch <- fn(cctx)
	}()

	select {
	case res := <-ch:
		return res
	case <-cctx.Done():
		a.log.Debugf("source %s abandoned: %v", name, cctx.Err())
		return nil
	}
}

func (a *Aggregator) dictionaryEnabled(req prediction.Request) bool {
	return a.dict != nil && req.Key != ""
}

func (a *Aggregator) singleKanjiEnabled(req prediction.Request) bool {
	return a.dict != nil && req.Mode == prediction.ModeConversion &&
		utf8.RuneCountInString(req.Key) == 1
}

func (a *Aggregator) numericEnabled(req prediction.Request) bool {
	return req.Key != "" && req.Mode != prediction.ModeSuggestion
}

func (a *Aggregator) zeroQueryEnabled(req prediction.Request) bool {
	return req.Key == "" && req.Mode == prediction.ModeSuggestion &&
		req.Context.LastValue() != ""
}

func (a *Aggregator) realtimeEnabled(req prediction.Request) bool {
	return a.realtime != nil && req.Key != "" && req.Mode != prediction.ModeSuggestion
}

func (a *Aggregator) lookupDictionary(req prediction.Request) []prediction.Result {
	var tokens []dictionary.Token
	if req.Mode == prediction.ModeConversion {
		// Conversion works on the whole committed reading; prefix
		// expansion is a prediction concern.
		tokens = a.dict.LookupExact(req.Key)
	} else {
		tokens = a.dict.LookupPrefix(req.Key, a.maxTokens)
	}
	out := make([]prediction.Result, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, prediction.Result{
			Key:         t.Key,
			Value:       t.Value,
			Source:      prediction.SourceDictionary,
			Score:       costToScore(t.Cost),
			Cost:        t.Cost,
			Description: t.POS,
		})
	}
	return out
}

func (a *Aggregator) lookupSingleKanji(req prediction.Request) []prediction.Result {
	kanji := a.dict.SingleKanji(req.Key)
	out := make([]prediction.Result, 0, len(kanji))
	for i, k := range kanji {
		out = append(out, prediction.Result{
			Key:    req.Key,
			Value:  k,
			Source: prediction.SourceSingleKanji,
			// Table order is curated; keep it monotone.
			Score: len(kanji) - i,
		})
	}
	return out
}

func (a *Aggregator) decodeNumbers(req prediction.Request) []prediction.Result {
	variants := numeric.Decode(req.Key)
	out := make([]prediction.Result, 0, len(variants))
	for i, v := range variants {
		out = append(out, prediction.Result{
			Key:         req.Key,
			Value:       v.Value,
			Source:      prediction.SourceNumeric,
			Score:       len(variants) - i,
			Description: v.Description,
		})
	}
	return out
}

func (a *Aggregator) lookupZeroQuery(req prediction.Request) []prediction.Result {
	prev := req.Context.LastValue()
	values := a.zeroQuery[prev]
	if len(values) == 0 && numeric.IsDecimal(prev) {
		values = a.numberSuffixes
	}
	out := make([]prediction.Result, 0, len(values))
	for i, v := range values {
		out = append(out, prediction.Result{
			Value:  v,
			Source: prediction.SourceZeroQuery,
			Score:  len(values) - i,
		})
	}
	return out
}

func (a *Aggregator) convertRealtime(ctx context.Context, req prediction.Request) []prediction.Result {
	results, err := a.realtime.Convert(ctx, req.Key, req.Context)
	if err != nil {
		a.log.Debugf("realtime conversion failed for key %q: %v", req.Key, err)
		return nil
	}
	for i := range results {
		results[i].Source = prediction.SourceRealtime
		if results[i].Score == 0 {
			// Collaborator output is already ranked; preserve it.
			results[i].Score = len(results) - i
		}
	}
	return results
}

// costToScore flips a lattice cost (lower is better) into a merge
// score (higher is better).
func costToScore(cost int) int {
	score := 10000 - cost
	if score < 1 {
		score = 1
	}
	return score
}
