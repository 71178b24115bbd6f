// Package history learns from committed conversions and serves them
// back as prefix-matched, recency-scored suggestions. All learned state
// lives in one bounded cache indexed by a prefix trie; the whole pair
// sits behind a single lock so eviction can never leave a dangling
// trie reference.
package history

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/kanaserve/internal/logger"
	"github.com/bastiangx/kanaserve/internal/utils"
	"github.com/bastiangx/kanaserve/pkg/prediction"
	"github.com/charmbracelet/log"
)

// History is the user history source. Construct one per session, Load
// once at startup, and Stop on shutdown to flush pending state.
type History struct {
	mu    sync.RWMutex
	cache *learnCache

	store       Store
	maxSuggest  int
	compactDays int

	saveCh chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	dirty  atomic.Bool

	nowFn func() time.Time
	log   *log.Logger
}

// New builds an empty history with a fixed capacity. store may be nil,
// which disables persistence entirely (useful for tests and ephemeral
// sessions).
func New(capacity, maxSuggest int, store Store) *History {
	if maxSuggest < 1 {
		maxSuggest = 8
	}
	return &History{
		cache:       newLearnCache(capacity),
		store:       store,
		maxSuggest:  maxSuggest,
		compactDays: 62,
		saveCh:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		nowFn:       time.Now,
		log:         logger.New("history"),
	}
}

// SetCompactAfterDays overrides how long an unused entry survives a
// Compact pass.
func (h *History) SetCompactAfterDays(days int) {
	if days > 0 {
		h.compactDays = days
	}
}

// Len returns the number of learned entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cache.Len()
}

// Learn records committed segments. Each segment becomes an entry, a
// multi-segment commit additionally gets a whole-phrase entry, and
// adjacent segments are linked as bigrams so an empty key can still
// predict the next word from the previous surface form.
func (h *History) Learn(segments []prediction.Segment) {
	if len(segments) == 0 {
		return
	}
	now := h.nowFn().Unix()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, seg := range segments {
		if seg.Key == "" || seg.Value == "" {
			continue
		}
		h.cache.Put(Entry{
			Key:       seg.Key,
			Value:     seg.Value,
			LastUsed:  now,
			Kind:      segmentKind(seg),
			Sensitive: utils.LooksSensitive(seg.Key, seg.Value),
			Fresh:     true,
		})
	}

	for i := 1; i < len(segments); i++ {
		prev, next := segments[i-1], segments[i]
		if prev.Value == "" || next.Value == "" {
			continue
		}
		h.cache.Put(Entry{
			Key:       prev.Value,
			Value:     next.Value,
			LastUsed:  now,
			Kind:      KindBigram,
			Sensitive: utils.LooksSensitive(next.Key, next.Value),
			Fresh:     true,
		})
	}

	if len(segments) > 1 {
		var key, value string
		for _, seg := range segments {
			key += seg.Key
			value += seg.Value
		}
		if key != "" && value != "" {
			h.cache.Put(Entry{
				Key:       key,
				Value:     value,
				LastUsed:  now,
				Kind:      KindNormal,
				Sensitive: utils.LooksSensitive(key, value),
				Fresh:     false,
			})
		}
	}
	h.markDirty()
}

// Suggest returns prefix matches for the request key, scored by decayed
// recency. An empty key switches to next-word prediction keyed by the
// previous committed surface form.
func (h *History) Suggest(req prediction.Request) []prediction.Result {
	now := h.nowFn().Unix()

	limit := h.maxSuggest
	if req.MaxCandidates > 0 && req.MaxCandidates < limit {
		limit = req.MaxCandidates
	}

	var scored []scoredEntry
	if req.Key == "" {
		prev := req.Context.LastValue()
		if prev == "" {
			return nil
		}
		scored = h.collectNextWord(prev, now)
	} else {
		scored = h.collectPrefix(req.Key, req.Mode, now)
	}
	if len(scored) == 0 {
		return nil
	}

	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	// Surfaced entries count as accessed: refresh their recency so the
	// LRU keeps what the user actually sees.
	h.mu.Lock()
	for _, s := range scored {
		h.cache.Touch(s.fp, now)
	}
	h.mu.Unlock()

	results := make([]prediction.Result, 0, len(scored))
	for _, s := range scored {
		results = append(results, prediction.Result{
			Key:    s.entry.Key,
			Value:  s.entry.Value,
			Source: prediction.SourceHistory,
			Score:  int(math.Round(s.score * 1000)),
		})
	}
	return results
}

type scoredEntry struct {
	fp    uint64
	entry Entry
	score float64
}

func (h *History) collectPrefix(key string, mode prediction.Mode, now int64) []scoredEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var scored []scoredEntry
	h.cache.VisitPrefix(key, func(fp uint64, e Entry) bool {
		if e.Kind == KindBigram {
			return true
		}
		if mode == prediction.ModeSuggestion && !e.Fresh {
			return true
		}
		scored = append(scored, scoredEntry{fp: fp, entry: e, score: decayScore(e, now)})
		return true
	})
	return scored
}

func (h *History) collectNextWord(prevValue string, now int64) []scoredEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var scored []scoredEntry
	h.cache.VisitExact(prevValue, func(fp uint64, e Entry) bool {
		if e.Kind != KindBigram || e.Sensitive {
			return true
		}
		scored = append(scored, scoredEntry{fp: fp, entry: e, score: decayScore(e, now)})
		return true
	})
	return scored
}

// decayScore blends frequency and recency: usage_count / (1 + age_days).
// The constants are tunable, not a compatibility contract.
func decayScore(e Entry, now int64) float64 {
	ageDays := float64(now-e.LastUsed) / 86400.0
	if ageDays < 0 {
		ageDays = 0
	}
	return float64(e.UseCount) / (1.0 + ageDays)
}

// sortScored orders by descending score, tie-break by longer key, then
// lexicographic value. Fully deterministic for fixed inputs.
func sortScored(scored []scoredEntry) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if len(a.entry.Key) != len(b.entry.Key) {
			return len(a.entry.Key) > len(b.entry.Key)
		}
		if a.entry.Value != b.entry.Value {
			return a.entry.Value < b.entry.Value
		}
		return a.entry.Key < b.entry.Key
	})
}

// Evict removes the least recently used entry. Exposed for tests and
// for explicit memory-pressure handling.
func (h *History) Evict() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.cache.Evict()
	if ok {
		h.markDirty()
	}
	return e, ok
}

// Clear wipes all learned entries and schedules a save so the wipe
// reaches storage too.
func (h *History) Clear() {
	h.mu.Lock()
	h.cache.Clear()
	h.mu.Unlock()
	h.markDirty()
	h.PersistNow()
}

// Compact drops entries unused for longer than the configured window.
// Idempotent; safe to call from the idle watchdog at any time.
func (h *History) Compact() {
	cutoff := h.nowFn().Unix() - int64(h.compactDays)*86400

	h.mu.Lock()
	var stale []uint64
	for _, e := range h.cache.Snapshot() {
		if e.LastUsed < cutoff {
			stale = append(stale, Fingerprint(e.Key, e.Value))
		}
	}
	for _, fp := range stale {
		h.cache.Remove(fp)
	}
	h.mu.Unlock()

	if len(stale) > 0 {
		h.log.Debugf("compacted %d stale entries", len(stale))
		h.markDirty()
	}
}

func segmentKind(seg prediction.Segment) EntryKind {
	if utf8.RuneCountInString(seg.Value) == 1 {
		return KindSingleKanji
	}
	return KindNormal
}
