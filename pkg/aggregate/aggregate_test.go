package aggregate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/kanaserve/pkg/dictionary"
	"github.com/bastiangx/kanaserve/pkg/prediction"
)

type fakeRealtime struct {
	results []prediction.Result
	err     error
	delay   time.Duration
}

func (f *fakeRealtime) Convert(ctx context.Context, key string, _ prediction.Context) ([]prediction.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, f.err
}

func testDictionary() *dictionary.Dictionary {
	d := dictionary.New()
	d.AddToken(dictionary.Token{Key: "あした", Value: "明日", POS: "名詞", Cost: 3000})
	d.AddToken(dictionary.Token{Key: "あした", Value: "アシタ", POS: "名詞", Cost: 6000})
	d.AddToken(dictionary.Token{Key: "あしたは", Value: "明日は", POS: "名詞", Cost: 4000})
	d.AddSingleKanji("き", "木", "気", "機")
	return d
}

func bySource(results []prediction.Result, source prediction.SourceTag) []prediction.Result {
	var out []prediction.Result
	for _, r := range results {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}

func TestDictionaryPrefixLookup(t *testing.T) {
	a := New(testDictionary(), nil)
	got := a.Aggregate(context.Background(), prediction.Request{
		Key:  "あした",
		Mode: prediction.ModeSuggestion,
	})

	dict := bySource(got, prediction.SourceDictionary)
	if len(dict) != 3 {
		t.Fatalf("expected 3 dictionary candidates, got %d: %v", len(dict), dict)
	}
	// Cheaper tokens score higher.
	if dict[0].Value != "明日" || dict[0].Score <= dict[1].Score {
		t.Errorf("expected 明日 ranked first, got %v", dict)
	}
}

func TestConversionModeConvertsWholeReading(t *testing.T) {
	a := New(testDictionary(), nil)

	conv := a.Aggregate(context.Background(), prediction.Request{Key: "あした", Mode: prediction.ModeConversion})
	dict := bySource(conv, prediction.SourceDictionary)
	if len(dict) != 2 {
		t.Fatalf("expected the 2 exact-reading tokens, got %v", dict)
	}
	for _, r := range dict {
		if r.Value == "明日は" {
			t.Error("prefix expansion leaked into conversion mode")
		}
	}

	pred := a.Aggregate(context.Background(), prediction.Request{Key: "あした", Mode: prediction.ModePrediction})
	if got := bySource(pred, prediction.SourceDictionary); len(got) != 3 {
		t.Errorf("prediction mode should still expand prefixes, got %v", got)
	}
}

func TestSingleKanjiOnlyInConversionMode(t *testing.T) {
	a := New(testDictionary(), nil)

	conv := a.Aggregate(context.Background(), prediction.Request{Key: "き", Mode: prediction.ModeConversion})
	kanji := bySource(conv, prediction.SourceSingleKanji)
	if len(kanji) != 3 {
		t.Fatalf("expected 3 single kanji candidates, got %v", kanji)
	}
	if kanji[0].Value != "木" || kanji[0].Score <= kanji[1].Score {
		t.Errorf("table order should be preserved by score, got %v", kanji)
	}

	sugg := a.Aggregate(context.Background(), prediction.Request{Key: "き", Mode: prediction.ModeSuggestion})
	if got := bySource(sugg, prediction.SourceSingleKanji); len(got) != 0 {
		t.Errorf("single kanji must stay out of suggestion mode, got %v", got)
	}
}

func TestNumericVariantsGatedBySuggestionMode(t *testing.T) {
	a := New(nil, nil)

	pred := a.Aggregate(context.Background(), prediction.Request{Key: "123", Mode: prediction.ModePrediction})
	nums := bySource(pred, prediction.SourceNumeric)
	if len(nums) == 0 {
		t.Fatal("expected numeric variants in prediction mode")
	}
	found := false
	for _, r := range nums {
		if r.Value == "百二十三" && r.Description == "漢数字" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 百二十三 among %v", nums)
	}

	sugg := a.Aggregate(context.Background(), prediction.Request{Key: "123", Mode: prediction.ModeSuggestion})
	if got := bySource(sugg, prediction.SourceNumeric); len(got) != 0 {
		t.Errorf("numeric variants must stay out of suggestion mode, got %v", got)
	}
}

func TestZeroQueryFromBuiltinTable(t *testing.T) {
	a := New(nil, nil)
	got := a.Aggregate(context.Background(), prediction.Request{
		Mode:    prediction.ModeSuggestion,
		Context: prediction.Context{PrecedingSegments: []prediction.Segment{{Value: "ありがとう"}}},
	})
	zq := bySource(got, prediction.SourceZeroQuery)
	if len(zq) == 0 {
		t.Fatal("expected zero query candidates after ありがとう")
	}
	if zq[0].Score <= zq[1].Score {
		t.Errorf("table order should be preserved by score, got %v", zq)
	}
}

func TestZeroQueryNumberSuffixes(t *testing.T) {
	a := New(nil, nil)
	got := a.Aggregate(context.Background(), prediction.Request{
		Mode:    prediction.ModeSuggestion,
		Context: prediction.Context{PrecedingSegments: []prediction.Segment{{Value: "3"}}},
	})
	zq := bySource(got, prediction.SourceZeroQuery)
	if len(zq) == 0 {
		t.Fatal("expected counter suffixes after a number commit")
	}
	if zq[0].Value != "個" {
		t.Errorf("expected 個 first, got %v", zq)
	}
}

func TestZeroQueryRequiresEmptyKeyAndContext(t *testing.T) {
	a := New(nil, nil)

	withKey := a.Aggregate(context.Background(), prediction.Request{
		Key:     "あ",
		Mode:    prediction.ModeSuggestion,
		Context: prediction.Context{PrecedingSegments: []prediction.Segment{{Value: "ありがとう"}}},
	})
	if got := bySource(withKey, prediction.SourceZeroQuery); len(got) != 0 {
		t.Errorf("zero query must not run with a non-empty key, got %v", got)
	}

	noContext := a.Aggregate(context.Background(), prediction.Request{Mode: prediction.ModeSuggestion})
	if len(noContext) != 0 {
		t.Errorf("empty key without context should contribute nothing, got %v", noContext)
	}
}

func TestRealtimeFailSoft(t *testing.T) {
	rt := &fakeRealtime{err: errors.New("lattice unavailable")}
	a := New(testDictionary(), rt)
	got := a.Aggregate(context.Background(), prediction.Request{Key: "あした", Mode: prediction.ModeConversion})

	if len(bySource(got, prediction.SourceRealtime)) != 0 {
		t.Error("failed realtime source must contribute nothing")
	}
	if len(bySource(got, prediction.SourceDictionary)) == 0 {
		t.Error("other sources must survive a realtime failure")
	}
}

func TestSlowSourceAbandoned(t *testing.T) {
	rt := &fakeRealtime{
		results: []prediction.Result{{Key: "あした", Value: "明日"}},
		delay:   200 * time.Millisecond,
	}
	a := New(testDictionary(), rt, WithSourceTimeout(10*time.Millisecond))

	start := time.Now()
	got := a.Aggregate(context.Background(), prediction.Request{Key: "あした", Mode: prediction.ModeConversion})
	elapsed := time.Since(start)

	if len(bySource(got, prediction.SourceRealtime)) != 0 {
		t.Error("overrunning source must be dropped")
	}
	if len(bySource(got, prediction.SourceDictionary)) == 0 {
		t.Error("fast sources still contribute when a slow one is abandoned")
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("aggregate waited for the abandoned source: %v", elapsed)
	}
}

func TestRealtimeScoresAssignedWhenUnset(t *testing.T) {
	rt := &fakeRealtime{results: []prediction.Result{
		{Key: "あした", Value: "明日"},
		{Key: "あした", Value: "アシタ"},
	}}
	a := New(nil, rt)
	got := a.Aggregate(context.Background(), prediction.Request{Key: "あした", Mode: prediction.ModeConversion})

	res := bySource(got, prediction.SourceRealtime)
	if len(res) != 2 {
		t.Fatalf("expected 2 realtime candidates, got %v", res)
	}
	if res[0].Score <= res[1].Score {
		t.Errorf("collaborator order should become descending scores, got %v", res)
	}
}

func TestMaxTokensCapsDictionary(t *testing.T) {
	a := New(testDictionary(), nil, WithMaxTokens(1))
	got := a.Aggregate(context.Background(), prediction.Request{Key: "あした", Mode: prediction.ModePrediction})
	if dict := bySource(got, prediction.SourceDictionary); len(dict) != 1 {
		t.Errorf("expected 1 dictionary candidate under the cap, got %v", dict)
	}
}

func TestLoadZeroQueryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeroquery.tsv")
	content := "ありがとう\tございます,ございました\n# comment\nこんにちは\t!\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	a := New(nil, nil)
	if err := a.LoadZeroQueryFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	got := a.Aggregate(context.Background(), prediction.Request{
		Mode:    prediction.ModeSuggestion,
		Context: prediction.Context{PrecedingSegments: []prediction.Segment{{Value: "ありがとう"}}},
	})
	zq := bySource(got, prediction.SourceZeroQuery)
	if len(zq) != 2 || zq[0].Value != "ございます" {
		t.Errorf("file entries should replace the builtin table, got %v", zq)
	}
}
