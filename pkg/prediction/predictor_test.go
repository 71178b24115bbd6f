package prediction_test

import (
	"context"
	"testing"

	"github.com/bastiangx/kanaserve/pkg/prediction"
)

type stubHistory struct {
	results []prediction.Result
}

func (s stubHistory) Suggest(req prediction.Request) []prediction.Result {
	return s.results
}

type stubSources struct {
	results []prediction.Result
}

func (s stubSources) Aggregate(ctx context.Context, req prediction.Request) []prediction.Result {
	return s.results
}

type stubFilter struct {
	bad map[string]bool
}

func (s stubFilter) IsBad(value string) bool { return s.bad[value] }

func req(key string, limit int) prediction.Request {
	return prediction.Request{Key: key, Mode: prediction.ModePrediction, MaxCandidates: limit}
}

func values(results []prediction.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}

func TestEmptyKeyReturnsNothingOutsideZeroQuery(t *testing.T) {
	p := prediction.NewPredictor(
		stubHistory{results: []prediction.Result{{Key: "あ", Value: "亜", Source: prediction.SourceHistory, Score: 10}}},
		stubSources{},
		nil, 10, 64,
	)
	if got := p.Predict(context.Background(), req("", 10)); got != nil {
		t.Errorf("empty key in prediction mode must return nothing, got %v", values(got))
	}
}

func TestBudgetRespected(t *testing.T) {
	var many []prediction.Result
	for _, v := range []string{"一", "二", "三", "四", "五", "六", "七", "八"} {
		many = append(many, prediction.Result{Key: "か", Value: v, Source: prediction.SourceDictionary, Score: 5})
	}
	p := prediction.NewPredictor(stubHistory{}, stubSources{results: many}, nil, 10, 64)

	got := p.Predict(context.Background(), req("か", 3))
	if len(got) != 3 {
		t.Errorf("expected exactly 3 candidates, got %d", len(got))
	}
}

func TestSuggestionModeUsesTighterBudget(t *testing.T) {
	var many []prediction.Result
	for _, v := range []string{"一", "二", "三", "四", "五"} {
		many = append(many, prediction.Result{Key: "か", Value: v, Source: prediction.SourceDictionary, Score: 5})
	}
	p := prediction.NewPredictor(stubHistory{}, stubSources{results: many}, nil, 10, 64)
	p.SetSuggestionLimit(2)

	sugg := p.Predict(context.Background(), prediction.Request{
		Key: "か", Mode: prediction.ModeSuggestion, MaxCandidates: 10,
	})
	if len(sugg) != 2 {
		t.Errorf("suggestion mode must cap at the suggestion limit, got %d candidates", len(sugg))
	}

	pred := p.Predict(context.Background(), req("か", 10))
	if len(pred) != 5 {
		t.Errorf("other modes must keep the requested budget, got %d candidates", len(pred))
	}
}

func TestRemovedAndFilteredCandidatesDropped(t *testing.T) {
	sources := stubSources{results: []prediction.Result{
		{Key: "か", Value: "蚊", Source: prediction.SourceDictionary, Score: 9},
		{Key: "か", Value: "下品な言葉", Source: prediction.SourceDictionary, Score: 8},
		{Key: "か", Value: "課", Source: prediction.SourceDictionary, Score: 7, Removed: true},
	}}
	p := prediction.NewPredictor(stubHistory{}, sources, stubFilter{bad: map[string]bool{"下品な言葉": true}}, 10, 64)

	got := values(p.Predict(context.Background(), req("か", 10)))
	if len(got) != 1 || got[0] != "蚊" {
		t.Errorf("expected only 蚊 to survive, got %v", got)
	}
}

func TestDedupeKeepsHighestScore(t *testing.T) {
	hist := stubHistory{results: []prediction.Result{
		{Key: "かく", Value: "書く", Source: prediction.SourceHistory, Score: 3},
	}}
	sources := stubSources{results: []prediction.Result{
		{Key: "かく", Value: "書く", Source: prediction.SourceDictionary, Score: 9},
		{Key: "かく", Value: "描く", Source: prediction.SourceDictionary, Score: 5},
	}}
	p := prediction.NewPredictor(hist, sources, nil, 10, 64)

	got := p.Predict(context.Background(), req("かく", 10))
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated candidates, got %d", len(got))
	}
	if got[0].Value != "書く" || got[0].Score != 9 {
		t.Errorf("dedupe kept the wrong instance: %+v", got[0])
	}
}

func TestDedupeTiePrefersHistory(t *testing.T) {
	hist := stubHistory{results: []prediction.Result{
		{Key: "かく", Value: "書く", Source: prediction.SourceHistory, Score: 5},
	}}
	sources := stubSources{results: []prediction.Result{
		{Key: "かく", Value: "書く", Source: prediction.SourceDictionary, Score: 5},
	}}
	p := prediction.NewPredictor(hist, sources, nil, 10, 64)

	got := p.Predict(context.Background(), req("かく", 10))
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate after dedupe, got %d", len(got))
	}
	if got[0].Source != prediction.SourceHistory {
		t.Errorf("tie must keep the history-sourced instance, got %v", got[0].Source)
	}
}

func TestEqualScoresOrderedBySourcePriority(t *testing.T) {
	hist := stubHistory{results: []prediction.Result{
		{Key: "か", Value: "履歴の語", Source: prediction.SourceHistory, Score: 5},
	}}
	sources := stubSources{results: []prediction.Result{
		{Key: "か", Value: "即時変換の語", Source: prediction.SourceRealtime, Score: 5},
		{Key: "か", Value: "辞書の語", Source: prediction.SourceDictionary, Score: 5},
	}}
	p := prediction.NewPredictor(hist, sources, nil, 10, 64)

	got := values(p.Predict(context.Background(), req("か", 10)))
	want := []string{"履歴の語", "辞書の語", "即時変換の語"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("priority order broken: got %v, want %v", got, want)
		}
	}
}

func TestConversionModePrefersRealtimeOnTies(t *testing.T) {
	hist := stubHistory{results: []prediction.Result{
		{Key: "か", Value: "履歴の語", Source: prediction.SourceHistory, Score: 5},
	}}
	sources := stubSources{results: []prediction.Result{
		{Key: "か", Value: "即時変換の語", Source: prediction.SourceRealtime, Score: 5},
	}}
	p := prediction.NewPredictor(hist, sources, nil, 10, 64)

	got := values(p.Predict(context.Background(), prediction.Request{
		Key: "か", Mode: prediction.ModeConversion, MaxCandidates: 10,
	}))
	if got[0] != "即時変換の語" {
		t.Errorf("conversion mode must rank realtime first on ties, got %v", got)
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	hist := stubHistory{results: []prediction.Result{
		{Key: "き", Value: "木", Source: prediction.SourceHistory, Score: 7},
		{Key: "き", Value: "気", Source: prediction.SourceHistory, Score: 7},
	}}
	sources := stubSources{results: []prediction.Result{
		{Key: "き", Value: "機", Source: prediction.SourceDictionary, Score: 7},
		{Key: "き", Value: "器", Source: prediction.SourceDictionary, Score: 9},
	}}
	p := prediction.NewPredictor(hist, sources, nil, 10, 64)

	first := values(p.Predict(context.Background(), req("き", 10)))
	for run := 0; run < 10; run++ {
		again := values(p.Predict(context.Background(), req("き", 10)))
		if len(again) != len(first) {
			t.Fatalf("run %d: result count changed: %v vs %v", run, again, first)
		}
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d: nondeterministic order: %v vs %v", run, again, first)
			}
		}
	}
	if first[0] != "器" {
		t.Errorf("highest score must rank first, got %v", first)
	}
}

func TestNilSourcesYieldEmptyResponse(t *testing.T) {
	p := prediction.NewPredictor(nil, nil, nil, 10, 64)
	if got := p.Predict(context.Background(), req("か", 10)); len(got) != 0 {
		t.Errorf("predictor without sources must return empty, got %v", values(got))
	}
}
