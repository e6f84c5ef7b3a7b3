package patterns

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func toLog(traces ...string) [][]rune {
	out := make([][]rune, len(traces))
	for i, tr := range traces {
		out[i] = []rune(tr)
	}
	return out
}

var maximalRepeatsLog = toLog(
	"aabcdbbcda",
	"dabcdabcbb",
	"bbbcdbbbccaa",
	"aaadabbccc",
	"aaacdcdcbedbccbadbdebdc",
)

func TestFind_RepeatsPerTrace(t *testing.T) {
	tests := []struct {
		kind Kind
		want [][]Span
	}{
		{MaximalRepeats, [][]Span{
			{{Start: 0, Length: 1}, {Start: 2, Length: 1}, {Start: 2, Length: 3}},
			{{Start: 0, Length: 4}, {Start: 2, Length: 1}},
			{{Start: 0, Length: 1}, {Start: 0, Length: 2}, {Start: 0, Length: 4}, {Start: 3, Length: 1}, {Start: 10, Length: 1}},
			{{Start: 0, Length: 1}, {Start: 0, Length: 2}, {Start: 5, Length: 1}, {Start: 7, Length: 1}, {Start: 7, Length: 2}},
			{{Start: 0, Length: 1}, {Start: 0, Length: 2}, {Start: 3, Length: 1}, {Start: 3, Length: 3}, {Start: 4, Length: 1}, {Start: 4, Length: 2}, {Start: 7, Length: 2}, {Start: 8, Length: 1}, {Start: 9, Length: 1}, {Start: 10, Length: 2}, {Start: 17, Length: 2}},
		}},
		{SuperMaximalRepeats, [][]Span{
			{{Start: 0, Length: 1}, {Start: 2, Length: 3}},
			{{Start: 0, Length: 4}},
			{{Start: 0, Length: 4}, {Start: 10, Length: 1}},
			{{Start: 0, Length: 2}, {Start: 5, Length: 1}, {Start: 7, Length: 2}},
			{{Start: 0, Length: 2}, {Start: 3, Length: 3}, {Start: 7, Length: 2}, {Start: 9, Length: 1}, {Start: 10, Length: 2}, {Start: 17, Length: 2}},
		}},
		{NearSuperMaximalRepeats, [][]Span{
			{{Start: 0, Length: 1}, {Start: 2, Length: 1}, {Start: 2, Length: 3}},
			{{Start: 0, Length: 4}, {Start: 2, Length: 1}},
			{{Start: 0, Length: 4}, {Start: 3, Length: 1}, {Start: 10, Length: 1}},
			{{Start: 0, Length: 1}, {Start: 0, Length: 2}, {Start: 5, Length: 1}, {Start: 7, Length: 2}},
			{{Start: 0, Length: 1}, {Start: 0, Length: 2}, {Start: 3, Length: 1}, {Start: 3, Length: 3}, {Start: 4, Length: 2}, {Start: 7, Length: 2}, {Start: 9, Length: 1}, {Start: 10, Length: 2}, {Start: 17, Length: 2}},
		}},
	}

	for _, tt := range tests {
		got, err := Find(context.Background(), maximalRepeatsLog, Options{Kind: tt.kind, Strategy: PerTrace, Workers: 2})
		if err != nil {
			t.Fatalf("%s: Find failed: %v", tt.kind, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s:\n got %v\nwant %v", tt.kind, got, tt.want)
		}
	}
}

func TestFind_RepeatsMerged(t *testing.T) {
	tests := []struct {
		kind Kind
		want [][]Span
	}{
		{MaximalRepeats, [][]Span{
			{{Start: 0, Length: 1}, {Start: 0, Length: 2}, {Start: 1, Length: 2}, {Start: 1, Length: 3}, {Start: 1, Length: 4}, {Start: 2, Length: 1}, {Start: 2, Length: 2}, {Start: 2, Length: 3}, {Start: 2, Length: 5}, {Start: 3, Length: 1}, {Start: 3, Length: 2}, {Start: 4, Length: 1}, {Start: 4, Length: 2}, {Start: 5, Length: 2}, {Start: 5, Length: 3}, {Start: 5, Length: 4}, {Start: 6, Length: 4}, {Start: 8, Length: 2}},
			{{Start: 0, Length: 3}, {Start: 0, Length: 4}, {Start: 7, Length: 2}},
			{{Start: 0, Length: 4}, {Start: 6, Length: 4}, {Start: 7, Length: 3}, {Start: 8, Length: 2}},
			{{Start: 0, Length: 3}, {Start: 2, Length: 2}},
			{{Start: 3, Length: 3}, {Start: 4, Length: 2}, {Start: 9, Length: 1}, {Start: 17, Length: 2}},
		}},
		{SuperMaximalRepeats, [][]Span{
			{{Start: 1, Length: 4}, {Start: 2, Length: 5}, {Start: 5, Length: 4}, {Start: 6, Length: 4}},
			{{Start: 0, Length: 4}, {Start: 7, Length: 2}},
			{{Start: 0, Length: 4}, {Start: 6, Length: 4}},
			{{Start: 0, Length: 3}, {Start: 2, Length: 2}},
			{{Start: 3, Length: 3}, {Start: 9, Length: 1}, {Start: 17, Length: 2}},
		}},
		{NearSuperMaximalRepeats, [][]Span{
			{{Start: 0, Length: 2}, {Start: 1, Length: 4}, {Start: 2, Length: 5}, {Start: 4, Length: 2}, {Start: 5, Length: 2}, {Start: 5, Length: 4}, {Start: 6, Length: 4}},
			{{Start: 0, Length: 3}, {Start: 0, Length: 4}, {Start: 7, Length: 2}},
			{{Start: 0, Length: 4}, {Start: 6, Length: 4}, {Start: 7, Length: 3}, {Start: 8, Length: 2}},
			{{Start: 0, Length: 3}, {Start: 2, Length: 2}},
			{{Start: 3, Length: 3}, {Start: 4, Length: 2}, {Start: 9, Length: 1}, {Start: 17, Length: 2}},
		}},
	}

	for _, tt := range tests {
		got, err := Find(context.Background(), maximalRepeatsLog, Options{Kind: tt.kind, Strategy: MergedTrace})
		if err != nil {
			t.Fatalf("%s: Find failed: %v", tt.kind, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s:\n got %v\nwant %v", tt.kind, got, tt.want)
		}
	}
}

func TestFind_MergedSpansStayInsideTraces(t *testing.T) {
	log := toLog("abcab", "xabc", "", "ab")
	got := FindMergedRepeats(log, MaximalRepeats)

	if len(got) != len(log) {
		t.Fatalf("Expected %d entries, got %d", len(log), len(got))
	}
	for i, spans := range got {
		for _, sp := range spans {
			if sp.Start < 0 || sp.End() > len(log[i]) {
				t.Errorf("trace %d: span %v outside [0, %d)", i, sp, len(log[i]))
			}
		}
	}
}

func TestFind_TandemReportsFirstPeriod(t *testing.T) {
	got, err := Find(context.Background(), toLog("abcabc", "gdabcfiabc"), Options{
		Kind:            PrimitiveTandemArrays,
		Strategy:        MergedTrace,
		MaxTandemPeriod: 3,
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	want := [][]Span{{{Start: 0, Length: 3}}, nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFind_EmptyLog(t *testing.T) {
	for _, kind := range []Kind{PrimitiveTandemArrays, MaximalRepeats, SuperMaximalRepeats} {
		for _, strategy := range []Strategy{PerTrace, MergedTrace} {
			got, err := Find(context.Background(), [][]rune{}, Options{Kind: kind, Strategy: strategy})
			if err != nil {
				t.Fatalf("%s/%s: Find failed: %v", kind, strategy, err)
			}
			if len(got) != 0 {
				t.Errorf("%s/%s: Expected no output, got %v", kind, strategy, got)
			}
		}
	}
}

func TestFind_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Find(ctx, maximalRepeatsLog, Options{Kind: MaximalRepeats})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"primitive-tandem-arrays", PrimitiveTandemArrays},
		{"MAXIMAL_TANDEM_ARRAYS", MaximalTandemArrays},
		{"maximal", MaximalRepeats},
		{"super-maximal-repeats", SuperMaximalRepeats},
		{"nsmr", NearSuperMaximalRepeats},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = (%v, %v), want %v", tt.input, got, err, tt.want)
		}
		if back, _ := ParseKind(got.String()); back != got {
			t.Errorf("ParseKind(%q.String()) = %v", got, back)
		}
	}

	if _, err := ParseKind("bogus"); err == nil {
		t.Error("Expected an error for an unknown kind")
	}
}

func TestParseStrategy(t *testing.T) {
	if s, err := ParseStrategy("merged"); err != nil || s != MergedTrace {
		t.Errorf("ParseStrategy(merged) = (%v, %v)", s, err)
	}
	if s, err := ParseStrategy("per_trace"); err != nil || s != PerTrace {
		t.Errorf("ParseStrategy(per_trace) = (%v, %v)", s, err)
	}
	if _, err := ParseStrategy("nope"); err == nil {
		t.Error("Expected an error for an unknown strategy")
	}
}
