package scorecalculator

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		name         string
		verdicts     []WordVerdict
		wantAccuracy int
		wantErrors   int
	}{
		{
			name:         "empty list scores zero",
			verdicts:     nil,
			wantAccuracy: 0,
			wantErrors:   0,
		},
		{
			name: "all correct",
			verdicts: []WordVerdict{
				{TargetWord: "the", SpokenWord: "the", Label: LabelCorrect},
				{TargetWord: "cat", SpokenWord: "cat", Label: LabelCorrect},
			},
			wantAccuracy: 100,
			wantErrors:   0,
		},
		{
			name: "two of three correct rounds to 67",
			verdicts: []WordVerdict{
				{TargetWord: "the", SpokenWord: "the", Label: LabelCorrect},
				{TargetWord: "cat", SpokenWord: "cat", Label: LabelCorrect},
				{TargetWord: "sat", SpokenWord: "sad", Label: LabelError},
			},
			wantAccuracy: 67,
			wantErrors:   1,
		},
		{
			name: "mispronunciation counts as error",
			verdicts: []WordVerdict{
				{TargetWord: "river", SpokenWord: "riber", Label: LabelMispronunciation},
				{TargetWord: "bank", SpokenWord: "bank", Label: LabelCorrect},
			},
			wantAccuracy: 50,
			wantErrors:   1,
		},
		{
			name: "all wrong",
			verdicts: []WordVerdict{
				{TargetWord: "one", SpokenWord: "won", Label: LabelError},
				{TargetWord: "two", SpokenWord: "", Label: LabelError},
			},
			wantAccuracy: 0,
			wantErrors:   2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.verdicts)
			if got.AccuracyPercent != tt.wantAccuracy {
				t.Errorf("AccuracyPercent = %d, want %d", got.AccuracyPercent, tt.wantAccuracy)
			}
			if got.ErrorCount != tt.wantErrors {
				t.Errorf("ErrorCount = %d, want %d", got.ErrorCount, tt.wantErrors)
			}
			if got.AccuracyPercent < 0 || got.AccuracyPercent > 100 {
				t.Errorf("AccuracyPercent %d out of [0,100]", got.AccuracyPercent)
			}
			correct := 0
			for _, v := range tt.verdicts {
				if v.Label == LabelCorrect {
					correct++
				}
			}
			if got.ErrorCount != len(tt.verdicts)-correct {
				t.Errorf("ErrorCount = %d, want len-correct = %d", got.ErrorCount, len(tt.verdicts)-correct)
			}
		})
	}
}

func TestLevelAverage(t *testing.T) {
	tests := []struct {
		name string
		in   []int
		want int
	}{
		{"empty", nil, 0},
		{"single", []int{80}, 80},
		{"mean of 100 50 0 is 50", []int{100, 50, 0}, 50},
		{"rounds up", []int{67, 66}, 67}, // 66.5 rounds to 67
		{"rounds down", []int{33, 34, 34}, 34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelAverage(tt.in); got != tt.want {
				t.Errorf("LevelAverage(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNegativeErrors(t *testing.T) {
	verdicts := []WordVerdict{
		{TargetWord: "the", SpokenWord: "the", Label: LabelCorrect},
		{TargetWord: "cat", SpokenWord: "bat", Label: LabelError},
		{TargetWord: "sat", SpokenWord: "sot", Label: LabelMispronunciation},
	}
	errs := NegativeErrors(verdicts)
	if len(errs) != 2 {
		t.Fatalf("got %d negative errors, want 2", len(errs))
	}
	if errs[0].TargetWord != "cat" || errs[1].TargetWord != "sat" {
		t.Errorf("unexpected negative error order: %+v", errs)
	}

	if got := NegativeErrors(verdicts[:1]); got != nil {
		t.Errorf("expected nil for all-correct verdicts, got %+v", got)
	}
}

func TestWordDistance(t *testing.T) {
	tests := []struct {
		target string
		spoken string
		want   int
	}{
		{"the cat sat", "the cat sat", 0},
		{"the cat sat", "the cat sad", 1},
		{"the cat sat", "the sat", 1},
		{"the cat sat", "the big cat sat", 1},
		{"zog pleet", "zog plate", 1},
		{"no no no yes", "no no yes", 1},
		{"", "", 0},
		{"one two", "", 2},
	}
	for _, tt := range tests {
		if got := WordDistance(tt.target, tt.spoken); got != tt.want {
			t.Errorf("WordDistance(%q, %q) = %d, want %d", tt.target, tt.spoken, got, tt.want)
		}
	}
}
