package app

import (
	"testing"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/domain"
)

func TestScoreDeltaBounds(t *testing.T) {
	game := config.DefaultGame()

	cases := []struct {
		name      string
		correct   bool
		remaining float64
		want      int
	}{
		{"wrong answer scores zero", false, 15, 0},
		{"correct at buzzer", true, 0, 10},
		{"correct with full window left", true, 15, 20},
		{"correct with 10s left", true, 10, 17},
		{"negative remaining clamped", true, -3, 10},
		{"inflated remaining clamped", true, 900, 20},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreDelta(game, tc.correct, tc.remaining)
			if got != tc.want {
				t.Fatalf("scoreDelta(%v, %v) = %d, want %d", tc.correct, tc.remaining, got, tc.want)
			}
		})
	}
}

func TestScoreDeltaRange(t *testing.T) {
	game := config.DefaultGame()
	for remaining := 0.0; remaining <= 15.0; remaining += 0.5 {
		got := scoreDelta(game, true, remaining)
		if got < 10 || got > 20 {
			t.Fatalf("delta %d out of [10,20] for remaining %v", got, remaining)
		}
	}
}

func TestAnswerMatchesNormalizes(t *testing.T) {
	question := &domain.Question{
		Options: []domain.Option{
			{Text: "London"},
			{Text: "Paris", IsCorrect: true},
		},
	}
	if !answerMatches(question, "  paris ") {
		t.Fatalf("expected trimmed case-folded match")
	}
	if answerMatches(question, "london") {
		t.Fatalf("wrong option must not match")
	}
	if answerMatches(&domain.Question{Options: []domain.Option{{Text: "A"}}}, "A") {
		t.Fatalf("question with no correct option must not match")
	}
}
