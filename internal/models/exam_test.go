package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyExamBoundaries(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		now   time.Time
		want  ExamState
	}{
		{"before start", start, end, start.Add(-time.Nanosecond), ExamUpcoming},
		{"at start", start, end, start, ExamActive},
		{"inside window", start, end, start.Add(30 * time.Minute), ExamActive},
		{"at end", start, end, end, ExamActive},
		{"after end", start, end, end.Add(time.Nanosecond), ExamExpired},
		{"zero-width window at the instant", start, start, start, ExamActive},
		{"zero-width window just before", start, start, start.Add(-time.Nanosecond), ExamUpcoming},
		{"zero-width window just after", start, start, start.Add(time.Nanosecond), ExamExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyExam(tc.start, tc.end, tc.now))
		})
	}
}

func TestClassifySessionBoundaries(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		now   time.Time
		want  SessionStatus
	}{
		{"before start", start, end, start.Add(-time.Nanosecond), SessionScheduled},
		{"at start", start, end, start, SessionLive},
		{"at end", start, end, end, SessionLive},
		{"after end", start, end, end.Add(time.Nanosecond), SessionEnded},
		{"zero-width window at the instant", start, start, start, SessionLive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySession(tc.start, tc.end, tc.now))
		})
	}
}
