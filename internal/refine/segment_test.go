package refine

import (
	"reflect"
	"testing"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "stop words removed and stems kept in order",
			query: "what did the user say about running shoes",
			want:  []string{"user", "say", "run", "shoe", "what did the user say about running shoes"},
		},
		{
			name:  "punctuation splits tokens",
			query: "coffee-preferences, morning!",
			want:  []string{"coffe", "prefer", "morn", "coffee-preferences, morning!"},
		},
		{
			name:  "duplicate stems collapse",
			query: "running runs runner",
			want:  []string{"run", "runner", "running runs runner"},
		},
		{
			name:  "all stop words still yields raw query",
			query: "what is it",
			want:  []string{"what is it"},
		},
		{
			name:  "empty query",
			query: "",
			want:  []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segment(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSegmentAlwaysEndsWithRawQuery(t *testing.T) {
	queries := []string{
		"favorite restaurants in Lisbon",
		"deploy schedule",
		"who approved the budget?",
	}
	for _, q := range queries {
		segments := Segment(q)
		if len(segments) == 0 || segments[len(segments)-1] != q {
			t.Errorf("Segment(%q) must end with the raw query, got %v", q, segments)
		}
	}
}
