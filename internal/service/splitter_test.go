package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pushAll(s *ReasoningSplitter, chunks ...string) []Segment {
	var out []Segment
	for _, c := range chunks {
		out = append(out, s.Push(c)...)
	}
	return append(out, s.Flush()...)
}

func TestReasoningSplitter(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []Segment
	}{
		{
			name:   "plain text",
			chunks: []string{"Hello ", "world"},
			want:   []Segment{{Text: "Hello "}, {Text: "world"}},
		},
		{
			name:   "reasoning then answer",
			chunks: []string{"<think>weigh it</think>answer"},
			want:   []Segment{{Reasoning: true, Text: "weigh it"}, {Text: "answer"}},
		},
		{
			name:   "markers split across chunks",
			chunks: []string{"<thi", "nk>abc</th", "ink>def"},
			want:   []Segment{{Reasoning: true, Text: "abc"}, {Text: "def"}},
		},
		{
			name:   "unclosed reasoning flushed as text",
			chunks: []string{"<think>still going", " on"},
			want: []Segment{
				{Reasoning: true, Text: "still going"},
				{Reasoning: true, Text: " on"},
				{Text: "still going on"},
			},
		},
		{
			name:   "lone angle bracket held until flush",
			chunks: []string{"a < b and abc<"},
			want:   []Segment{{Text: "a < b and abc"}, {Text: "<"}},
		},
		{
			name:   "two reasoning blocks",
			chunks: []string{"<think>one</think>mid<think>two</think>end"},
			want: []Segment{
				{Reasoning: true, Text: "one"},
				{Text: "mid"},
				{Reasoning: true, Text: "two"},
				{Text: "end"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s ReasoningSplitter
			assert.Equal(t, tt.want, pushAll(&s, tt.chunks...))
			assert.False(t, s.InReasoning())
		})
	}
}

func TestReasoningSplitter_InReasoning(t *testing.T) {
	var s ReasoningSplitter
	s.Push("<think>x")
	assert.True(t, s.InReasoning())
	s.Push("</think>")
	assert.False(t, s.InReasoning())
}

func TestPartialMarkerSuffix(t *testing.T) {
	assert.Equal(t, 0, partialMarkerSuffix("abc", ThinkOpen))
	assert.Equal(t, 1, partialMarkerSuffix("abc<", ThinkOpen))
	assert.Equal(t, 6, partialMarkerSuffix("x<think", ThinkOpen))
	assert.Equal(t, 3, partialMarkerSuffix("</t", ThinkClose))
	assert.Equal(t, 0, partialMarkerSuffix("", ThinkOpen))
}
