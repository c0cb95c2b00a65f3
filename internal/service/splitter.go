package service

import "strings"

const (
	ThinkOpen  = "<think>"
	ThinkClose = "</think>"
)

// Segment is a run of streamed text on one side of the reasoning markers.
type Segment struct {
	Reasoning bool
	Text      string
}

// ReasoningSplitter separates <think>...</think> content from answer text in
// a chunked stream. Any tail that could be the start of a marker is held
// back until the next chunk decides it.
type ReasoningSplitter struct {
	pending     string
	inReasoning bool
	// open collects reasoning since the last opening marker so an unclosed
	// block can be returned as text.
	open strings.Builder
}

// Push consumes one chunk and returns the segments it completes.
func (s *ReasoningSplitter) Push(chunk string) []Segment {
	s.pending += chunk

	var out []Segment
	for {
		marker := ThinkOpen
		if s.inReasoning {
			marker = ThinkClose
		}

		if idx := strings.Index(s.pending, marker); idx >= 0 {
			out = s.appendSegment(out, s.pending[:idx])
			s.pending = s.pending[idx+len(marker):]
			s.inReasoning = !s.inReasoning
			s.open.Reset()
			continue
		}

		keep := partialMarkerSuffix(s.pending, marker)
		out = s.appendSegment(out, s.pending[:len(s.pending)-keep])
		s.pending = s.pending[len(s.pending)-keep:]
		return out
	}
}

// Flush ends the stream. Held-back text is released, and reasoning whose
// closing marker never arrived is returned as answer text.
func (s *ReasoningSplitter) Flush() []Segment {
	text := s.pending
	if s.inReasoning {
		text = s.open.String() + text
	}
	s.pending = ""
	s.inReasoning = false
	s.open.Reset()

	if text == "" {
		return nil
	}
	return []Segment{{Text: text}}
}

// InReasoning reports whether an opening marker is awaiting its close.
func (s *ReasoningSplitter) InReasoning() bool {
	return s.inReasoning
}

func (s *ReasoningSplitter) appendSegment(out []Segment, text string) []Segment {
	if text == "" {
		return out
	}
	if s.inReasoning {
		s.open.WriteString(text)
	}
	if n := len(out); n > 0 && out[n-1].Reasoning == s.inReasoning {
		out[n-1].Text += text
		return out
	}
	return append(out, Segment{Reasoning: s.inReasoning, Text: text})
}

// partialMarkerSuffix returns the length of the longest suffix of s that is
// a proper prefix of marker.
func partialMarkerSuffix(s, marker string) int {
	for n := min(len(s), len(marker)-1); n > 0; n-- {
		if strings.HasSuffix(s, marker[:n]) {
			return n
		}
	}
	return 0
}
