package openai

import "strings"

const (
	thinkingOpenTag  = "<thinking>"
	thinkingCloseTag = "</thinking>"
)

// splitEvent is one run of text classified by the splitter.
type splitEvent struct {
	text     string
	thinking bool
}

// thinkingSplitter excises <thinking>...</thinking> blocks from a stream of
// text fragments. Tags may arrive split across fragment boundaries, so this
// is a two-state scanner with a buffered partial-tag prefix rather than a
// regex over whole strings.
type thinkingSplitter struct {
	inside bool
	buf    string
}

// feed consumes one text fragment and returns the classified runs, in order.
func (s *thinkingSplitter) feed(text string) []splitEvent {
	if s.buf != "" {
		text = s.buf + text
		s.buf = ""
	}

	var events []splitEvent
	emit := func(t string, thinking bool) {
		if t == "" {
			return
		}
		events = append(events, splitEvent{text: t, thinking: thinking})
	}

	for text != "" {
		tag := thinkingOpenTag
		if s.inside {
			tag = thinkingCloseTag
		}

		if i := strings.Index(text, tag); i >= 0 {
			emit(text[:i], s.inside)
			text = text[i+len(tag):]
			s.inside = !s.inside
			continue
		}

		// No full tag. If the fragment ends in a proper tag prefix, hold it
		// back for the next fragment.
		if n := tagPrefixAtEnd(text, tag); n > 0 {
			emit(text[:len(text)-n], s.inside)
			s.buf = text[len(text)-n:]
		} else {
			emit(text, s.inside)
		}
		text = ""
	}

	return events
}

// flush releases whatever is still buffered at end of stream. A pending
// prefix never became a tag, so it keeps the classification of its
// surrounding state.
func (s *thinkingSplitter) flush() []splitEvent {
	if s.buf == "" {
		return nil
	}
	ev := splitEvent{text: s.buf, thinking: s.inside}
	s.buf = ""
	return []splitEvent{ev}
}

// tagPrefixAtEnd returns the length of the longest proper prefix of tag that
// is a suffix of text, or 0.
func tagPrefixAtEnd(text, tag string) int {
	max := len(tag) - 1
	if len(text) < max {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(text, tag[:n]) {
			return n
		}
	}
	return 0
}
