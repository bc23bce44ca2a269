package rag

import "math"

// Event types emitted on a chat stream.
const (
	EventSources = "sources"
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

// Source describes one retrieved chunk backing an answer.
type Source struct {
	DocID   string  `json:"doc_id"`
	DocName string  `json:"doc_name"`
	Preview string  `json:"preview"`
	Score   float64 `json:"score"`
}

// Event is one message on a chat stream. Exactly one of the optional
// fields is meaningful, selected by Type: sources carry Sources, content
// carries Content, error carries Error, done carries nothing.
//
// Sources has no omitempty: a sources event with zero hits must still
// serialize an empty array for clients.
type Event struct {
	Type    string   `json:"type"`
	Sources []Source `json:"sources"`
	Content string   `json:"content,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func sourcesEvent(sources []Source) Event {
	if sources == nil {
		sources = []Source{}
	}
	return Event{Type: EventSources, Sources: sources}
}

func contentEvent(content string) Event {
	return Event{Type: EventContent, Content: content}
}

func doneEvent() Event {
	return Event{Type: EventDone}
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Error: err.Error()}
}

// roundScore keeps four decimal places, enough to rank and display.
func roundScore(score float32) float64 {
	return math.Round(float64(score)*10000) / 10000
}

// previewOf truncates chunk content to SourcePreviewLen runes.
func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= SourcePreviewLen {
		return content
	}
	return string(runes[:SourcePreviewLen])
}
