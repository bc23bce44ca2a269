package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteData writes a single SSE frame carrying the given payload as its
// "data:" field, terminated by the blank-line delimiter.
func WriteData(w io.Writer, payload []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

// WriteJSON marshals v and writes it as a single SSE data frame.
func WriteJSON(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WriteData(w, payload)
}
