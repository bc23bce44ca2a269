// Package extract turns uploaded document files into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedType is returned for file types outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrEmptyDocument is returned when a document yields no text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// allowedTypes is the ingestion allow-list, keyed by extension without
// the dot.
var allowedTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"txt":  true,
	"md":   true,
}

// Ext returns the lowercase extension of a file name without the dot.
func Ext(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Allowed reports whether the extension is on the ingestion allow-list.
func Allowed(ext string) bool {
	return allowedTypes[strings.ToLower(ext)]
}

// AllowedTypes returns the ingestion allow-list in a stable order.
func AllowedTypes() []string {
	return []string{"pdf", "docx", "doc", "txt", "md"}
}

// Text extracts plain text from the file at path, dispatching on its
// extension. The result is trimmed; a document that yields only
// whitespace returns ErrEmptyDocument.
func Text(path string) (string, error) {
	ext := Ext(path)
	if !Allowed(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case "pdf":
		text, err = pdfText(path)
	case "docx", "doc":
		text, err = docxText(path)
	case "md":
		text, err = markdownText(path)
	default: // txt
		text, err = plainText(path)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, filepath.Base(path))
	}

	return text, nil
}

func plainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return string(data), nil
}
