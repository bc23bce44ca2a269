package rag

import (
	"fmt"
	"strings"

	"github.com/inkwellhq/satchel/pkg/vector"
)

const contextSeparator = "\n\n---\n\n"

// buildContext renders retrieved chunks into the reference block fed to
// the model, one numbered entry per source.
func buildContext(hits []vector.Hit) string {
	if len(hits) == 0 {
		return ""
	}

	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("[source %d] document: «%s»\n%s", i+1, hit.DocName, hit.Content)
	}
	return strings.Join(parts, contextSeparator)
}

// buildSystemPrompt picks the grounded template when retrieval produced
// context, otherwise a fallback that still names the search scope.
func buildSystemPrompt(context, docName string) string {
	scope := "the knowledge base"
	if docName != "" {
		scope = fmt.Sprintf("the document «%s»", docName)
	}

	if context == "" {
		return fmt.Sprintf("You are a knowledge base assistant. Answer the user's question. "+
			"The current search scope is %s; if it holds nothing relevant, say so directly.", scope)
	}

	return fmt.Sprintf(`You are a knowledge base assistant. Answer the user's question based on the following content retrieved from %s.

## Reference material
%s

## Answer requirements
- Prefer the provided material; supplement with your own knowledge only when necessary
- If the material holds no relevant information, tell the user plainly
- Be accurate and concise, and cite sources where appropriate`, scope, context)
}
