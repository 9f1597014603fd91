package research

import (
	"fmt"
	"io"
	"strings"
)

// SourceDisplayLabel replaces the bare "Source" title when citations are shown.
const SourceDisplayLabel = "Source Document"

// DisplayTitle returns the label a host shows for a citation.
func (s Source) DisplayTitle() string {
	if s.Title == SourceFallbackTitle {
		return SourceDisplayLabel
	}
	return s.Title
}

// RenderAnswer writes the answer text followed by a numbered reference list.
func RenderAnswer(w io.Writer, answer *Answer) error {
	if answer == nil {
		return nil
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(answer.Content))
	b.WriteString("\n")
	if len(answer.Sources) > 0 {
		b.WriteString("\nReferences\n")
		for i, src := range answer.Sources {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, src.DisplayTitle(), src.URL)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
