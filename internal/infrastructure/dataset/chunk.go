package dataset

import (
	"strings"

	"github.com/aituberdev/answerd/internal/core/domain"
)

const defaultChunkSize = 300

// ChunkDocuments cuts each corpus row into retrieval-sized pieces. Every
// chunk inherits its source row's metadata, so a retrieved chunk still points
// at the originating slide. Both index builds run the corpus through here.
func ChunkDocuments(docs []domain.KnowledgeDocument, chunkSize int) []domain.KnowledgeDocument {
	out := make([]domain.KnowledgeDocument, 0, len(docs))
	for _, doc := range docs {
		for _, chunk := range ChunkText(doc.Content, chunkSize) {
			out = append(out, domain.KnowledgeDocument{
				Content:  chunk,
				Metadata: doc.Metadata,
			})
		}
	}
	return out
}

// ChunkText cuts extracted document text into retrieval-sized pieces.
// Paragraph boundaries (blank lines) are respected where possible; a
// paragraph longer than the chunk size is cut at sentence ends, then hard at
// the rune limit.
func ChunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, paragraph := range splitParagraphs(text) {
		runes := []rune(paragraph)
		if currentLen > 0 && currentLen+len(runes) > chunkSize {
			flush()
		}
		if len(runes) <= chunkSize {
			if currentLen > 0 {
				current.WriteString("\n")
				currentLen++
			}
			current.WriteString(paragraph)
			currentLen += len(runes)
			continue
		}

		flush()
		for _, piece := range splitLongParagraph(runes, chunkSize) {
			chunks = append(chunks, piece)
		}
	}
	flush()
	return chunks
}

func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitLongParagraph cuts at the last sentence end inside the window, falling
// back to a hard cut when a sentence itself exceeds the window.
func splitLongParagraph(runes []rune, chunkSize int) []string {
	var out []string
	for start := 0; start < len(runes); {
		end := start + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			cut := lastSentenceEnd(runes[start:end])
			if cut > 0 {
				end = start + cut
			}
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
		start = end
	}
	return out
}

func lastSentenceEnd(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '。', '！', '？', '．':
			return i + 1
		}
	}
	return 0
}
