package domain

import "fmt"

// DocumentMetadata locates the manifesto slide a knowledge document was cut
// from. Row is the positional identity in the source corpus, Image the slide
// file shown next to a spoken answer.
type DocumentMetadata struct {
	Row   int    `json:"row"`
	Image string `json:"image"`
}

// Every served answer must carry a slide reference. These are the two
// well-known defaults used when no retrieval signal is strong enough.
var (
	DefaultFallbackKnowledgeMetadata     = DocumentMetadata{Row: 1, Image: "slide_1.png"}
	DefaultFallbackHallucinationMetadata = DocumentMetadata{Row: 1, Image: "unknown.png"}
)

// KnowledgeDocument is one row of the knowledge corpus. Immutable once
// indexed; identity is the source row, not the content.
type KnowledgeDocument struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// QAExemplar is a curated question/answer pair used as example-answer context.
// The eval fields only matter to the offline evaluation tooling.
type QAExemplar struct {
	Question         string `json:"question"`
	Answer           string `json:"answer"`
	EvalAspect       string `json:"eval_aspect,omitempty"`
	EvalSlideNumbers []int  `json:"eval_slide_numbers,omitempty"`
}

// PageContent is the canonical text indexed for an exemplar.
func (q QAExemplar) PageContent() string {
	return fmt.Sprintf("question: %s\nanswer: %s", q.Question, q.Answer)
}

// RetrievalCandidate is a transient per-query retrieval result. Ordering
// within a result list is significant; Score is only populated by scored
// retrieval paths.
type RetrievalCandidate struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
	Score    float64          `json:"score,omitempty"`
}
