package domain

import (
	"fmt"
	"strings"
	"time"
)

// RetrievalMode selects how knowledge documents are retrieved for a query.
type RetrievalMode string

const (
	// RetrievalLegacy takes the single nearest knowledge document.
	RetrievalLegacy RetrievalMode = "legacy"
	// RetrievalCosine takes the single nearest document together with its
	// cosine relevance score, which is surfaced to the model.
	RetrievalCosine RetrievalMode = "cosine"
	// RetrievalMulti runs hybrid retrieval and LLM reranking over several
	// candidates.
	RetrievalMulti RetrievalMode = "multi"
)

// ParseRetrievalMode maps a wire value onto a mode. Unknown values are an
// input error; callers that prefer degrading pick RetrievalMulti themselves.
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	switch RetrievalMode(strings.ToLower(strings.TrimSpace(s))) {
	case RetrievalLegacy:
		return RetrievalLegacy, nil
	case RetrievalCosine:
		return RetrievalCosine, nil
	case RetrievalMulti, RetrievalMode(""):
		return RetrievalMulti, nil
	default:
		return "", fmt.Errorf("%w: unknown retrieval mode %q", ErrInvalidInput, s)
	}
}

// Canned user-facing texts. End users only ever see a generated answer or one
// of these; raw errors never leave the gate.
const (
	// DefaultRefusalMessage is spoken for NG hits, generation failures and
	// hallucination rejections.
	DefaultRefusalMessage = "その質問には答えられません。私はまだ学習中であるため、答えられないこともあります。申し訳ありません。"
	// NoRelevantKnowledgeText is put into the prompt when the reranker says
	// no retrieved document applies.
	NoRelevantKnowledgeText = "該当する知識は存在しません。政策に関係しない話題には回答を差し控えてください。"
	// ExtractionFailureText is put into the prompt when reranking produced an
	// index we cannot honor or no usable output at all.
	ExtractionFailureText = "ドキュメントの中から知識をうまく抽出出来ませんでした。自身がまだ学習中であり、その質問にまだ回答できない旨を回答して下さい"
)

// HallucinationClass is the safety classifier's verdict on a generated reply.
type HallucinationClass int

const (
	HallucinationNone        HallucinationClass = 0
	HallucinationContradicts HallucinationClass = 1
	HallucinationFabricates  HallucinationClass = 2
)

// Answer is the released (text, slide) pair.
type Answer struct {
	Text  string `json:"response_text"`
	Image string `json:"image_filename"`
}

// HallucinationReport is the full output of the check-only flow: the answer
// plus the contexts it was generated from and the classifier's verdict.
type HallucinationReport struct {
	ResponseText     string             `json:"response_text"`
	QAContext        string             `json:"rag_qa"`
	KnowledgeContext string             `json:"rag_knowledge"`
	Class            HallucinationClass `json:"hal_cls"`
	Metadata         DocumentMetadata   `json:"rag_knowledge_meta"`
}

// InteractionRecord is one served query, append-only.
type InteractionRecord struct {
	Timestamp        time.Time        `json:"timestamp"`
	RetrievalMode    RetrievalMode    `json:"doc_retrieval_type"`
	QAContext        string           `json:"rag_qa"`
	KnowledgeContext string           `json:"rag_knowledge"`
	Metadata         DocumentMetadata `json:"metadata"`
	Question         string           `json:"question"`
	Response         string           `json:"response"`
	LatencyMS        float64          `json:"latency_ms"`
}
