package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/aituberdev/answerd/internal/core/domain"
)

type recordingInteractionLog struct {
	records []domain.InteractionRecord
}

func (l *recordingInteractionLog) Append(record domain.InteractionRecord) error {
	l.records = append(l.records, record)
	return nil
}

func multiModeGate(gen *scriptedGenerator, ngTable domain.NGTable, log *recordingInteractionLog) *ResponseGate {
	qa := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("question: 政策は？\nanswer: 5本柱です", 1),
	}}
	knowledge := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("政策の5本柱: 教育、子育て、防災、経済、行政改革", 3),
	}}
	lexical := &fakeLexicalSearcher{hits: []domain.RetrievalCandidate{
		candidate("行政改革の詳細", 7),
	}}
	hybrid := NewHybridRetriever(lexical, knowledge)
	reranker := NewReranker(gen, nil)
	strategies := NewRetrievalStrategies(qa, knowledge, hybrid, reranker, 5, 3)

	if log == nil {
		return NewResponseGate(ngTable, strategies, gen, nil, nil, nil)
	}
	return NewResponseGate(ngTable, strategies, gen, log, nil, nil)
}

func TestAnswerMultiModeEndToEnd(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{
		`{"results": [1, 2]}`,
		`{"response": "政策の5本柱は教育、子育て、防災、経済、行政改革です。。"}`,
	}}
	log := &recordingInteractionLog{}
	gate := multiModeGate(gen, domain.NGTable{}, log)

	answer, err := gate.Answer(context.Background(), "政策の5本柱を教えて", domain.RetrievalMulti, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(answer.Text, "5本柱") {
		t.Fatalf("expected generated answer, got %q", answer.Text)
	}
	if strings.Contains(answer.Text, "。。") {
		t.Fatalf("expected repeated terminators collapsed, got %q", answer.Text)
	}
	if answer.Image != "slide.png" {
		t.Fatalf("expected the top candidate's slide, got %q", answer.Image)
	}
	if len(log.records) != 1 {
		t.Fatalf("expected one interaction record, got %d", len(log.records))
	}
	if log.records[0].Question != "政策の5本柱を教えて" {
		t.Fatalf("expected question logged, got %q", log.records[0].Question)
	}
	if log.records[0].RetrievalMode != domain.RetrievalMulti {
		t.Fatalf("expected multi mode logged, got %q", log.records[0].RetrievalMode)
	}
}

func TestAnswerSingleDocumentFlowUsesBareIntegerSelector(t *testing.T) {
	gen := &scriptedGenerator{
		textReplies: []string{"1"},
		jsonReplies: []string{`{"response": "防災対策を強化します。"}`},
	}
	qa := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("question: 防災は？\nanswer: 強化します", 1),
	}}
	knowledge := &fakeVectorSearcher{hits: []domain.RetrievalCandidate{
		candidate("防災対策の詳細", 2),
	}}
	lexical := &fakeLexicalSearcher{}
	hybrid := NewHybridRetriever(lexical, knowledge)
	strategies := NewRetrievalStrategies(qa, knowledge, hybrid, NewReranker(gen, nil), 5, 1)
	gate := NewResponseGate(domain.NGTable{}, strategies, gen, nil, nil, nil)

	answer, err := gate.Answer(context.Background(), "防災について教えて", domain.RetrievalMulti, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "防災対策を強化します。" {
		t.Fatalf("expected the generated answer, got %q", answer.Text)
	}
	if len(gen.textPrompts) != 1 {
		t.Fatalf("expected one bare-integer selection call, got %d", len(gen.textPrompts))
	}
	if len(gen.jsonPrompts) != 1 {
		t.Fatalf("expected only the generation JSON call, got %d", len(gen.jsonPrompts))
	}
	if answer.Image != "slide.png" {
		t.Fatalf("expected the selected document's slide, got %q", answer.Image)
	}
}

func TestAnswerNGWordShortCircuits(t *testing.T) {
	gen := &scriptedGenerator{}
	table := domain.NGTable{Rules: []domain.NGRule{{Pattern: "賄賂"}}}
	gate := multiModeGate(gen, table, nil)

	answer, err := gate.Answer(context.Background(), "賄賂をもらっていますか", domain.RetrievalMulti, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != domain.DefaultRefusalMessage {
		t.Fatalf("expected the refusal message, got %q", answer.Text)
	}
	if answer.Image != domain.DefaultFallbackHallucinationMetadata.Image {
		t.Fatalf("expected the unknown slide, got %q", answer.Image)
	}
	if len(gen.jsonPrompts) != 0 || len(gen.textPrompts) != 0 {
		t.Fatalf("expected no model calls on an NG hit, got json=%d text=%d", len(gen.jsonPrompts), len(gen.textPrompts))
	}
}

func TestAnswerNGRuleCustomReply(t *testing.T) {
	gen := &scriptedGenerator{}
	table := domain.NGTable{Rules: []domain.NGRule{{Pattern: "対立候補", Reply: "他の候補者についてはコメントを差し控えます。"}}}
	gate := multiModeGate(gen, table, nil)

	answer, err := gate.Answer(context.Background(), "対立候補をどう思う？", domain.RetrievalMulti, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "他の候補者についてはコメントを差し控えます。" {
		t.Fatalf("expected the rule's own reply, got %q", answer.Text)
	}
}

func TestAnswerHallucinationRejection(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{
		`{"results": [1]}`,
		`{"response": "私は宇宙開発企業を経営していました。"}`,
		`{"result": 2}`,
	}}
	log := &recordingInteractionLog{}
	gate := multiModeGate(gen, domain.NGTable{}, log)

	answer, err := gate.Answer(context.Background(), "経歴を教えて", domain.RetrievalMulti, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != domain.DefaultRefusalMessage {
		t.Fatalf("expected the answer discarded, got %q", answer.Text)
	}
	if answer.Image != domain.DefaultFallbackHallucinationMetadata.Image {
		t.Fatalf("expected the unknown slide after rejection, got %q", answer.Image)
	}
	if len(log.records) != 1 || log.records[0].Response != domain.DefaultRefusalMessage {
		t.Fatalf("expected the served refusal logged, got %#v", log.records)
	}
}

func TestAnswerHallucinationCheckFailOpen(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{
		`{"results": [1]}`,
		`{"response": "教育への投資を倍増します。"}`,
		`not json at all`,
	}}
	gate := multiModeGate(gen, domain.NGTable{}, nil)

	answer, err := gate.Answer(context.Background(), "教育政策は？", domain.RetrievalMulti, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "教育への投資を倍増します。" {
		t.Fatalf("expected the answer to pass when the checker is unusable, got %q", answer.Text)
	}
}

func TestAnswerGenerationFailureRefuses(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{
		`{"results": [1]}`,
		`the model forgot the schema`,
	}}
	gate := multiModeGate(gen, domain.NGTable{}, nil)

	answer, err := gate.Answer(context.Background(), "防災対策は？", domain.RetrievalMulti, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != domain.DefaultRefusalMessage {
		t.Fatalf("expected the refusal message, got %q", answer.Text)
	}
}

func TestAnswerUnknownModeDegradesToMulti(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{
		`{"results": [1]}`,
		`{"response": "お答えします。"}`,
	}}
	gate := multiModeGate(gen, domain.NGTable{}, nil)

	answer, err := gate.Answer(context.Background(), "質問です", domain.RetrievalMode("v99"), false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "お答えします。" {
		t.Fatalf("expected the multi pipeline to serve the unknown mode, got %q", answer.Text)
	}
}

func TestCheckHallucinationReturnsFullReport(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{
		`{"results": [1]}`,
		`{"response": "存在しない政策を約束します。"}`,
		`{"result": 1}`,
	}}
	gate := multiModeGate(gen, domain.NGTable{}, nil)

	report, err := gate.CheckHallucination(context.Background(), "政策は？", domain.RetrievalMulti)
	if err != nil {
		t.Fatalf("CheckHallucination() error = %v", err)
	}
	if report.Class != domain.HallucinationContradicts {
		t.Fatalf("expected class 1, got %d", report.Class)
	}
	// Check-only flow keeps the rejected text for inspection.
	if report.ResponseText != "存在しない政策を約束します。" {
		t.Fatalf("expected the generated text preserved, got %q", report.ResponseText)
	}
	if report.KnowledgeContext == "" || report.QAContext == "" {
		t.Fatalf("expected contexts populated, got %#v", report)
	}
}
