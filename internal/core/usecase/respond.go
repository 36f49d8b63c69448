package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
)

// PipelineMetrics receives one observation per served query. Implemented by
// the observability package; a nil recorder disables instrumentation.
type PipelineMetrics interface {
	ObserveAnswer(mode domain.RetrievalMode, outcome string, seconds float64)
	CountHallucination(class domain.HallucinationClass)
}

// Answer outcomes as recorded in metrics.
const (
	outcomeAnswered      = "answered"
	outcomeNGWord        = "ng_word"
	outcomeRefusal       = "refusal"
	outcomeHallucination = "hallucination"
)

// ResponseGate is the single path every user-visible reply goes through:
// NG filtering, retrieval, generation, terminator normalization, the optional
// hallucination check, then interaction logging. End users only ever see a
// generated answer or a canned text; raw errors stop at this boundary except
// when retrieval itself is down.
type ResponseGate struct {
	ngTable      domain.NGTable
	strategies   map[domain.RetrievalMode]retrievalStrategy
	generator    ports.TextGenerator
	interactions ports.InteractionLog
	metrics      PipelineMetrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewResponseGate wires the gate. interactions and metrics may be nil to
// disable logging and instrumentation respectively.
func NewResponseGate(
	ngTable domain.NGTable,
	strategies map[domain.RetrievalMode]retrievalStrategy,
	generator ports.TextGenerator,
	interactions ports.InteractionLog,
	metrics PipelineMetrics,
	logger *slog.Logger,
) *ResponseGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseGate{
		ngTable:      ngTable,
		strategies:   strategies,
		generator:    generator,
		interactions: interactions,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

type answerReply struct {
	Response string `json:"response"`
}

type hallucinationReply struct {
	Result flexInt `json:"result"`
}

// Answer serves one question. The only error it returns is a retrieval-layer
// failure; everything downstream of retrieval degrades to a canned reply.
func (g *ResponseGate) Answer(ctx context.Context, query string, mode domain.RetrievalMode, checkHallucination bool) (domain.Answer, error) {
	start := g.now()

	if reply, hit := g.ngTable.Match(query); hit {
		g.logger.Info("ng word matched, refusing", "mode", mode)
		g.observe(mode, outcomeNGWord, start)
		return domain.Answer{
			Text:  reply,
			Image: domain.DefaultFallbackHallucinationMetadata.Image,
		}, nil
	}

	rc, err := g.retrieve(ctx, query, mode)
	if err != nil {
		return domain.Answer{}, err
	}

	text, refused := g.generate(ctx, rc, query)
	outcome := outcomeAnswered
	if refused {
		outcome = outcomeRefusal
	}
	metadata := rc.Metadata

	if checkHallucination && text != domain.DefaultRefusalMessage {
		class := g.classifyHallucination(ctx, text, rc)
		if g.metrics != nil {
			g.metrics.CountHallucination(class)
		}
		if class != domain.HallucinationNone {
			g.logger.Warn("hallucination detected, response discarded", "class", int(class))
			text = domain.DefaultRefusalMessage
			metadata = domain.DefaultFallbackHallucinationMetadata
			outcome = outcomeHallucination
		}
	}

	g.appendInteraction(mode, rc, metadata, query, text, start)
	g.observe(mode, outcome, start)
	return domain.Answer{Text: text, Image: metadata.Image}, nil
}

// CheckHallucination runs the full pipeline without discarding anything: the
// generated text is returned alongside its contexts and the classifier's
// verdict, so evaluation tooling can inspect rejected answers.
func (g *ResponseGate) CheckHallucination(ctx context.Context, query string, mode domain.RetrievalMode) (domain.HallucinationReport, error) {
	start := g.now()

	rc, err := g.retrieve(ctx, query, mode)
	if err != nil {
		return domain.HallucinationReport{}, err
	}

	text, _ := g.generate(ctx, rc, query)
	class := domain.HallucinationNone
	if text != domain.DefaultRefusalMessage {
		class = g.classifyHallucination(ctx, text, rc)
	}
	if g.metrics != nil {
		g.metrics.CountHallucination(class)
	}

	g.appendInteraction(mode, rc, rc.Metadata, query, text, start)
	return domain.HallucinationReport{
		ResponseText:     text,
		QAContext:        rc.QAContext,
		KnowledgeContext: rc.KnowledgeContext,
		Class:            class,
		Metadata:         rc.Metadata,
	}, nil
}

func (g *ResponseGate) retrieve(ctx context.Context, query string, mode domain.RetrievalMode) (retrievedContext, error) {
	strategy, ok := g.strategies[mode]
	if !ok {
		g.logger.Warn("unknown retrieval mode, degrading to multi", "mode", mode)
		strategy = g.strategies[domain.RetrievalMulti]
	}
	rc, err := strategy.Retrieve(ctx, query)
	if err != nil {
		return retrievedContext{}, domain.WrapError(domain.ErrIndexUnavailable, "retrieve context", err)
	}
	return rc, nil
}

// generate produces the spoken text for the retrieved context. The second
// return reports whether the text is the canned refusal rather than a model
// answer.
func (g *ResponseGate) generate(ctx context.Context, rc retrievedContext, question string) (string, bool) {
	prompt := buildAnswerPrompt(rc.QAContext, rc.KnowledgeContext, question)
	raw, err := g.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		g.logger.Error("answer generation failed", "error", err)
		return domain.DefaultRefusalMessage, true
	}

	var reply answerReply
	if err := decodeModelJSON(raw, &reply); err != nil || reply.Response == "" {
		g.logger.Warn("answer reply not parseable", "error", err, "reply", raw)
		return domain.DefaultRefusalMessage, true
	}
	return collapseTerminators(reply.Response), false
}

// classifyHallucination is fail-open: when the classifier itself cannot be
// reached or parsed, the answer passes.
func (g *ResponseGate) classifyHallucination(ctx context.Context, text string, rc retrievedContext) domain.HallucinationClass {
	prompt := buildHallucinationPrompt(text, rc.KnowledgeContext, rc.QAContext)
	raw, err := g.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		g.logger.Warn("hallucination check unreachable, passing answer", "error", err)
		return domain.HallucinationNone
	}

	var reply hallucinationReply
	if err := decodeModelJSON(raw, &reply); err != nil {
		g.logger.Warn("hallucination reply not parseable, passing answer", "error", err, "reply", raw)
		return domain.HallucinationNone
	}
	switch domain.HallucinationClass(reply.Result) {
	case domain.HallucinationContradicts:
		return domain.HallucinationContradicts
	case domain.HallucinationFabricates:
		return domain.HallucinationFabricates
	default:
		return domain.HallucinationNone
	}
}

func (g *ResponseGate) appendInteraction(mode domain.RetrievalMode, rc retrievedContext, metadata domain.DocumentMetadata, question, response string, start time.Time) {
	if g.interactions == nil {
		return
	}
	record := domain.InteractionRecord{
		Timestamp:        start,
		RetrievalMode:    mode,
		QAContext:        rc.QAContext,
		KnowledgeContext: rc.KnowledgeContext,
		Metadata:         metadata,
		Question:         question,
		Response:         response,
		LatencyMS:        float64(g.now().Sub(start)) / float64(time.Millisecond),
	}
	if err := g.interactions.Append(record); err != nil {
		g.logger.Warn("interaction log append failed", "error", err)
	}
}

func (g *ResponseGate) observe(mode domain.RetrievalMode, outcome string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObserveAnswer(mode, outcome, g.now().Sub(start).Seconds())
}
