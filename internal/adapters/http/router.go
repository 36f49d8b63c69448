package httpadapter

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/aituberdev/answerd/internal/core/domain"
	"github.com/aituberdev/answerd/internal/core/ports"
	"github.com/aituberdev/answerd/internal/observability/metrics"
)

// RouterConfig carries the traffic and pipeline defaults the handlers need.
type RouterConfig struct {
	DefaultRetrievalMode domain.RetrievalMode
	HallucinationCheck   bool
	RateLimitPerSecond   float64
	RateLimitBurst       int
	MaxConcurrentAnswers int
	BackpressureWait     time.Duration
}

type Router struct {
	responder ports.Responder
	filter    ports.CommentFilter
	finder    ports.KnowledgeFinder
	chat      ports.ChatMessageService
	templates []string
	metrics   *metrics.HTTPServerMetrics
	logger    *slog.Logger
	cfg       RouterConfig
}

func NewRouter(
	responder ports.Responder,
	filter ports.CommentFilter,
	finder ports.KnowledgeFinder,
	chat ports.ChatMessageService,
	templates []string,
	httpMetrics *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	cfg RouterConfig,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultRetrievalMode == "" {
		cfg.DefaultRetrievalMode = domain.RetrievalMulti
	}
	if cfg.BackpressureWait <= 0 {
		cfg.BackpressureWait = 100 * time.Millisecond
	}
	return &Router{
		responder: responder,
		filter:    filter,
		finder:    finder,
		chat:      chat,
		templates: templates,
		metrics:   httpMetrics,
		logger:    logger,
		cfg:       cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/reply", rt.reply)
	mux.HandleFunc("/v1/hallucination", rt.hallucination)
	mux.HandleFunc("/v1/filter", rt.filterComments)
	mux.HandleFunc("/v1/info", rt.info)
	mux.HandleFunc("/v1/template_message", rt.templateMessage)
	mux.HandleFunc("/v1/chat_message", rt.saveChatMessage)
	mux.HandleFunc("/v1/chat_messages", rt.unreadChatMessages)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrentAnswers, rt.cfg.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitPerSecond, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type replyRequest struct {
	Message          string `json:"message"`
	DocRetrievalType string `json:"doc_retrieval_type"`
	HalCheck         *bool  `json:"hal_check"`
}

func (rt *Router) reply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	mode, err := rt.retrievalMode(req.DocRetrievalType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	checkHallucination := rt.cfg.HallucinationCheck
	if req.HalCheck != nil {
		checkHallucination = *req.HalCheck
	}

	answer, err := rt.responder.Answer(r.Context(), req.Message, mode, checkHallucination)
	if err != nil {
		rt.logger.Error("reply failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to generate a reply"})
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) hallucination(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	mode, err := rt.retrievalMode(req.DocRetrievalType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	report, err := rt.responder.CheckHallucination(r.Context(), req.Message, mode)
	if err != nil {
		rt.logger.Error("hallucination check failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to run the hallucination check"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) filterComments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Comments []string `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	// Classification failure degrades to an empty batch at this edge; the
	// worker path surfaces the error to its own logging instead.
	kept, err := rt.filter.FilterComments(r.Context(), req.Comments)
	if err != nil {
		rt.logger.Error("comment filtering failed, returning empty batch", "request_id", requestIDFromContext(r.Context()), "error", err)
		kept = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"comments": kept})
}

func (rt *Router) info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Message string `json:"message"`
		TopK    int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	knowledge, qa, err := rt.finder.Lookup(r.Context(), req.Message, req.TopK)
	if err != nil {
		rt.logger.Error("knowledge lookup failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to look up knowledge"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"knowledge": knowledge, "qa": qa})
}

func (rt *Router) templateMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if len(rt.templates) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no template messages configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": rt.templates[rand.Intn(len(rt.templates))],
	})
}

func (rt *Router) saveChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var msg domain.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.chat.SaveMessage(r.Context(), msg); err != nil {
		rt.logger.Error("chat message save failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to save the chat message"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) unreadChatMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	videoID := strings.TrimSpace(r.URL.Query().Get("video_id"))
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "video_id is required"})
		return
	}

	msgs, err := rt.chat.UnreadMessages(r.Context(), videoID)
	if err != nil {
		rt.logger.Error("unread chat messages failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "failed to list chat messages"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (rt *Router) retrievalMode(raw string) (domain.RetrievalMode, error) {
	if strings.TrimSpace(raw) == "" {
		return rt.cfg.DefaultRetrievalMode, nil
	}
	return domain.ParseRetrievalMode(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
