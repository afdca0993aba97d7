// Package httpadapter is the API surface: chat, crawl trigger, page
// lookup, health, metrics.
package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
	"github.com/kkucdk/assistant-backend/internal/observability/metrics"
)

type Router struct {
	chat    ports.ChatService
	crawler ports.SiteCrawler
	repo    ports.PageRepository
	metrics *metrics.PipelineMetrics
	service string
}

func NewRouter(
	chat ports.ChatService,
	crawler ports.SiteCrawler,
	repo ports.PageRepository,
	pipelineMetrics *metrics.PipelineMetrics,
	service string,
) *Router {
	return &Router{
		chat:    chat,
		crawler: crawler,
		repo:    repo,
		metrics: pipelineMetrics,
		service: service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.postChat)
	mux.HandleFunc("/v1/crawl", rt.postCrawl)
	mux.HandleFunc("/v1/pages/", rt.getPageByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware(rt.service, mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Query   string                    `json:"query"`
	History []domain.ConversationTurn `json:"history"`
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var request chatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	answer := rt.chat.Answer(r.Context(), request.Query, request.History)
	if rt.metrics != nil {
		rt.metrics.RecordAnswer(rt.service, string(answer.Outcome), answer.SourceCount, time.Since(start))
	}

	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) postCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	report, err := rt.crawler.Crawl(r.Context())
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordCrawlRun(rt.service, "failed", 0)
		}
		if domain.IsKind(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordCrawlRun(rt.service, "completed", report.PagesPublished)
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getPageByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/pages/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page id is required"})
		return
	}

	page, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		if domain.IsKind(err, domain.ErrPageNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "page not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrBodyNotAllowed) {
		return
	}
}
