// Package api exposes the admin-facing HTTP trigger surface. Every
// endpoint is a thin adapter over the single Dispatch entry point; none
// of them duplicate any pipeline logic.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/floatit/go-push-service/internal/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

// maxBodyRunes bounds display bodies composed at this boundary; longer
// text is cut to 97 runes plus an ellipsis.
const maxBodyRunes = 100

// Dispatcher is the single pipeline entry point the handlers adapt.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *notification.Job) (*dispatch.Result, error)
}

// JobCreator persists a new pending job for asynchronous pickup.
type JobCreator interface {
	Create(ctx context.Context, job *notification.Job) (string, error)
}

// PendingRunner drains the pending job queue once.
type PendingRunner interface {
	RunOnce(ctx context.Context) (processed int, err error)
}

// SendAPI holds the admin send endpoints.
type SendAPI struct {
	dispatcher Dispatcher
	creator    JobCreator
	runner     PendingRunner
	logger     *slog.Logger
}

func NewSendAPI(dispatcher Dispatcher, creator JobCreator, runner PendingRunner, logger *slog.Logger) *SendAPI {
	return &SendAPI{
		dispatcher: dispatcher,
		creator:    creator,
		runner:     runner,
		logger:     logger.With("component", "SendAPI"),
	}
}

type sendTopicRequest struct {
	Topic string            `json:"topic"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// SendTopic broadcasts synchronously to a gateway topic.
func (a *SendAPI) SendTopic(w http.ResponseWriter, r *http.Request) {
	var req sendTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Topic == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "topic and title required")
		return
	}

	job := &notification.Job{
		Kind:  notification.KindTopic,
		Topic: req.Topic,
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	}
	a.respondWithResult(w, r, job)
}

type sendUserRequest struct {
	UIDs   []string          `json:"uids"`
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

// SendUser delivers synchronously to the tokens of the given users, or
// to an explicit token list. One addressing mode per call.
func (a *SendAPI) SendUser(w http.ResponseWriter, r *http.Request) {
	var req sendUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title required")
		return
	}

	job := &notification.Job{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	}
	switch {
	case len(req.UIDs) > 0 && len(req.Tokens) > 0:
		writeError(w, http.StatusBadRequest, "specify uids or tokens, not both")
		return
	case len(req.UIDs) > 0:
		job.Kind = notification.KindUserList
		job.Recipients = req.UIDs
	case len(req.Tokens) > 0:
		job.Kind = notification.KindTokens
		job.Tokens = req.Tokens
	default:
		writeError(w, http.StatusBadRequest, "no recipients")
		return
	}
	a.respondWithResult(w, r, job)
}

type createJobRequest struct {
	Kind       notification.Kind `json:"kind"`
	Recipient  string            `json:"recipientUid"`
	Recipients []string          `json:"recipientUids"`
	EventID    string            `json:"eventId"`
	Topic      string            `json:"topic"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data"`
}

// CreateJob enqueues a pending job for the poll/event triggers.
func (a *SendAPI) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	job := &notification.Job{
		Kind:       req.Kind,
		Recipient:  req.Recipient,
		Recipients: req.Recipients,
		EventID:    req.EventID,
		Topic:      req.Topic,
		Title:      req.Title,
		Body:       truncate(req.Body),
		Data:       req.Data,
		Status:     notification.StatusPending,
	}
	if err := job.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := a.creator.Create(r.Context(), job)
	if err != nil {
		a.logger.Error("job creation failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}
	a.logger.Info("job enqueued", "job_id", id, "kind", job.Kind, "by", CallerUID(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": job.Status})
}

// Run drains the pending queue once, the same pass the scheduler makes.
func (a *SendAPI) Run(w http.ResponseWriter, r *http.Request) {
	processed, err := a.runner.RunOnce(r.Context())
	if err != nil {
		a.logger.Error("pending run failed", "processed", processed, "err", err)
		writeError(w, http.StatusInternalServerError, "run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"processed": processed})
}

func (a *SendAPI) respondWithResult(w http.ResponseWriter, r *http.Request, job *notification.Job) {
	result, err := a.dispatcher.Dispatch(r.Context(), job)
	if err != nil {
		a.logger.Error("ad-hoc dispatch failed", "kind", job.Kind, "err", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"status": result.Status,
			"error":  result.Diagnostics.Error,
		})
		return
	}
	a.logger.Info("ad-hoc dispatch complete",
		"kind", job.Kind,
		"tokens", result.Diagnostics.TokensCount,
		"success", result.Diagnostics.SuccessCount,
		"by", CallerUID(r.Context()),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               result.Status,
		"tokensCount":          result.Diagnostics.TokensCount,
		"successCount":         result.Diagnostics.SuccessCount,
		"failureCount":         result.Diagnostics.FailureCount,
		"invalidTokensRemoved": result.Diagnostics.InvalidTokensRemoved,
	})
}

func truncate(body string) string {
	runes := []rune(body)
	if len(runes) <= maxBodyRunes {
		return body
	}
	return string(runes[:maxBodyRunes-3]) + "..."
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
