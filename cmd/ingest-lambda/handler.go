package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/alxnderia/ingestion/pkg/ingest"
	"github.com/alxnderia/ingestion/pkg/logging"
	"github.com/alxnderia/ingestion/pkg/store"
)

// Event is the invocation payload.
type Event struct {
	Provider string `json:"provider"`
}

// Response mirrors the API Gateway proxy shape.
type Response struct {
	StatusCode int `json:"statusCode"`
	Body       any `json:"body"`
}

type skippedBody struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

type resultBody struct {
	Provider string       `json:"provider"`
	Results  store.Counts `json:"results"`
}

type errorBody struct {
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error"`
}

// Syncer runs one target by name.
type Syncer interface {
	Run(ctx context.Context, target string) (store.Counts, error)
}

// Handler answers Lambda invocations.
type Handler struct {
	syncer Syncer
	logger *zap.Logger
}

// NewHandler returns a Handler over syncer.
func NewHandler(syncer Syncer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{syncer: syncer, logger: logger}
}

// Handle runs the event's provider. Failures are reported in the response
// rather than returned so the Lambda runtime does not retry the invocation.
func (h *Handler) Handle(ctx context.Context, event Event) (Response, error) {
	if event.Provider == "" {
		return Response{
			StatusCode: http.StatusBadRequest,
			Body:       errorBody{Error: "Missing 'provider' in event"},
		}, nil
	}

	log := h.logger.With(zap.String(logging.FieldProvider, event.Provider))

	counts, err := h.syncer.Run(ctx, event.Provider)
	switch {
	case errors.Is(err, ingest.ErrNotConfigured):
		log.Warn("provider not configured, skipping")
		return Response{
			StatusCode: http.StatusOK,
			Body:       skippedBody{Skipped: true, Reason: err.Error()},
		}, nil
	case err != nil:
		log.Error("sync failed", zap.Error(err))
		return Response{
			StatusCode: http.StatusInternalServerError,
			Body:       errorBody{Provider: event.Provider, Error: err.Error()},
		}, nil
	}

	log.Info("sync complete", zap.Int64(logging.FieldRecords, counts.Total()))
	return Response{
		StatusCode: http.StatusOK,
		Body:       resultBody{Provider: event.Provider, Results: counts},
	}, nil
}
