package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Harshitk-cp/pfc/internal/api/middleware"
	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/service"
	"go.uber.org/zap"
)

const archiveTimeout = 10 * time.Second

type ResearchHandler struct {
	pipeline *service.PipelineService
	archive  *service.ArchiveService
	logger   *zap.Logger
}

// NewResearchHandler returns the streaming research handler. archive may be
// nil, in which case SOAR sessions are not persisted.
func NewResearchHandler(pipeline *service.PipelineService, archive *service.ArchiveService, logger *zap.Logger) *ResearchHandler {
	return &ResearchHandler{pipeline: pipeline, archive: archive, logger: logger}
}

// Stream runs the pipeline and relays every event as a server-sent event
// named after the event type. The stream ends after the terminal event or
// when the client disconnects.
func (h *ResearchHandler) Stream(w http.ResponseWriter, r *http.Request) {
	// Analytics stay on unless the body turns them off explicitly.
	req := domain.RunRequest{AnalyticsEnabled: true}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := h.logger.With(zap.String("request_id", middleware.RequestIDFromContext(r.Context())))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for ev := range h.pipeline.Run(ctx, req) {
		if err := writeEvent(w, ev); err != nil {
			logger.Debug("client went away", zap.Error(err))
			cancel()
			continue
		}
		if err := rc.Flush(); err != nil {
			logger.Debug("flush failed", zap.Error(err))
		}

		if ev.Type == domain.EventComplete && ev.Result != nil && ev.Result.SOAR != nil {
			h.archiveSession(logger, *ev.Result)
		}
	}
}

func (h *ResearchHandler) archiveSession(logger *zap.Logger, res domain.PipelineResult) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if _, err := h.archive.Archive(ctx, res.Metadata.RunID, res.Query, res.Analysis, *res.SOAR); err != nil {
		logger.Warn("soar session archive failed", zap.String("run_id", res.Metadata.RunID), zap.Error(err))
	}
}

func writeEvent(w http.ResponseWriter, ev domain.PipelineEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
