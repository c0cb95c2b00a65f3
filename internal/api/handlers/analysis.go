package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/service"
)

// AnalysisHandler serves the model-free parts of the pipeline: query
// analysis, signal generation, steering composition and the SOAR probe.
type AnalysisHandler struct {
	classifier domain.QueryClassifier
	signals    domain.SignalGenerator
}

func NewAnalysisHandler(classifier domain.QueryClassifier, signals domain.SignalGenerator) *AnalysisHandler {
	return &AnalysisHandler{classifier: classifier, signals: signals}
}

type analyzeRequest struct {
	Query    string                      `json:"query"`
	Context  *domain.ConversationContext `json:"context,omitempty"`
	Controls *domain.PipelineControls    `json:"controls,omitempty"`
	Bias     *domain.SteeringBias        `json:"bias,omitempty"`
	SOAR     *domain.SOARConfig          `json:"soar,omitempty"`
}

type analyzeResponse struct {
	Analysis domain.QueryAnalysis `json:"analysis"`
	Signals  domain.Signals       `json:"signals"`
}

type probeResponse struct {
	analyzeResponse
	Probe domain.ProbeResult `json:"probe"`
}

type composeRequest struct {
	Controls         *domain.PipelineControls `json:"controls,omitempty"`
	Bias             *domain.SteeringBias     `json:"bias,omitempty"`
	Overrides        *domain.SignalOverrides  `json:"overrides,omitempty"`
	SOAR             *domain.SOARConfig       `json:"soar,omitempty"`
	Mode             domain.AnalyticalMode    `json:"mode,omitempty"`
	AnalyticsEnabled bool                     `json:"analytics_enabled"`
}

type composeResponse struct {
	Directives string `json:"directives"`
}

func (h *AnalysisHandler) analyze(w http.ResponseWriter, r *http.Request) (analyzeRequest, analyzeResponse, bool) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return req, analyzeResponse{}, false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return req, analyzeResponse{}, false
	}
	a := h.classifier.Analyze(req.Query, req.Context)
	return req, analyzeResponse{
		Analysis: a,
		Signals:  h.signals.Generate(a, req.Controls, req.Bias),
	}, true
}

func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	_, resp, ok := h.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AnalysisHandler) Probe(w http.ResponseWriter, r *http.Request) {
	req, resp, ok := h.analyze(w, r)
	if !ok {
		return
	}
	cfg := domain.DefaultSOARConfig()
	if req.SOAR != nil {
		cfg = *req.SOAR
	}
	writeJSON(w, http.StatusOK, probeResponse{
		analyzeResponse: resp,
		Probe:           service.SOARProber{}.Probe(resp.Analysis, resp.Signals, cfg),
	})
}

func (h *AnalysisHandler) ComposeSteering(w http.ResponseWriter, r *http.Request) {
	req := composeRequest{AnalyticsEnabled: true}
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, composeResponse{
		Directives: service.ComposeSteering(service.SteeringOptions{
			Controls:         req.Controls,
			Bias:             req.Bias,
			Overrides:        req.Overrides,
			SOAR:             req.SOAR,
			Mode:             req.Mode,
			AnalyticsEnabled: req.AnalyticsEnabled,
		}),
	})
}
