package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/pfc/internal/config"
	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/llm"
)

func testApp(t *testing.T, apiKey string) *App {
	t.Helper()
	tuning := config.DefaultTuning()
	tuning.Pipeline.StagePause = "0s"
	tuning.Pipeline.PacingMin = "0s"
	tuning.Pipeline.PacingMax = "0s"

	resolver := llm.NewResolver(domain.InferenceConfig{Mode: domain.InferenceLocal, Provider: llm.ProviderMock}, 0, 0, zap.NewNop())
	return NewApp(Options{
		Resolver: resolver,
		Tuning:   tuning,
		APIKey:   apiKey,
	}, zap.NewNop())
}

func do(t *testing.T, app *App, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var (
		events []sseEvent
		cur    sseEvent
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.name != "" {
				events = append(events, cur)
			}
			cur = sseEvent{}
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func TestHealth_WithoutDatabase(t *testing.T) {
	rec := do(t, testApp(t, ""), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","archive":"disabled","version":"dev"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestResearch_StreamsToCompletion(t *testing.T) {
	app := testApp(t, "")
	body := `{"query":"Does caffeine improve memory in adults?","analytics_enabled":true}`

	rec := do(t, app, http.MethodPost, "/v1/research", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readSSE(t, rec.Body.String())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, string(domain.EventComplete), last.name)

	var ev domain.PipelineEvent
	require.NoError(t, json.Unmarshal([]byte(last.data), &ev))
	require.NotNil(t, ev.Result)
	assert.Equal(t, "Mock answer.", ev.Result.Answer)
	assert.Len(t, ev.Result.Stages, domain.StageCount)

	stats := app.Pipeline.Stats()
	assert.Equal(t, int64(1), stats.Completed)
}

func TestResearch_AnalyticsDefaultOn(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStages int
	}{
		{"omitted", `{"query":"Does caffeine improve memory in adults?"}`, domain.StageCount},
		{"explicitly off", `{"query":"Does caffeine improve memory in adults?","analytics_enabled":false}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testApp(t, ""), http.MethodPost, "/v1/research", tt.body, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			events := readSSE(t, rec.Body.String())
			require.NotEmpty(t, events)
			last := events[len(events)-1]
			require.Equal(t, string(domain.EventComplete), last.name)

			var ev domain.PipelineEvent
			require.NoError(t, json.Unmarshal([]byte(last.data), &ev))
			require.NotNil(t, ev.Result)
			assert.Len(t, ev.Result.Stages, tt.wantStages)
		})
	}
}

func TestResearch_RejectsEmptyQuery(t *testing.T) {
	rec := do(t, testApp(t, ""), http.MethodPost, "/v1/research", `{"query":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, testApp(t, ""), http.MethodPost, "/v1/research", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze(t *testing.T) {
	rec := do(t, testApp(t, ""), http.MethodPost, "/v1/analyze", `{"query":"Why does inflation rise when interest rates fall?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Analysis domain.QueryAnalysis `json:"analysis"`
		Signals  domain.Signals       `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.DomainEconomics, resp.Analysis.Domain)
	assert.Greater(t, resp.Signals.Confidence, 0.0)
}

func TestComposeSteering(t *testing.T) {
	app := testApp(t, "")

	rec := do(t, app, http.MethodPost, "/v1/steering/compose", `{"analytics_enabled":false,"overrides":{"confidence":0.9}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"directives":""}`, rec.Body.String())

	rec = do(t, app, http.MethodPost, "/v1/steering/compose", `{"analytics_enabled":true,"overrides":{"confidence":0.9}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "STEERING DIRECTIVES")
}

func TestSOARProbe(t *testing.T) {
	rec := do(t, testApp(t, ""), http.MethodPost, "/v1/soar/probe", `{"query":"What is tea?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Probe domain.ProbeResult `json:"probe"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Probe.AtEdge)
	assert.GreaterOrEqual(t, resp.Probe.RecommendedDepth, 1)
}

func TestSOARSessions_ArchiveDisabled(t *testing.T) {
	app := testApp(t, "")
	for _, path := range []string{
		"/v1/soar/sessions",
		"/v1/soar/sessions/similar?q=aspirin",
		"/v1/soar/sessions/2b7c3a52-8a3f-4c61-9c43-0a7c1a1e9c11",
	} {
		rec := do(t, app, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestAuth(t *testing.T) {
	app := testApp(t, "secret")
	body := `{"query":"What is tea?"}`

	rec := do(t, app, http.MethodPost, "/v1/analyze", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/v1/analyze", body, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/v1/analyze", body, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is public")
}

func TestMetrics(t *testing.T) {
	app := testApp(t, "")
	do(t, app, http.MethodPost, "/v1/analyze", `{}`, nil)

	rec := do(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["request_count"])
	assert.EqualValues(t, 1, resp["error_count"])
	assert.Contains(t, resp, "runs")
}
