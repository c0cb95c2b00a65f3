package llm

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

const (
	mockLayman      = `{"what_was_tried":"Mock analysis","what_is_likely_true":"Mock finding","confidence_explanation":"Mock confidence","what_could_change":"New data","who_should_trust":"Testers"}`
	mockReflection  = `{"self_critical_questions":["Is the sample representative?"],"adjustments":["Widen the uncertainty band"],"least_defensible_claim":"The effect is universal","precision_check":"Mock precision"}`
	mockArbitration = `{"votes":[{"engine":"statistical","position":"supports","confidence":0.7},{"engine":"causal","position":"uncertain","confidence":0.5}],"consensus":false,"disagreements":["Effect size"],"resolution":"Mock resolution"}`
	mockTruth       = `{"overall_truth_likelihood":0.62,"signal_interpretation":"Mock interpretation","weaknesses":["Small samples"],"improvements":["Replicate"],"blind_spots":["Long-term effects"],"confidence_calibration":"Moderate","data_vs_model_balance":"Balanced","recommended_actions":["Read the primary studies"]}`
	mockCurriculum  = `{"rationale":"Build up from base rates to confounders","stones":[{"question":"What is a base rate?","target_skill":"base rates","relative_difficulty":0.4,"structural_quality":0.8},{"question":"How do confounders bias an estimate?","target_skill":"confounding","relative_difficulty":0.6,"structural_quality":0.8},{"question":"When does a meta-analysis mislead?","target_skill":"evidence synthesis","relative_difficulty":0.8,"structural_quality":0.7}]}`
)

// ObjectCall records one GenerateObject invocation.
type ObjectCall struct {
	Shape   domain.ObjectShape
	Request domain.GenerateRequest
}

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns. It is safe
// for the concurrent calls the pipeline fan-out makes.
type MockClient struct {
	mu sync.Mutex

	GenerateResponse string
	GenerateError    error
	StreamChunks     []string
	StreamError      error
	// StreamHang keeps the stream open after the last chunk until ctx ends.
	StreamHang      bool
	ObjectResponses map[domain.ObjectShape]string
	ObjectErrors    map[domain.ObjectShape]error
	// ObjectDelays hold a shape's call for the duration or until ctx ends.
	ObjectDelays map[domain.ObjectShape]time.Duration

	// Call tracking for assertions
	GenerateCalls []domain.GenerateRequest
	StreamCalls   []domain.GenerateRequest
	ObjectCalls   []ObjectCall
}

func NewMockClient() *MockClient {
	c := &MockClient{}
	c.Reset()
	return c
}

func (c *MockClient) Name() string {
	return ProviderMock + "/mock"
}

func (c *MockClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	c.mu.Lock()
	c.GenerateCalls = append(c.GenerateCalls, req)
	resp, err := c.GenerateResponse, c.GenerateError
	c.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

func (c *MockClient) GenerateObject(ctx context.Context, req domain.GenerateRequest, shape domain.ObjectShape) (string, error) {
	c.mu.Lock()
	c.ObjectCalls = append(c.ObjectCalls, ObjectCall{Shape: shape, Request: req})
	resp := c.ObjectResponses[shape]
	err := c.ObjectErrors[shape]
	delay := c.ObjectDelays[shape]
	c.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

func (c *MockClient) Stream(ctx context.Context, req domain.GenerateRequest) (<-chan string, <-chan error) {
	c.mu.Lock()
	c.StreamCalls = append(c.StreamCalls, req)
	chunks := append([]string(nil), c.StreamChunks...)
	streamErr := c.StreamError
	hang := c.StreamHang
	c.mu.Unlock()

	contentCh := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(contentCh)
		defer close(errCh)

		for _, chunk := range chunks {
			select {
			case contentCh <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if hang {
			<-ctx.Done()
			errCh <- ctx.Err()
			return
		}
		if streamErr != nil {
			errCh <- streamErr
		}
	}()

	return contentCh, errCh
}

// ObjectCallCount returns how many GenerateObject calls requested shape.
func (c *MockClient) ObjectCallCount(shape domain.ObjectShape) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.ObjectCalls {
		if call.Shape == shape {
			n++
		}
	}
	return n
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GenerateResponse = "Mock answer."
	c.GenerateError = nil
	c.StreamChunks = []string{"<think>Weighing the evidence.</think>", "Mock ", "answer."}
	c.StreamError = nil
	c.StreamHang = false
	c.ObjectResponses = map[domain.ObjectShape]string{
		domain.ShapeLaymanSummary:   mockLayman,
		domain.ShapeReflection:      mockReflection,
		domain.ShapeArbitration:     mockArbitration,
		domain.ShapeTruthAssessment: mockTruth,
		domain.ShapeCurriculum:      mockCurriculum,
	}
	c.ObjectErrors = map[domain.ObjectShape]error{}
	c.ObjectDelays = map[domain.ObjectShape]time.Duration{}
	c.GenerateCalls = nil
	c.StreamCalls = nil
	c.ObjectCalls = nil
}
