package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/actloop/action"
	"github.com/lexcodex/actloop/agents"
	"github.com/lexcodex/actloop/framework"
	"github.com/lexcodex/actloop/internal/logutil"
	"github.com/lexcodex/actloop/tools"
)

type scriptedModel struct {
	mu      sync.Mutex
	replies []string
}

func (m *scriptedModel) next() (*framework.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return nil, errors.New("no more replies")
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return &framework.LLMResponse{Text: reply}, nil
}

func (m *scriptedModel) Generate(context.Context, string, *framework.LLMOptions) (*framework.LLMResponse, error) {
	return m.next()
}

func (m *scriptedModel) Chat(context.Context, []framework.Message, *framework.LLMOptions) (*framework.LLMResponse, error) {
	return m.next()
}

func newService(t *testing.T, replies ...string) *Service {
	t.Helper()
	reg, err := tools.NewRegistry(nil)
	require.NoError(t, err)
	runner := &agents.Runner{
		Model:  &scriptedModel{replies: replies},
		Tools:  reg,
		Config: &framework.Config{MaxIterations: 5, Logger: logutil.Discard()},
	}
	return NewService(runner, logutil.Discard())
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIRun(t *testing.T) {
	api := &APIServer{Service: newService(t,
		"<thought>compute</thought><action>factorial(n=5)</action>",
		"<final_answer>120</final_answer>",
	)}

	rec := post(t, api.Handler(), "/api/run", RunRequest{Question: "5!?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "120", resp.FinalAnswer)
	assert.True(t, resp.Answered)
	assert.Equal(t, framework.ModeReAct, resp.Mode)
	assert.Equal(t, []string{"120"}, resp.Observations)
	assert.NotEmpty(t, resp.RunID)
	assert.Len(t, resp.History, 5)
	assert.Empty(t, resp.Error)
}

func TestAPIRunPlanFailureReportsError(t *testing.T) {
	api := &APIServer{Service: newService(t, "no plan here")}
	rec := post(t, api.Handler(), "/api/run", RunRequest{Question: "q", Mode: "plan"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Error: Planner did not return a valid JSON list. Output: no plan here", resp.FinalAnswer)
	assert.NotEmpty(t, resp.Error)
}

func TestAPIRunRejectsBadRequests(t *testing.T) {
	api := &APIServer{Service: newService(t)}
	rec := post(t, api.Handler(), "/api/run", RunRequest{Question: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrEmptyQuestion.Error())

	req := httptest.NewRequest(http.MethodGet, "/api/run", nil)
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPITools(t *testing.T) {
	api := &APIServer{Service: newService(t)}
	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []ToolInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"search_internet", "current_date", "factorial", "fibonacci", "sum_numbers", "power", "sqrt"}, names)
}

func TestAPIParse(t *testing.T) {
	api := &APIServer{Service: newService(t)}
	rec := post(t, api.Handler(), "/api/parse", ParseRequest{Text: "<thought>t</thought><action>sqrt(x=9)</action>"})
	require.Equal(t, http.StatusOK, rec.Code)

	var decision action.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, action.KindAction, decision.Kind)
	assert.Equal(t, "sqrt", decision.Tool)
	assert.EqualValues(t, 9, decision.Args["x"])

	rec = post(t, api.Handler(), "/api/parse", ParseRequest{Text: "just text"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, action.KindParseError, decision.Kind)
	require.NotNil(t, decision.Err)
	assert.Equal(t, action.ReasonNoTag, decision.Err.Reason)
}
