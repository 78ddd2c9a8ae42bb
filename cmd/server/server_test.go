package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/prrules/rules"
)

func newTestServer(t *testing.T, catalog ...*rules.Rule) *Server {
	t.Helper()
	server, err := NewServer(rules.NewInMemoryRuleStore(catalog...), 0)
	require.NoError(t, err)
	return server
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(v), rec.Body.String())
}

var highValue = &rules.Rule{
	ID: "R1", Field: "amount", Operator: rules.OpGreaterThan, Value: "100", Automatable: true,
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, highValue)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["rulesLoaded"])
}

type failingStore struct {
	rules.RuleStore
}

func (failingStore) List() ([]*rules.Rule, error) {
	return nil, errors.New("connection refused")
}

func TestHealthUnhealthy(t *testing.T) {
	server, err := NewServer(failingStore{rules.NewInMemoryRuleStore()}, 0)
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEvaluate(t *testing.T) {
	server := newTestServer(t,
		highValue,
		&rules.Rule{ID: "R2", Field: "status", Operator: rules.OpEquals, Value: "approved"},
	)

	body := `{"records":[
		{"pr_id":"PR1","amount":150,"status":"Approved"},
		{"pr_id":"PR2","amount":"50","status":null},
		{"pr_id":"PR3","amount":1e3,"status":true}
	]}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EvaluateResponse
	decode(t, rec, &resp)

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, []rules.MatchResult{
		{PRID: "PR1", MatchedRules: []string{"R1", "R2"}},
		{PRID: "PR2", MatchedRules: []string{}},
		{PRID: "PR3", MatchedRules: []string{"R1"}},
	}, resp.Results)
	assert.Equal(t, SummaryResponse{
		RecordsProcessed:   3,
		RuleChecks:         6,
		AutomatableMatches: 2,
		AutomatablePercent: (&rules.Run{Checks: 6, AutomatableMatches: 2}).AutomatablePercent(),
	}, resp.Summary)
}

func TestEvaluateBadRequests(t *testing.T) {
	server := newTestServer(t, highValue)

	tests := map[string]string{
		"malformed":       `{"records":`,
		"missing records": `{}`,
		"wrong type":      `{"records":"PR1"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPost, "/api/v1/evaluate", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestEvaluateEmptyRecords(t *testing.T) {
	server := newTestServer(t, highValue)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EvaluateResponse
	decode(t, rec, &resp)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Summary.AutomatablePercent)
}

func TestRulesCRUD(t *testing.T) {
	server := newTestServer(t, highValue)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/rules/R1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got rules.Rule
	decode(t, rec, &got)
	assert.Equal(t, *highValue, got)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules/R9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// warm the catalog cache before adding
	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/rules",
		`{"rule_id":"R2","field":"category","operator":"equals","value":"IT","severity":"low"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rules []rules.Rule `json:"rules"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Rules, 2)
	assert.Equal(t, "R1", list.Rules[0].ID)
	assert.Equal(t, "R2", list.Rules[1].ID)
	assert.Equal(t, "low", list.Rules[1].Severity)

	// the new rule takes part in evaluation
	rec = doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[{"pr_id":"PR1","category":"it"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EvaluateResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{"R2"}, resp.Results[0].MatchedRules)
}

func TestCreateRuleErrors(t *testing.T) {
	server := newTestServer(t, highValue)

	tests := map[string]struct {
		body string
		code int
	}{
		"malformed":        {`{"rule_id":`, http.StatusBadRequest},
		"missing id":       {`{"field":"amount","operator":"equals"}`, http.StatusBadRequest},
		"missing field":    {`{"rule_id":"R5","operator":"equals"}`, http.StatusBadRequest},
		"missing operator": {`{"rule_id":"R5","field":"amount"}`, http.StatusBadRequest},
		"bad operator":     {`{"rule_id":"R5","field":"amount","operator":"between"}`, http.StatusBadRequest},
		"duplicate":        {`{"rule_id":"R1","field":"amount","operator":"equals"}`, http.StatusConflict},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPost, "/api/v1/rules", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())

			var body map[string]string
			decode(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, highValue)
	doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[{"pr_id":"PR1","amount":"500"}]}`)

	rec := doRequest(t, server, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prrules_rule_checks_total")
	assert.Contains(t, rec.Body.String(), "prrules_evaluation_duration_seconds")
}

func TestToRecord(t *testing.T) {
	rec := toRecord(map[string]any{
		"pr_id":  "PR1",
		"amount": json.Number("1500.50"),
		"urgent": false,
		"note":   nil,
	})

	assert.Equal(t, rules.Record{"pr_id": "PR1", "amount": "1500.50", "urgent": "false"}, rec)
}

func TestUpdateRule(t *testing.T) {
	server := newTestServer(t, highValue, &rules.Rule{ID: "R2", Field: "status", Operator: rules.OpEquals, Value: "approved"})

	// warm the catalog cache before changing it
	doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[]}`)

	rec := doRequest(t, server, http.MethodPut, "/api/v1/rules/R1",
		`{"field":"amount","operator":"greater_than","value":"1000","automatable":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated rules.Rule
	decode(t, rec, &updated)
	assert.Equal(t, "R1", updated.ID)
	assert.Equal(t, "1000", updated.Value)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[{"pr_id":"PR1","amount":"500"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EvaluateResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{}, resp.Results[0].MatchedRules)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules", "")
	var list struct {
		Rules []rules.Rule `json:"rules"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Rules, 2)
	assert.Equal(t, "R1", list.Rules[0].ID)
	assert.Equal(t, "1000", list.Rules[0].Value)
}

func TestUpdateRuleErrors(t *testing.T) {
	server := newTestServer(t, highValue)

	tests := map[string]struct {
		path string
		body string
		code int
	}{
		"malformed":     {"/api/v1/rules/R1", `{"field":`, http.StatusBadRequest},
		"id mismatch":   {"/api/v1/rules/R1", `{"rule_id":"R2","field":"amount","operator":"equals"}`, http.StatusBadRequest},
		"bad operator":  {"/api/v1/rules/R1", `{"field":"amount","operator":"between"}`, http.StatusBadRequest},
		"missing field": {"/api/v1/rules/R1", `{"operator":"equals"}`, http.StatusBadRequest},
		"unknown rule":  {"/api/v1/rules/R9", `{"field":"amount","operator":"equals"}`, http.StatusNotFound},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPut, tc.path, tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestDeleteRule(t *testing.T) {
	server := newTestServer(t, highValue, &rules.Rule{ID: "R2", Field: "amount", Operator: rules.OpLessThan, Value: "1000"})

	doRequest(t, server, http.MethodGet, "/api/v1/rules", "")

	rec := doRequest(t, server, http.MethodDelete, "/api/v1/rules/R1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules/R1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, "/api/v1/rules/R1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/evaluate", `{"records":[{"pr_id":"PR1","amount":"500"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EvaluateResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{"R2"}, resp.Results[0].MatchedRules)
	assert.Equal(t, 1, resp.Summary.RuleChecks)
}

func TestListRulesActiveAndByCategory(t *testing.T) {
	server := newTestServer(t,
		&rules.Rule{ID: "R1", Field: "amount", Operator: rules.OpGreaterThan, Value: "100", Category: "CAPEX"},
		&rules.Rule{ID: "R2", Field: "status", Operator: rules.OpEquals, Value: "approved", Category: "ALL"},
		&rules.Rule{ID: "R3", Field: "amount", Operator: rules.OpLessThan, Value: "10", Category: "capex"},
	)

	var list struct {
		Rules []rules.Rule `json:"rules"`
	}

	rec := doRequest(t, server, http.MethodGet, "/api/v1/rules/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Len(t, list.Rules, 3)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules/category/capex", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	require.Len(t, list.Rules, 2)
	assert.Equal(t, "R1", list.Rules[0].ID)
	assert.Equal(t, "R3", list.Rules[1].ID)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/rules/category/opex", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rules":[]}`, rec.Body.String())
}
