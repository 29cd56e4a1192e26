package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/canon/pkg/canon"
	"github.com/hazyhaar/canon/pkg/kit"
	"github.com/hazyhaar/canon/pkg/records"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	enr, err := records.NewEnricher(canon.Default(), nil, records.WithLogger(logger))
	require.NoError(t, err)
	return Deps{Registry: canon.Default(), Enricher: enr, Logger: logger}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(testDeps(t)))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, u string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func postJSON(t *testing.T, u string, body any, out any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(u, "application/json", strings.NewReader(string(data)))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestCanonicalizeRoute(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		domain, raw string
		label       string
		outcome     canon.Outcome
	}{
		{"party", "Instituto Nacional do Seguro Social - INSS", "INSS", canon.OutcomeMatched},
		{"jurisdiction", "Aracaju/SE", "ARACAJU", canon.OutcomeMatched},
		{"municipality", "Sao Critovao", "SAO CRISTOVAO", canon.OutcomeMatched},
		{"municipality", "Salvador", "SALVADOR", canon.OutcomePassthrough},
	}
	for _, tc := range cases {
		t.Run(tc.domain+"/"+tc.raw, func(t *testing.T) {
			var got canonicalizeResponse
			resp := getJSON(t, srv.URL+"/v1/canonicalize/"+tc.domain+"/"+url.PathEscape(tc.raw), &got)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.label, got.Label)
			assert.Equal(t, tc.outcome, got.Outcome)
			assert.Equal(t, tc.domain, got.Domain)
			if tc.outcome == canon.OutcomeMatched {
				assert.NotEmpty(t, got.Rule)
			}
		})
	}
}

func TestCanonicalizeRoute_Known(t *testing.T) {
	srv := newTestServer(t)

	var got canonicalizeResponse
	getJSON(t, srv.URL+"/v1/canonicalize/municipality/Aracaju", &got)
	require.NotNil(t, got.Known)
	assert.True(t, *got.Known)

	getJSON(t, srv.URL+"/v1/canonicalize/municipality/Salvador", &got)
	require.NotNil(t, got.Known)
	assert.False(t, *got.Known)

	var party canonicalizeResponse
	getJSON(t, srv.URL+"/v1/canonicalize/party/INSS", &party)
	assert.Nil(t, party.Known)
}

func TestCanonicalizeRoute_ExplainOff(t *testing.T) {
	srv := newTestServer(t)

	var got canonicalizeResponse
	getJSON(t, srv.URL+"/v1/canonicalize/party/INSS?explain=false", &got)
	assert.Equal(t, "INSS", got.Label)
	assert.Empty(t, got.Rule)
}

func TestCanonicalizeRoute_UnknownDomain(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/v1/canonicalize/planet/Mars", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "planet")
}

func TestBatchRoute(t *testing.T) {
	srv := newTestServer(t)

	var got batchResponse
	resp := postJSON(t, srv.URL+"/v1/canonicalize/batch", map[string]any{
		"domain": "party",
		"values": []any{"INSS", "Banco do Brasil S.A.", nil, 42},
	}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Results, 4)
	assert.Equal(t, "INSS", got.Results[0].Label)
	assert.Equal(t, "BANCO DO BRASIL", got.Results[1].Label)
	assert.Equal(t, canon.NotInformed, got.Results[2].Label)
	assert.Equal(t, canon.OutcomeMissing, got.Results[2].Outcome)
	assert.Equal(t, "42", got.Results[3].Normalized)
}

func TestBatchRoute_Errors(t *testing.T) {
	srv := newTestServer(t)

	tooMany := make([]any, MaxBatchValues+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("v%d", i)
	}

	cases := map[string]struct {
		body any
		code int
	}{
		"empty":          {map[string]any{"domain": "party", "values": []any{}}, http.StatusBadRequest},
		"too large":      {map[string]any{"domain": "party", "values": tooMany}, http.StatusBadRequest},
		"missing domain": {map[string]any{"values": []any{"x"}}, http.StatusBadRequest},
		"unknown domain": {map[string]any{"domain": "planet", "values": []any{"x"}}, http.StatusNotFound},
		"not json":       {"{", http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/canonicalize/batch", tc.body, nil)
			assert.Equal(t, tc.code, resp.StatusCode)
		})
	}
}

func TestEnrichRoute(t *testing.T) {
	srv := newTestServer(t)

	var got enrichResponse
	resp := postJSON(t, srv.URL+"/v1/enrich", map[string]any{
		"records": []map[string]any{
			{"cidade": "Aracaju", "reu": "INSS", "status": "Ativo"},
			{"cidade": "Salvador", "reu": "BB", "status": "Ativo"},
			{"cidade": "Lagarto", "reu": map[string]any{"x": 1}, "status": "Arquivado"},
		},
	}, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Records, 3)
	assert.Equal(t, "ARACAJU", got.Records[0][records.FieldMunicipalityCanonical])
	assert.Equal(t, "BANCO DO BRASIL", got.Records[1][records.FieldPartyCanonical])
	require.Len(t, got.Errors, 1)
	assert.Equal(t, 2, got.Errors[0].Index)
	assert.Zero(t, got.Dropped)
}

func TestEnrichRoute_Geographic(t *testing.T) {
	srv := newTestServer(t)

	var got enrichResponse
	postJSON(t, srv.URL+"/v1/enrich", map[string]any{
		"geographic": true,
		"records": []map[string]any{
			{"cidade": "Aracaju", "status": "Ativo"},
			{"cidade": "Salvador", "status": "Ativo"},
			{"cidade": "Lagarto", "status": "Arquivado"},
			{"status": "Ativo"},
		},
	}, &got)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "ARACAJU", got.Records[0][records.FieldMunicipalityCanonical])
	assert.Equal(t, 3, got.Dropped)
	assert.Empty(t, got.Errors)
}

func TestEnrichRoute_Errors(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/enrich", map[string]any{"records": []any{}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	big := strings.Repeat("x", maxEnrichBody)
	req := httptest.NewRequest(http.MethodPost, "/v1/enrich",
		strings.NewReader(`{"records":[{"reu":"`+big+`"}]}`))
	rec := httptest.NewRecorder()
	NewRouter(testDeps(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDomainsAndHealth(t *testing.T) {
	srv := newTestServer(t)

	var domains domainsResponse
	resp := getJSON(t, srv.URL+"/v1/domains", &domains)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, domains.Domains, 5)
	names := make([]string, len(domains.Domains))
	for i, d := range domains.Domains {
		names[i] = d.Domain
	}
	assert.Equal(t, []string{"jurisdiction", "lawsuit_type", "municipality", "party", "profession"}, names)

	var health healthResponse
	getJSON(t, srv.URL+"/v1/health", &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 5, health.Domains)
}

func TestRouter_RequestIDAndCORS(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv.URL+"/v1/health", nil)
	_, err := uuid.Parse(resp.Header.Get(kit.RequestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/enrich", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/canonicalize/batch")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) string {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)
	out, err := json.Marshal(srv.HandleMessage(context.Background(), msg))
	require.NoError(t, err)
	return string(out)
}

func TestMCPTools(t *testing.T) {
	srv := server.NewMCPServer("canon-test", "0.0.0", server.WithToolCapabilities(false))
	RegisterMCPTools(srv, testDeps(t))

	out := callTool(t, srv, "canonicalize", map[string]any{"domain": "party", "value": "Caixa Econômica Federal"})
	assert.Contains(t, out, `CAIXA`)
	assert.Contains(t, out, `matched`)

	out = callTool(t, srv, "canonicalize_batch", map[string]any{"domain": "lawsuit_type", "values": "Ação Previdenciária, Reclamação Trabalhista"})
	assert.Contains(t, out, canon.LawsuitSocialSecurity)
	assert.Contains(t, out, canon.LawsuitLabor)

	out = callTool(t, srv, "canonicalize", map[string]any{"domain": "planet", "value": "Mars"})
	assert.Contains(t, out, `"isError":true`)

	out = callTool(t, srv, "list_domains", nil)
	assert.Contains(t, out, "municipality")
	assert.Contains(t, out, "profession")
}
