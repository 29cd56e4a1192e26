package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/canon/pkg/records"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&app{})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCanonicalizeCommand(t *testing.T) {
	out, err := runCLI(t, "canonicalize", "party", "Instituto Nacional do Seguro Social - INSS", "Banco do Brasil")
	require.NoError(t, err)
	assert.Equal(t, "INSS\nBANCO DO BRASIL\n", out)

	out, err = runCLI(t, "canonicalize", "--explain", "municipality", "Sao Critovao")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Sao Critovao\tSAO CRISTOVAO\tmatched\t"), out)

	_, err = runCLI(t, "canonicalize", "planet", "Mars")
	assert.Error(t, err)
}

func TestDomainsCommand(t *testing.T) {
	out, err := runCLI(t, "domains")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "## Domains\n| domain"), out)
	for _, d := range []string{"municipality", "party", "jurisdiction", "lawsuit_type", "profession"} {
		assert.Contains(t, out, d)
	}
}

func TestEnrichCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "processos.json")
	require.NoError(t, os.WriteFile(in, []byte(`[{"processos":[
		{"cidade":"Aracaju","reu":"INSS","status":"Ativo","idCliente":1},
		{"cidade":"Salvador","reu":"BB","status":"Ativo","idCliente":2}
	]}]`), 0o644))
	clients := filepath.Join(dir, "clientes.json")
	require.NoError(t, os.WriteFile(clients, []byte(`[{"idCliente":1,"nomeCliente":"Maria"}]`), 0o644))

	out, err := runCLI(t, "enrich", "--in", in, "--clients", clients, "--geographic")
	require.NoError(t, err)

	var recs []records.Record
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "ARACAJU", recs[0][records.FieldMunicipalityCanonical])
	assert.Equal(t, "INSS", recs[0][records.FieldPartyCanonical])
	assert.Equal(t, "Maria", recs[0][records.FieldClientName])
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "processos.json")
	require.NoError(t, os.WriteFile(in, []byte(`[
		{"reu":"INSS","tipoProcesso":"Ação Previdenciária","status":"Ativo"},
		{"reu":"INSS","tipoProcesso":"Reclamação Trabalhista","status":"Ativo"}
	]`), 0o644))

	out, err := runCLI(t, "report", "--in", in, "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "INSS,2")

	_, err = runCLI(t, "report", "--in", in, "--format", "pdf")
	assert.Error(t, err)

	_, err = runCLI(t, "report", "--in", in, "--format", "xlsx")
	assert.Error(t, err)

	xlsx := filepath.Join(dir, "out.xlsx")
	_, err = runCLI(t, "report", "--in", in, "--format", "xlsx", "--out", xlsx)
	require.NoError(t, err)
	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestFetchNeedsBaseURL(t *testing.T) {
	_, err := runCLI(t, "fetch")
	assert.ErrorContains(t, err, "base_url")
}

func TestCheckCommand(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() && r.URL.Path == "/clientes" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf(
		"api:\n  base_url: %s\n  rate_per_second: 1000\nstore:\n  path: %s\n",
		srv.URL, filepath.Join(dir, "canon.db"))), 0o644))

	check := func() (string, error) {
		var stdout bytes.Buffer
		cmd := newRootCmd(&app{})
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", cfg, "check"})
		err := cmd.Execute()
		return stdout.String(), err
	}

	out, err := check()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "## Endpoints\n"), out)
	assert.Contains(t, out, "processos")
	assert.Contains(t, out, "200")

	down.Store(true)
	out, err = check()
	assert.ErrorContains(t, err, "unavailable")
	assert.Contains(t, out, "503")
}
