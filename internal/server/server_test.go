package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/export"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
	"github.com/joseph-ayodele/docstruct/internal/record"
	"github.com/joseph-ayodele/docstruct/internal/repository"
	"github.com/joseph-ayodele/docstruct/internal/schema"
	"github.com/joseph-ayodele/docstruct/internal/tables"
)

type stubCapability struct{}

func (stubCapability) InferSchema(_ context.Context, _ []document.Document) (*schema.Schema, error) {
	return &schema.Schema{
		Title: "notes",
		Sections: []schema.Section{{
			Name:   "core",
			Fields: []schema.Field{{Name: "title", Type: schema.TypeString}},
		}},
	}, nil
}

func (stubCapability) ExtractRecord(_ context.Context, s *schema.Schema, doc document.Document) (*record.Record, error) {
	payload := fmt.Sprintf(`{"core":{"title":{"value":"title of %s","reason":"first line","confidence":0.9}}}`, doc.Name)
	return record.Decode(s, doc.ID, doc.Name, 0, []byte(payload))
}

func (stubCapability) PlanTables(_ context.Context, s *schema.Schema, recs []*record.Record) (*tables.Plan, error) {
	return tables.Fallback(s, recs), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := repository.NewSQLiteStore(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	orch := pipeline.NewOrchestrator(stubCapability{}, slog.New(slog.DiscardHandler))
	cfg := common.ServerConfig{MaxUploadBytes: 8 << 20}
	return NewService(orch, store, export.NewService(nil), cfg, zap.NewNop())
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func createSession(t *testing.T, srv *httptest.Server) sessionSummary {
	t.Helper()
	body, ctype := multipartBody(t, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	resp, err := http.Post(srv.URL+"/api/v1/sessions", ctype, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got sessionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return got
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(newTestService(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSessionRunsPipeline(t *testing.T) {
	srv := httptest.NewServer(newTestService(t).Router())
	defer srv.Close()

	got := createSession(t, srv)
	assert.NotEmpty(t, got.SessionID)
	assert.Equal(t, "TABLES_READY", got.Status)
	assert.Equal(t, "succeeded", got.Outcome)
	assert.Equal(t, 2, got.Documents)
	assert.Equal(t, 2, got.Records)
	assert.NotEmpty(t, got.Tables)
	assert.Empty(t, got.Errors)
}

func TestCreateSessionRejectsBadUploads(t *testing.T) {
	srv := httptest.NewServer(newTestService(t).Router())
	defer srv.Close()

	body, ctype := multipartBody(t, map[string]string{"evil.exe": "MZ"})
	resp, err := http.Post(srv.URL+"/api/v1/sessions", ctype, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ctype = multipartBody(t, nil)
	resp, err = http.Post(srv.URL+"/api/v1/sessions", ctype, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSessionAndTables(t *testing.T) {
	srv := httptest.NewServer(newTestService(t).Router())
	defer srv.Close()

	created := createSession(t, srv)
	base := srv.URL + "/api/v1/sessions/" + created.SessionID

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got sessionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created.SessionID, got.SessionID)
	assert.Equal(t, created.Tables, got.Tables)

	resp, err = http.Get(base + "/tables")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tbls []tables.Table
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tbls))
	require.NotEmpty(t, tbls)
	assert.Equal(t, "documents", tbls[0].Name)
	assert.Len(t, tbls[0].Rows, 2)
}

func TestGetSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(newTestService(t).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/sessions/does-not-exist/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadEndpoints(t *testing.T) {
	srv := httptest.NewServer(newTestService(t).Router())
	defer srv.Close()

	created := createSession(t, srv)
	base := srv.URL + "/api/v1/sessions/" + created.SessionID

	resp, err := http.Get(base + "/tables.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))

	resp, err = http.Get(base + "/tables/documents.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	resp, err = http.Get(base + "/tables/nope.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
