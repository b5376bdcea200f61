package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/dupcheck/internal/core/corpus"
	"github.com/lueurxax/dupcheck/internal/core/domain"
	"github.com/lueurxax/dupcheck/internal/core/ports/mocks"
	"github.com/lueurxax/dupcheck/internal/process/pipeline"
)

const testDocument = "The harbour reopened after a week of storms.\nFishing boats returned to the northern pier on Friday."

func newTestServer(t *testing.T) (*httptest.Server, *mocks.Store) {
	t.Helper()

	settings := pipeline.DefaultSettings()
	settings.EmbeddingEnabled = false

	store := mocks.NewStore()
	logger := zerolog.Nop()

	d, err := pipeline.New(settings, pipeline.Options{Snapshots: store, Archive: store, Logger: &logger})
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(d, &logger))
	t.Cleanup(srv.Close)

	return srv, store
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "text/plain", strings.NewReader(body)) //nolint:noctx // test helper
	require.NoError(t, err)

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func TestSubmitAndFetchDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := post(t, srv.URL+"/documents/article-1", testDocument)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))

	first := decode[ResultResponse](t, resp)
	assert.True(t, first.Accepted)
	assert.Len(t, first.Sentences, 2)
	assert.Len(t, first.UniqueHashes, 2)

	resp = post(t, srv.URL+"/documents/article-2", testDocument)
	second := decode[ResultResponse](t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, second.Accepted)
	assert.Equal(t, string(domain.ReasonLSH), second.Reason)
	assert.Equal(t, domain.MethodLSH, second.Sentences[0].Method)
	assert.Equal(t, "article-1", second.Sentences[0].MatchedDocumentID)

	resp, err := http.Get(srv.URL + "/documents/article-1") //nolint:noctx // test
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored := decode[domain.StoredDocument](t, resp)
	assert.Equal(t, strings.Split(testDocument, "\n"), stored.Sentences)
}

func TestGetDocument_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/documents/nope") //nolint:noctx // test
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmitDocument_StorageFailure(t *testing.T) {
	srv, store := newTestServer(t)
	store.SaveSnapshotFn = func(context.Context, corpus.Snapshot) error {
		return errors.New("disk gone")
	}

	resp := post(t, srv.URL+"/documents/article-1", testDocument)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := decode[ResultResponse](t, resp)
	assert.False(t, body.Accepted)
	assert.Equal(t, string(domain.ReasonStorageError), body.Reason)
	assert.NotEmpty(t, body.Error)
}

func TestStatsAndReset(t *testing.T) {
	srv, _ := newTestServer(t)

	post(t, srv.URL+"/documents/a", testDocument).Body.Close()
	post(t, srv.URL+"/documents/b", testDocument).Body.Close()

	resp, err := http.Get(srv.URL + "/stats") //nolint:noctx // test
	require.NoError(t, err)

	st := decode[StatsResponse](t, resp)
	assert.Equal(t, 2, st.Outcomes.Processed)
	assert.Equal(t, 1, st.Outcomes.Accepted)
	assert.Equal(t, 1, st.Ratios["0.00"])

	resp = post(t, srv.URL+"/stats/reset", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/stats") //nolint:noctx // test
	require.NoError(t, err)

	st = decode[StatsResponse](t, resp)
	assert.Zero(t, st.Outcomes.Processed)
}

func TestRequestIDPropagated(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil) //nolint:noctx // test
	require.NoError(t, err)
	req.Header.Set(headerRequestID, "req-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get(headerRequestID))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/documents/x", nil) //nolint:noctx // test
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
