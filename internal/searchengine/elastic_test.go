package searchengine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*ESClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewESClient(Config{
		Host:       server.URL,
		APIKey:     "test-key",
		MaxRetries: 2,
	})
	require.NoError(t, err)
	return client, server
}

func TestESClientCreateIndex(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/medical_pathology_kb_test", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "mappings")

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"acknowledged":true}`))
	}))

	err := client.CreateIndex(context.Background(), "medical_pathology_kb_test")
	require.NoError(t, err)
	assert.Equal(t, "ApiKey test-key", gotAuth, "应携带ApiKey认证头")
}

func TestESClientBulkIndex(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kb/_bulk", r.URL.Path)
		assert.Equal(t, "wait_for", r.URL.Query().Get("refresh"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"errors": true,
			"items": [
				{"index": {"status": 201}},
				{"index": {"status": 400, "error": {"reason": "mapper_parsing_exception"}}}
			]
		}`))
	}))

	report, err := client.BulkIndex(context.Background(), "kb", []Document{
		{ID: "qa_0_question", Content: "什么是肺癌？"},
		{ID: "qa_0_answer", Content: "肺癌是恶性肿瘤。"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Indexed, "仅状态200/201的条目计入成功")
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "mapper_parsing_exception")
}

func TestESClientSearch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kb/_search", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5), body["size"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"hits": {"hits": [
				{"_score": 2.5, "_source": {
					"title": "医疗答案: 什么是肺癌？",
					"content": "肺癌是恶性肿瘤。",
					"document_type": "answer",
					"qa_pair_id": "qa_1"
				}}
			]}
		}`))
	}))

	results, err := client.Search(context.Background(), "kb", "肺癌", ModeHybrid, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2.5, results[0].Score)
	assert.Equal(t, "answer", results[0].DocumentType)
	assert.Equal(t, "qa_1", results[0].QAPairID)
}

func TestESClientRetryOnServerError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))

	_, err := client.ListIndices(context.Background())
	require.NoError(t, err, "5xx后重试成功不应报错")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestESClientNoRetryOnClientError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"index_not_found_exception"}`))
	}))

	err := client.DeleteIndex(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx不应触发重试")
}
