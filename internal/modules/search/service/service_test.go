package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/pkg/logger"
)

func TestCleanText(t *testing.T) {
	s := &meiliSearchService{sanitizer: bluemonday.StrictPolicy()}

	tests := map[string]string{
		"<p>Build a <b>React</b> app</p><p>with tests</p>": "Build a React app with tests",
		"line<br>break":                                    "line break",
		"Fish &amp; chips  \n\t menu":                      "Fish & chips menu",
		`<script>alert("x")</script>Plain`:                 "Plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, s.cleanText(in), in)
	}
}

type fakeMeili struct {
	mu       sync.Mutex
	requests map[string][]byte
	hits     []string
}

func (f *fakeMeili) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests[r.Method+" "+r.URL.Path] = body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if strings.HasSuffix(r.URL.Path, "/search") {
		hits := make([]map[string]string, 0, len(f.hits))
		for _, id := range f.hits {
			hits = append(hits, map[string]string{"id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits":               hits,
			"estimatedTotalHits": 42,
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"taskUid":1,"indexUid":"projects","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2025-01-01T00:00:00Z"}`))
}

func (f *fakeMeili) request(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[key]
}

func newTestIndex(t *testing.T, hits ...string) (ProjectIndex, *fakeMeili) {
	t.Helper()
	fake := &fakeMeili{requests: make(map[string][]byte), hits: hits}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return NewMeiliSearchService(meilisearch.New(srv.URL), logger.Discard()), fake
}

func TestSearchProjects_DecodesHits(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	index, fake := newTestIndex(t, first.String(), "garbage", second.String())

	ids, total, err := index.SearchProjects(context.Background(), "react", entity.ProjectOpen, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)
	assert.EqualValues(t, 42, total)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.request("POST /indexes/projects/search"), &sent))
	assert.Equal(t, "react", sent["q"])
	assert.Equal(t, `status = "open"`, sent["filter"])
	assert.EqualValues(t, 10, sent["limit"])
	assert.EqualValues(t, 20, sent["offset"])
}

func TestIndexProject_SendsCleanDocument(t *testing.T) {
	index, fake := newTestIndex(t)
	project := &entity.Project{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		Title:       "<h1>Landing page</h1>",
		Description: "<p>Need a fast site</p>",
		Category:    "web",
		Budget:      800,
		Status:      entity.ProjectOpen,
	}

	require.NoError(t, index.IndexProject(context.Background(), project))

	var docs []map[string]interface{}
	require.NoError(t, json.Unmarshal(fake.request("POST /indexes/projects/documents"), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, project.ID.String(), docs[0]["id"])
	assert.Equal(t, "Landing page", docs[0]["title"])
	assert.Equal(t, "Need a fast site", docs[0]["description"])
	assert.Equal(t, "open", docs[0]["status"])
}
