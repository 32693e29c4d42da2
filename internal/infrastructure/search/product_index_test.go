package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
)

type recorded struct {
	method string
	path   string
	body   string
}

type fakeES struct {
	mu   sync.Mutex
	reqs []recorded
	// path -> status and body
	replies map[string]func() (int, string)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.reqs = append(f.reqs, recorded{method: r.Method, path: r.URL.Path, body: string(b)})
	reply, ok := f.replies[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
		return
	}
	status, body := reply()
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeES) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

func newTestIndex(t *testing.T, replies map[string]func() (int, string)) (*ProductIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{replies: replies}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewProductIndex(es, "products"), fake
}

func reply(status int, body string) func() (int, string) {
	return func() (int, string) { return status, body }
}

func sampleProduct(id string) *entity.Product {
	sku := "SKU-" + id
	return &entity.Product{
		ID: id, SKU: &sku, Name: "Desk Lamp", Description: "warm light", Category: "lighting",
		Price: decimal.RequireFromString("19.99"), Stock: 4, Images: []string{},
	}
}

func TestIndexPutsDocument(t *testing.T) {
	x, fake := newTestIndex(t, map[string]func() (int, string){
		"PUT /products/_doc/p1": reply(http.StatusCreated, `{"result":"created"}`),
	})

	require.NoError(t, x.Index(context.Background(), sampleProduct("p1")))

	req := fake.last()
	assert.Equal(t, "PUT", req.method)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.body), &doc))
	assert.Equal(t, "Desk Lamp", doc["name"])
	assert.Equal(t, "SKU-p1", doc["sku"])
	assert.InDelta(t, 19.99, doc["price"], 0.0001)
}

func TestIndexReportsErrorStatus(t *testing.T) {
	x, _ := newTestIndex(t, map[string]func() (int, string){
		"PUT /products/_doc/p1": reply(http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`),
	})
	assert.Error(t, x.Index(context.Background(), sampleProduct("p1")))
}

func TestIndexManySendsNDJSON(t *testing.T) {
	x, fake := newTestIndex(t, map[string]func() (int, string){
		"POST /_bulk": reply(http.StatusOK, `{"errors":false,"items":[{"index":{"status":201}},{"index":{"status":201}}]}`),
	})

	require.NoError(t, x.IndexMany(context.Background(), []*entity.Product{sampleProduct("a"), sampleProduct("b")}))

	sc := bufio.NewScanner(strings.NewReader(fake.last().body))
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"a"}}`, lines[0])
	assert.Contains(t, lines[3], `"id":"b"`)

	require.NoError(t, x.IndexMany(context.Background(), nil))
}

func TestIndexManyReportsItemFailures(t *testing.T) {
	x, _ := newTestIndex(t, map[string]func() (int, string){
		"POST /_bulk": reply(http.StatusOK, `{"errors":true,"items":[{"index":{"status":201}},{"index":{"status":400}}]}`),
	})
	err := x.IndexMany(context.Background(), []*entity.Product{sampleProduct("a"), sampleProduct("b")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
}

func TestRemoveIgnoresMissingDocument(t *testing.T) {
	x, _ := newTestIndex(t, map[string]func() (int, string){
		"DELETE /products/_doc/gone": reply(http.StatusNotFound, `{"result":"not_found"}`),
		"DELETE /products/_doc/boom": reply(http.StatusInternalServerError, `{}`),
	})
	assert.NoError(t, x.Remove(context.Background(), "gone"))
	assert.Error(t, x.Remove(context.Background(), "boom"))
}

func TestSearchReturnsIDsInHitOrder(t *testing.T) {
	x, fake := newTestIndex(t, map[string]func() (int, string){
		"POST /products/_search": reply(http.StatusOK, `{"hits":{"hits":[{"_id":"p2"},{"_id":"p1"}]}}`),
	})

	ids, err := x.Search(context.Background(), "lamp", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)

	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.last().body), &q))
	assert.EqualValues(t, 5, q["size"])
	mm := q["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "lamp", mm["query"])
}

func TestEnsureIndexCreatesWhenMissing(t *testing.T) {
	x, fake := newTestIndex(t, map[string]func() (int, string){
		"HEAD /products": reply(http.StatusNotFound, ``),
		"PUT /products":  reply(http.StatusOK, `{"acknowledged":true}`),
	})
	require.NoError(t, x.EnsureIndex(context.Background()))
	assert.Equal(t, "PUT", fake.last().method)
	assert.Contains(t, fake.last().body, `"mappings"`)
}
