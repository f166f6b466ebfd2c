package es

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

	"tdr-review/types"
)

// fakeCluster answers the handful of Elasticsearch endpoints the indexer uses.
type fakeCluster struct {
	mu          sync.Mutex
	indexExists bool
	created     bool
	bulkDocs    []map[string]any
	bulkIDs     []string
	lastSearch  map[string]any
	deleteBody  map[string]any
}

func (c *fakeCluster) serve(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		defer c.mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/reqs":
			if c.indexExists {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusNotFound)
			}
		case r.Method == http.MethodPut && r.URL.Path == "/reqs":
			c.created = true
			io.WriteString(w, `{"acknowledged":true,"index":"reqs"}`)
		case r.URL.Path == "/_bulk" || r.URL.Path == "/reqs/_bulk":
			var items []string
			sc := bufio.NewScanner(r.Body)
			sc.Buffer(make([]byte, 1024*1024), 1024*1024)
			for sc.Scan() {
				line := sc.Text()
				if strings.TrimSpace(line) == "" {
					continue
				}
				var m map[string]any
				if err := json.Unmarshal([]byte(line), &m); err != nil {
					t.Errorf("bad bulk line %q: %v", line, err)
					continue
				}
				if meta, ok := m["index"].(map[string]any); ok {
					id, _ := meta["_id"].(string)
					c.bulkIDs = append(c.bulkIDs, id)
					items = append(items, `{"index":{"_index":"reqs","_id":"`+id+`","status":201}}`)
					continue
				}
				c.bulkDocs = append(c.bulkDocs, m)
			}
			io.WriteString(w, `{"took":1,"errors":false,"items":[`+strings.Join(items, ",")+`]}`)
		case r.URL.Path == "/reqs/_search":
			json.NewDecoder(r.Body).Decode(&c.lastSearch)
			io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_id":"7","_score":4.2,"_source":{"id":7,"project_id":"p1","entregable":"Primer Entregable","seccion":"Topografía","tipo_documento":"Memoria","nombre_requisito":"Planos","descripcion_completa":"Planos a escala 1:1000","es_obligatorio":true}}]}}`)
		case r.URL.Path == "/reqs/_delete_by_query":
			json.NewDecoder(r.Body).Decode(&c.deleteBody)
			io.WriteString(w, `{"deleted":3}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":"not found"}`)
		}
	}))
}

func newTestIndexer(t *testing.T, c *fakeCluster) *RequirementIndexer {
	t.Helper()
	srv := c.serve(t)
	t.Cleanup(srv.Close)
	idx, err := NewRequirementIndexer(context.Background(), []string{srv.URL}, "reqs")
	if err != nil {
		t.Fatalf("NewRequirementIndexer: %v", err)
	}
	return idx
}

func TestIndexCreatedWhenMissing(t *testing.T) {
	c := &fakeCluster{}
	newTestIndexer(t, c)
	if !c.created {
		t.Error("missing index should be created")
	}

	c2 := &fakeCluster{indexExists: true}
	newTestIndexer(t, c2)
	if c2.created {
		t.Error("existing index must not be recreated")
	}
}

func TestStoreBulkIndexesByRequirementID(t *testing.T) {
	c := &fakeCluster{indexExists: true}
	idx := newTestIndexer(t, c)

	reqs := []types.RequirementHit{
		{ID: 11, ProjectID: "p1", Entregable: "Primer Entregable", NombreRequisito: "Generalidades", EsObligatorio: true},
		{ID: 12, ProjectID: "p1", Entregable: "Primer Entregable", NombreRequisito: "Planos"},
	}
	if err := idx.Store(context.Background(), reqs); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if strings.Join(c.bulkIDs, ",") != "11,12" {
		t.Errorf("bulk ids = %v", c.bulkIDs)
	}
	if len(c.bulkDocs) != 2 || c.bulkDocs[0]["nombre_requisito"] != "Generalidades" || c.bulkDocs[0]["project_id"] != "p1" {
		t.Errorf("unexpected bulk documents %v", c.bulkDocs)
	}
	if _, ok := c.bulkDocs[0]["score"]; ok {
		t.Error("score must not be stored")
	}
}

func TestStoreNothing(t *testing.T) {
	c := &fakeCluster{indexExists: true}
	idx := newTestIndexer(t, c)
	if err := idx.Store(context.Background(), nil); err != nil {
		t.Fatalf("Store(nil): %v", err)
	}
	if len(c.bulkIDs) != 0 {
		t.Error("no bulk request expected")
	}
}

func TestSearch(t *testing.T) {
	c := &fakeCluster{indexExists: true}
	idx := newTestIndexer(t, c)

	hits, err := idx.Search(context.Background(), types.SearchRequest{Query: "planos", ProjectID: "p1"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != 7 || hits[0].Score != 4.2 || hits[0].Seccion != "Topografía" {
		t.Errorf("unexpected hits %+v", hits)
	}

	if c.lastSearch["size"] != float64(defaultSize) {
		t.Errorf("size = %v", c.lastSearch["size"])
	}
	boolQ := c.lastSearch["query"].(map[string]any)["bool"].(map[string]any)
	filter := boolQ["filter"].([]any)[0].(map[string]any)["term"].(map[string]any)
	if filter["project_id"] != "p1" {
		t.Errorf("project filter = %v", filter)
	}
}

func TestBuildQueryWithoutProject(t *testing.T) {
	q := buildQuery(types.SearchRequest{Query: "suelos", Size: 3})
	if q["size"] != 3 {
		t.Errorf("size = %v", q["size"])
	}
	boolQ := q["query"].(map[string]any)["bool"].(map[string]any)
	if _, ok := boolQ["filter"]; ok {
		t.Error("no filter expected without a project")
	}
}

func TestDeleteByProject(t *testing.T) {
	c := &fakeCluster{indexExists: true}
	idx := newTestIndexer(t, c)

	if err := idx.DeleteByProject(context.Background(), "p1"); err != nil {
		t.Fatalf("DeleteByProject: %v", err)
	}
	term := c.deleteBody["query"].(map[string]any)["term"].(map[string]any)
	if term["project_id"] != "p1" {
		t.Errorf("delete query = %v", c.deleteBody)
	}
}
