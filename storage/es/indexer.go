package es

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tdr-review/types"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

// RequirementIndexer keeps committed minimum-content requirements searchable.
type RequirementIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewRequirementIndexer connects to the cluster and makes sure the index exists.
func NewRequirementIndexer(ctx context.Context, addresses []string, indexName string) (*RequirementIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating the client: %w", err)
	}

	indexer := &RequirementIndexer{client: client, index: indexName}
	if err := indexer.initMapping(ctx); err != nil {
		return nil, err
	}
	return indexer, nil
}

func (e *RequirementIndexer) initMapping(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	// requirement text is Spanish
	mapping := `
	{
	  "settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	  },
	  "mappings": {
		"properties": {
		  "id":                   { "type": "long" },
		  "project_id":           { "type": "keyword" },
		  "entregable":           { "type": "text", "analyzer": "spanish", "fields": { "keyword": { "type": "keyword" } } },
		  "seccion":              { "type": "text", "analyzer": "spanish" },
		  "tipo_documento":       { "type": "text", "analyzer": "spanish" },
		  "nombre_requisito":     { "type": "text", "analyzer": "spanish" },
		  "descripcion_completa": { "type": "text", "analyzer": "spanish" },
		  "es_obligatorio":       { "type": "boolean" }
		}
	  }
	}`

	slog.Info("creating requirement index", "index", e.index)
	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index error: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index response error: %s", res.String())
	}
	return nil
}

// Store bulk-indexes reqs keyed by requirement id, so re-indexing a project overwrites in place.
func (e *RequirementIndexer) Store(ctx context.Context, reqs []types.RequirementHit) error {
	if len(reqs) == 0 {
		return nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:   e.index,
		Client:  e.client,
		Refresh: "true",
	})
	if err != nil {
		return err
	}

	for _, r := range reqs {
		data, err := json.Marshal(map[string]any{
			"id":                   r.ID,
			"project_id":           r.ProjectID,
			"entregable":           r.Entregable,
			"seccion":              r.Seccion,
			"tipo_documento":       r.TipoDocumento,
			"nombre_requisito":     r.NombreRequisito,
			"descripcion_completa": r.DescripcionCompleta,
			"es_obligatorio":       r.EsObligatorio,
		})
		if err != nil {
			return err
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatUint(uint64(r.ID), 10),
			Body:       strings.NewReader(string(data)),
		})
		if err != nil {
			return err
		}
	}

	if err := bi.Close(ctx); err != nil {
		return err
	}
	if stats := bi.Stats(); stats.NumFailed > 0 {
		return fmt.Errorf("bulk index: %d of %d requirements failed", stats.NumFailed, stats.NumAdded)
	}
	return nil
}

// DeleteByProject drops every indexed requirement of a project.
func (e *RequirementIndexer) DeleteByProject(ctx context.Context, projectID string) error {
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"project_id": projectID,
			},
		},
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("error encoding query: %w", err)
	}

	res, err := e.client.DeleteByQuery(
		[]string{e.index},
		strings.NewReader(buf.String()),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("ES delete request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ES delete response error: %s", res.String())
	}
	return nil
}
