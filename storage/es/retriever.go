package es

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tdr-review/types"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultSize = 10

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string               `json:"_id"`
			Score  float64              `json:"_score"`
			Source types.RequirementHit `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text query over the indexed requirements, optionally scoped to a project.
func (e *RequirementIndexer) Search(ctx context.Context, req types.SearchRequest) ([]types.RequirementHit, error) {
	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(buildQuery(req)); err != nil {
		return nil, fmt.Errorf("error encoding query: %w", err)
	}

	searchReq := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  strings.NewReader(buf.String()),
	}
	res, err := searchReq.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("error getting response: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error response: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error parsing response body: %w", err)
	}

	hits := make([]types.RequirementHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hit := h.Source
		hit.Score = h.Score
		hits = append(hits, hit)
	}
	return hits, nil
}

func buildQuery(req types.SearchRequest) map[string]any {
	size := req.Size
	if size <= 0 {
		size = defaultSize
	}

	boolQuery := map[string]any{
		"must": []map[string]any{{
			"multi_match": map[string]any{
				"query":  req.Query,
				"fields": []string{"nombre_requisito^3", "descripcion_completa^2", "tipo_documento", "seccion", "entregable"},
			},
		}},
	}
	if req.ProjectID != "" {
		boolQuery["filter"] = []map[string]any{{
			"term": map[string]any{"project_id": req.ProjectID},
		}}
	}

	return map[string]any{
		"size":  size,
		"query": map[string]any{"bool": boolQuery},
	}
}
