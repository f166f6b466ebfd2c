package types

// SearchRequest is a full-text query over indexed requirements.
type SearchRequest struct {
	Query     string `form:"q" json:"query" binding:"required"`
	ProjectID string `form:"project_id" json:"project_id,omitempty"`
	Size      int    `form:"size" json:"size,omitempty"`
}

// RequirementHit is one indexed minimum-content requirement returned by search.
type RequirementHit struct {
	ID                  uint    `json:"id"`
	ProjectID           string  `json:"project_id"`
	Entregable          string  `json:"entregable"`
	Seccion             string  `json:"seccion"`
	TipoDocumento       string  `json:"tipo_documento"`
	NombreRequisito     string  `json:"nombre_requisito"`
	DescripcionCompleta string  `json:"descripcion_completa"`
	EsObligatorio       bool    `json:"es_obligatorio"`
	Score               float64 `json:"score"`
}
