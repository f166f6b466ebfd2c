package handler

import (
	"context"

	"tdr-review/api/response"
	"tdr-review/service"
	"tdr-review/storage/postgres"
	"tdr-review/types"

	"github.com/gin-gonic/gin"
)

// Projects is the project and document side of the service layer.
type Projects interface {
	Create(ctx context.Context, in service.CreateProjectInput) (*postgres.Proyecto, error)
	List(ctx context.Context) ([]postgres.Proyecto, error)
	Get(ctx context.Context, id string) (*postgres.Proyecto, error)
	Delete(ctx context.Context, id string) error
	RegisterDocument(ctx context.Context, projectID string, in service.RegisterDocumentInput) (*postgres.Documento, error)
	ListDocuments(ctx context.Context, projectID string) ([]postgres.Documento, error)
	GetDocument(ctx context.Context, id string) (*postgres.Documento, error)
	GetAnalysis(ctx context.Context, documentID string) (*postgres.Analisis, error)
	Search(ctx context.Context, req types.SearchRequest) ([]types.RequirementHit, error)
}

type ProjectHandler struct {
	projects Projects
}

func NewProjectHandler(projects Projects) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var in service.CreateProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, types.Wrap(types.KindInvalidInput, "invalid project body", err))
		return
	}
	p, err := h.projects.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

func (h *ProjectHandler) List(c *gin.Context) {
	list, err := h.projects.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// Get returns the project with its documents and extracted tree.
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "deleted": true})
}

func (h *ProjectHandler) RegisterDocument(c *gin.Context) {
	var in service.RegisterDocumentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, types.Wrap(types.KindInvalidInput, "invalid document body", err))
		return
	}
	d, err := h.projects.RegisterDocument(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, d)
}

func (h *ProjectHandler) ListDocuments(c *gin.Context) {
	docs, err := h.projects.ListDocuments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, docs)
}
