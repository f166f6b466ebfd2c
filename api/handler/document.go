package handler

import (
	"context"
	"errors"
	"net/http"

	"tdr-review/api/response"
	"tdr-review/service"
	"tdr-review/types"

	"github.com/gin-gonic/gin"
)

type Extractions interface {
	RunDocument(ctx context.Context, documentID string) (*service.ExtractionResult, error)
}

type DocumentHandler struct {
	projects    Projects
	extractions Extractions
}

func NewDocumentHandler(projects Projects, extractions Extractions) *DocumentHandler {
	return &DocumentHandler{projects: projects, extractions: extractions}
}

func (h *DocumentHandler) Get(c *gin.Context) {
	d, err := h.projects.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, d)
}

// Extract runs the whole pipeline for the document and answers once the tree is stored.
func (h *DocumentHandler) Extract(c *gin.Context) {
	res, err := h.extractions.RunDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *DocumentHandler) Analysis(c *gin.Context) {
	a, err := h.projects.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a)
}

func (h *DocumentHandler) SearchRequirements(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, types.Wrap(types.KindInvalidInput, "query parameter q is required", err))
		return
	}
	hits, err := h.projects.Search(c.Request.Context(), req)
	if errors.Is(err, service.ErrSearchDisabled) {
		response.Fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, hits)
}
