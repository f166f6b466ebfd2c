package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tdr-review/pkg/logger"
	"tdr-review/storage/postgres"
	"tdr-review/types"
)

// ErrSearchDisabled is returned by Search when no index is configured.
var ErrSearchDisabled = errors.New("requirement search is not configured")

// FileChecker is the part of durable storage project intake needs.
type FileChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

type ProjectService struct {
	projects  *postgres.ProjectRepo
	documents *postgres.DocumentRepo
	files     FileChecker
	indexer   RequirementIndex
}

func NewProjectService(projects *postgres.ProjectRepo, documents *postgres.DocumentRepo, files FileChecker, indexer RequirementIndex) *ProjectService {
	return &ProjectService{projects: projects, documents: documents, files: files, indexer: indexer}
}

type CreateProjectInput struct {
	Nombre           string   `json:"nombre" binding:"required"`
	CUI              *string  `json:"cui"`
	EntidadEjecutora *string  `json:"entidad_ejecutora"`
	MontoReferencial *float64 `json:"monto_referencial"`
	Descripcion      *string  `json:"descripcion"`
}

func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*postgres.Proyecto, error) {
	if strings.TrimSpace(in.Nombre) == "" {
		return nil, types.Errorf(types.KindInvalidInput, "project name is required")
	}
	p := &postgres.Proyecto{
		Nombre:           strings.TrimSpace(in.Nombre),
		CUI:              in.CUI,
		EntidadEjecutora: in.EntidadEjecutora,
		MontoReferencial: in.MontoReferencial,
		Descripcion:      in.Descripcion,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, types.Wrap(types.KindPersistenceFailure, "create project", err)
	}
	logger.Info(logger.WithProject(ctx, p.ID, ""), "project created", "nombre", p.Nombre)
	return p, nil
}

func (s *ProjectService) List(ctx context.Context) ([]postgres.Proyecto, error) {
	return s.projects.List(ctx)
}

// Get returns the project with its documents and the extracted tree.
func (s *ProjectService) Get(ctx context.Context, id string) (*postgres.Proyecto, error) {
	return s.projects.GetTree(ctx, id)
}

// Delete removes the project and everything under it, then drops its search entries.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	if s.indexer != nil {
		if err := s.indexer.DeleteByProject(ctx, id); err != nil {
			logger.Warn(logger.WithProject(ctx, id, ""), "could not drop indexed requirements", "error", err)
		}
	}
	return nil
}

type RegisterDocumentInput struct {
	NombreArchivo string `json:"nombre_archivo"`
	RutaArchivo   string `json:"ruta_archivo" binding:"required"`
	TipoDocumento string `json:"tipo_documento"`
	Orden         int    `json:"orden"`
}

// RegisterDocument attaches an already stored file to a project.
func (s *ProjectService) RegisterDocument(ctx context.Context, projectID string, in RegisterDocumentInput) (*postgres.Documento, error) {
	switch in.TipoDocumento {
	case "", postgres.TipoTDR, postgres.TipoEntregable, postgres.TipoOtro:
	default:
		return nil, types.Errorf(types.KindInvalidInput, "unknown tipo_documento %q", in.TipoDocumento)
	}
	ok, err := s.files.Exists(ctx, in.RutaArchivo)
	if err != nil {
		return nil, types.Wrap(types.KindInvalidDocumentReference, "check "+in.RutaArchivo, err)
	}
	if !ok {
		return nil, types.Errorf(types.KindInvalidDocumentReference, "document %s not found in storage", in.RutaArchivo)
	}

	name := in.NombreArchivo
	if name == "" {
		name = in.RutaArchivo[strings.LastIndex(in.RutaArchivo, "/")+1:]
	}
	d := &postgres.Documento{
		ProyectoID:    projectID,
		NombreArchivo: name,
		RutaArchivo:   in.RutaArchivo,
		TipoDocumento: in.TipoDocumento,
		Orden:         in.Orden,
	}
	if err := s.documents.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *ProjectService) ListDocuments(ctx context.Context, projectID string) ([]postgres.Documento, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.documents.ListByProject(ctx, projectID)
}

func (s *ProjectService) GetDocument(ctx context.Context, id string) (*postgres.Documento, error) {
	return s.documents.Get(ctx, id)
}

// GetAnalysis returns the latest recorded analysis of a document.
func (s *ProjectService) GetAnalysis(ctx context.Context, documentID string) (*postgres.Analisis, error) {
	if _, err := s.documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.documents.LatestAnalysis(ctx, documentID)
}

func (s *ProjectService) Search(ctx context.Context, req types.SearchRequest) ([]types.RequirementHit, error) {
	if s.indexer == nil {
		return nil, ErrSearchDisabled
	}
	return s.indexer.Search(ctx, req)
}

// ExpireStale flags documents left in processing since before cutoff.
func (s *ProjectService) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.documents.ExpireStale(ctx, cutoff, "processing abandoned: no result before the reaper deadline")
}
