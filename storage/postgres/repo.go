package postgres

import (
	"context"
	"errors"
	"time"

	"tdr-review/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Errorf(types.KindNotFound, "%s %s not found", what, id)
	}
	return err
}

// ProjectRepo wraps every operation on the proyecto table.
type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create inserts p, assigning a uuid when p.ID is empty.
func (r *ProjectRepo) Create(ctx context.Context, p *Proyecto) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProjectRepo) List(ctx context.Context) ([]Proyecto, error) {
	var out []Proyecto
	err := r.db.WithContext(ctx).Order("fecha_creacion DESC").Find(&out).Error
	return out, err
}

func (r *ProjectRepo) Get(ctx context.Context, id string) (*Proyecto, error) {
	var p Proyecto
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

// GetTree loads the project with documents and the extracted tree, every level ordered by orden.
func (r *ProjectRepo) GetTree(ctx context.Context, id string) (*Proyecto, error) {
	var p Proyecto
	err := r.db.WithContext(ctx).
		Preload("Documentos", func(db *gorm.DB) *gorm.DB { return db.Order("orden, fecha_subida") }).
		Preload("Entregables", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Entregables.Secciones", func(db *gorm.DB) *gorm.DB { return db.Order("orden") }).
		Preload("Entregables.Secciones.TiposDocumento", func(db *gorm.DB) *gorm.DB { return db.Order("orden") }).
		Preload("Entregables.Secciones.TiposDocumento.ContenidosMinimos", func(db *gorm.DB) *gorm.DB { return db.Order("orden") }).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

// Delete removes the project; documents, analyses and the tree go with it through ON DELETE CASCADE.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Proyecto{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.Errorf(types.KindNotFound, "project %s not found", id)
	}
	return nil
}

// DocumentRepo wraps the documentos and analisis tables.
type DocumentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create registers d under an existing project.
func (r *DocumentRepo) Create(ctx context.Context, d *Documento) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Proyecto{}).Where("id = ?", d.ProyectoID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return types.Errorf(types.KindNotFound, "project %s not found", d.ProyectoID)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Estado == "" {
		d.Estado = EstadoPending
	}
	if d.TipoDocumento == "" {
		d.TipoDocumento = TipoTDR
	}
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*Documento, error) {
	var d Documento
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, notFound(err, "document", id)
	}
	return &d, nil
}

func (r *DocumentRepo) ListByProject(ctx context.Context, projectID string) ([]Documento, error) {
	var out []Documento
	err := r.db.WithContext(ctx).
		Where("proyecto_id = ?", projectID).
		Order("orden, fecha_subida").
		Find(&out).Error
	return out, err
}

// SetEstado moves a document through its lifecycle. msg is kept only for the error state.
func (r *DocumentRepo) SetEstado(ctx context.Context, id, estado, msg string) error {
	if estado != EstadoError {
		msg = ""
	}
	result := r.db.WithContext(ctx).
		Model(&Documento{}).
		Where("id = ?", id).
		Updates(map[string]any{"estado": estado, "error_mensaje": msg})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.Errorf(types.KindNotFound, "document %s not found", id)
	}
	return nil
}

// ExpireStale flags documents stuck in processing since before cutoff as failed.
func (r *DocumentRepo) ExpireStale(ctx context.Context, cutoff time.Time, msg string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&Documento{}).
		Where("estado = ? AND updated_at < ?", EstadoProcessing, cutoff).
		Updates(map[string]any{"estado": EstadoError, "error_mensaje": msg})
	return result.RowsAffected, result.Error
}

// LatestAnalysis returns the newest analysis recorded for a document.
func (r *DocumentRepo) LatestAnalysis(ctx context.Context, documentID string) (*Analisis, error) {
	var a Analisis
	err := r.db.WithContext(ctx).
		Where("documento_id = ?", documentID).
		Order("fecha_analisis DESC, id DESC").
		First(&a).Error
	if err != nil {
		return nil, notFound(err, "analysis for document", documentID)
	}
	return &a, nil
}
