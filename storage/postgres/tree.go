package postgres

import (
	"context"
	"errors"
	"strings"

	"tdr-review/pkg/logger"
	"tdr-review/types"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyStats counts the nodes written by one ApplyExtraction.
type ApplyStats struct {
	Entregables int `json:"entregables"`
	Secciones   int `json:"secciones"`
	Tipos       int `json:"tipos_documento"`
	Contenidos  int `json:"contenidos_minimos"`
}

func (s ApplyStats) Total() int {
	return s.Entregables + s.Secciones + s.Tipos + s.Contenidos
}

// TreeRepo persists extracted TDR trees.
type TreeRepo struct {
	db *gorm.DB
}

func NewTreeRepo(db *gorm.DB) *TreeRepo {
	return &TreeRepo{db: db}
}

// ApplyExtraction upserts the whole tree for projectID in one transaction, records the
// optional analysis and finally flags the project as extracted. Nothing is committed
// unless every node is written.
func (r *TreeRepo) ApplyExtraction(ctx context.Context, projectID string, tree *types.TdrExtraction, record *Analisis) (*ApplyStats, error) {
	if tree == nil {
		return nil, types.Errorf(types.KindPersistenceFailure, "nil extraction for project %s", projectID)
	}

	stats := &ApplyStats{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tree.Entregables {
			if err := applyEntregable(tx, projectID, &tree.Entregables[i], stats); err != nil {
				return err
			}
		}

		if tree.Proyecto != nil {
			if err := applyProyectoMeta(ctx, tx, projectID, tree.Proyecto); err != nil {
				return err
			}
		}

		if record != nil {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&Proyecto{}).Where("id = ?", projectID).Update("datos_extraidos", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return types.Errorf(types.KindPersistenceFailure, "project %s not found", projectID)
		}
		return nil
	})
	if err != nil {
		var te *types.Error
		if errors.As(err, &te) && te.Kind == types.KindPersistenceFailure {
			return nil, te
		}
		return nil, types.Wrap(types.KindPersistenceFailure, "apply extraction for project "+projectID, err)
	}
	return stats, nil
}

func applyEntregable(tx *gorm.DB, projectID string, e *types.Entregable, stats *ApplyStats) error {
	name := strings.TrimSpace(e.NombreEntregable)
	row := Entregable{
		ProyectoID:       projectID,
		NombreEntregable: name,
		PlazoDias:        e.PlazoDias.Int(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proyecto_id"}, {Name: "nombre_entregable"}},
		DoUpdates: clause.AssignmentColumns([]string{"plazo_dias", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	var stored Entregable
	if err := tx.Select("id").Where("proyecto_id = ? AND nombre_entregable = ?", projectID, name).Take(&stored).Error; err != nil {
		return err
	}
	stats.Entregables++

	for i := range e.Secciones {
		if err := applySeccion(tx, stored.ID, &e.Secciones[i], stats); err != nil {
			return err
		}
	}
	return nil
}

func applySeccion(tx *gorm.DB, entregableID uint, s *types.Seccion, stats *ApplyStats) error {
	row := SeccionEstudio{
		EntregableID:      entregableID,
		Nombre:            strings.TrimSpace(s.Nombre),
		Orden:             s.Orden,
		EsEstudioCompleto: s.EsEstudioCompleto != nil && *s.EsEstudioCompleto,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entregable_id"}, {Name: "orden"}},
		DoUpdates: clause.AssignmentColumns([]string{"nombre", "es_estudio_completo", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	var stored SeccionEstudio
	if err := tx.Select("id").Where("entregable_id = ? AND orden = ?", entregableID, s.Orden).Take(&stored).Error; err != nil {
		return err
	}
	stats.Secciones++

	for i := range s.TiposDocumento {
		if err := applyTipo(tx, stored.ID, &s.TiposDocumento[i], stats); err != nil {
			return err
		}
	}
	return nil
}

func applyTipo(tx *gorm.DB, seccionID uint, t *types.TipoDocumento, stats *ApplyStats) error {
	row := TipoDocumento{
		SeccionEstudioID:    seccionID,
		NombreTipoDocumento: strings.TrimSpace(t.NombreTipoDocumento),
		Orden:               t.Orden,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seccion_estudio_id"}, {Name: "orden"}},
		DoUpdates: clause.AssignmentColumns([]string{"nombre_tipo_documento", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return err
	}

	var stored TipoDocumento
	if err := tx.Select("id").Where("seccion_estudio_id = ? AND orden = ?", seccionID, t.Orden).Take(&stored).Error; err != nil {
		return err
	}
	stats.Tipos++

	for i := range t.ContenidosMinimos {
		if err := applyContenido(tx, stored.ID, &t.ContenidosMinimos[i]); err != nil {
			return err
		}
		stats.Contenidos++
	}
	return nil
}

func applyContenido(tx *gorm.DB, tipoID uint, c *types.ContenidoMinimo) error {
	row := ContenidoMinimo{
		TipoDocumentoID:     tipoID,
		NombreRequisito:     strings.TrimSpace(c.NombreRequisito),
		DescripcionCompleta: c.DescripcionCompleta,
		EsObligatorio:       c.EsObligatorio,
		Orden:               c.Orden,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tipo_documento_id"}, {Name: "orden"}},
		DoUpdates: clause.AssignmentColumns([]string{"nombre_requisito", "descripcion_completa", "es_obligatorio", "updated_at"}),
	}).Create(&row).Error
}

// applyProyectoMeta copies the non-null project fields the engine found.
func applyProyectoMeta(ctx context.Context, tx *gorm.DB, projectID string, p *types.ProyectoExtraido) error {
	updates := map[string]any{}
	setText := func(col string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	setText("cui", p.CUI)
	setText("entidad_ejecutora", p.EntidadEjecutora)
	setText("descripcion", p.Descripcion)

	if p.MontoReferencial.Value != nil {
		updates["monto_referencial"] = *p.MontoReferencial.Value
	} else if p.MontoReferencial.Degraded() {
		logger.Warn(ctx, "monto_referencial could not be coerced, stored as null", "raw", p.MontoReferencial.Raw)
	}
	if n := p.NumeroEntregables.Int(); n != nil {
		updates["numero_entregables"] = *n
	}

	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&Proyecto{}).Where("id = ?", projectID).Updates(updates).Error
}
