package postgres

import (
	"time"

	"gorm.io/datatypes"
)

// Document lifecycle states
const (
	EstadoPending    = "pending"
	EstadoProcessing = "processing"
	EstadoAnalyzed   = "analyzed"
	EstadoError      = "error"
)

// Document kinds
const (
	TipoTDR        = "tdr"
	TipoEntregable = "entregable"
	TipoOtro       = "otro"
)

// Proyecto is one engineering project under review.
type Proyecto struct {
	// ID is a uuid assigned on intake, not an autoincrement.
	ID                string   `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Nombre            string   `gorm:"column:nombre;type:varchar(500);not null" json:"nombre"`
	CUI               *string  `gorm:"column:cui;type:varchar(50);index" json:"cui"`
	EntidadEjecutora  *string  `gorm:"column:entidad_ejecutora;type:varchar(500)" json:"entidad_ejecutora"`
	MontoReferencial  *float64 `gorm:"column:monto_referencial;type:decimal(15,2)" json:"monto_referencial"`
	Descripcion       *string  `gorm:"column:descripcion;type:text" json:"descripcion"`
	NumeroEntregables *int     `gorm:"column:numero_entregables" json:"numero_entregables"`
	DatosExtraidos    bool     `gorm:"column:datos_extraidos;not null;default:false" json:"datos_extraidos"`

	Documentos  []Documento  `gorm:"foreignKey:ProyectoID;constraint:OnDelete:CASCADE" json:"documentos,omitempty"`
	Entregables []Entregable `gorm:"foreignKey:ProyectoID;constraint:OnDelete:CASCADE" json:"entregables,omitempty"`

	FechaCreacion time.Time `gorm:"column:fecha_creacion;autoCreateTime" json:"fecha_creacion"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Proyecto) TableName() string {
	return "proyecto"
}

// Documento is a file of a project held in durable storage.
type Documento struct {
	ID            string `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	ProyectoID    string `gorm:"column:proyecto_id;type:varchar(36);not null;index" json:"proyecto_id"`
	NombreArchivo string `gorm:"column:nombre_archivo;type:varchar(255);not null" json:"nombre_archivo"`
	RutaArchivo   string `gorm:"column:ruta_archivo;type:varchar(1024);not null" json:"ruta_archivo"`
	TipoDocumento string `gorm:"column:tipo_documento;type:varchar(20);not null;default:tdr" json:"tipo_documento"`
	Orden         int    `gorm:"column:orden;default:0" json:"orden"`
	Estado        string `gorm:"column:estado;type:varchar(20);not null;default:pending;index" json:"estado"`
	ErrorMensaje  string `gorm:"column:error_mensaje;type:text" json:"error_mensaje,omitempty"`

	Analisis []Analisis `gorm:"foreignKey:DocumentoID;constraint:OnDelete:CASCADE" json:"-"`

	FechaSubida time.Time `gorm:"column:fecha_subida;autoCreateTime" json:"fecha_subida"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Documento) TableName() string {
	return "documentos"
}

// Entregable is unique per (proyecto_id, nombre_entregable).
type Entregable struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	ProyectoID       string `gorm:"column:proyecto_id;type:varchar(36);not null;uniqueIndex:uq_entregable_proyecto_nombre,priority:1" json:"proyecto_id"`
	NombreEntregable string `gorm:"column:nombre_entregable;type:varchar(500);not null;uniqueIndex:uq_entregable_proyecto_nombre,priority:2" json:"nombre_entregable"`
	PlazoDias        *int   `gorm:"column:plazo_dias" json:"plazo_dias"`

	Secciones []SeccionEstudio `gorm:"foreignKey:EntregableID;constraint:OnDelete:CASCADE" json:"secciones"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Entregable) TableName() string {
	return "tdr_entregable"
}

// SeccionEstudio is unique per (entregable_id, orden).
type SeccionEstudio struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	EntregableID      uint   `gorm:"column:entregable_id;not null;uniqueIndex:uq_seccion_entregable_orden,priority:1" json:"entregable_id"`
	Nombre            string `gorm:"column:nombre;type:varchar(500);not null" json:"nombre"`
	Orden             int    `gorm:"column:orden;not null;uniqueIndex:uq_seccion_entregable_orden,priority:2" json:"orden"`
	EsEstudioCompleto bool   `gorm:"column:es_estudio_completo;not null;default:false" json:"es_estudio_completo"`

	TiposDocumento []TipoDocumento `gorm:"foreignKey:SeccionEstudioID;constraint:OnDelete:CASCADE" json:"tipos_documento"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (SeccionEstudio) TableName() string {
	return "tdr_seccion_estudio"
}

// TipoDocumento is unique per (seccion_estudio_id, orden).
type TipoDocumento struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	SeccionEstudioID    uint   `gorm:"column:seccion_estudio_id;not null;uniqueIndex:uq_tipo_seccion_orden,priority:1" json:"seccion_estudio_id"`
	NombreTipoDocumento string `gorm:"column:nombre_tipo_documento;type:varchar(500);not null" json:"nombre_tipo_documento"`
	Orden               int    `gorm:"column:orden;not null;uniqueIndex:uq_tipo_seccion_orden,priority:2" json:"orden"`

	ContenidosMinimos []ContenidoMinimo `gorm:"foreignKey:TipoDocumentoID;constraint:OnDelete:CASCADE" json:"contenidos_minimos"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (TipoDocumento) TableName() string {
	return "tdr_tipo_documento"
}

// ContenidoMinimo is unique per (tipo_documento_id, orden).
type ContenidoMinimo struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	TipoDocumentoID     uint   `gorm:"column:tipo_documento_id;not null;uniqueIndex:uq_contenido_tipo_orden,priority:1" json:"tipo_documento_id"`
	NombreRequisito     string `gorm:"column:nombre_requisito;type:varchar(500);not null" json:"nombre_requisito"`
	DescripcionCompleta string `gorm:"column:descripcion_completa;type:text" json:"descripcion_completa"`
	EsObligatorio       bool   `gorm:"column:es_obligatorio;not null" json:"es_obligatorio"`
	Orden               int    `gorm:"column:orden;not null;uniqueIndex:uq_contenido_tipo_orden,priority:2" json:"orden"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (ContenidoMinimo) TableName() string {
	return "tdr_contenido_minimo"
}

// Analisis keeps the raw extraction a document produced.
type Analisis struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	DocumentoID   string         `gorm:"column:documento_id;type:varchar(36);not null;index" json:"documento_id"`
	Contenido     datatypes.JSON `gorm:"column:contenido" json:"contenido"`
	ModeloIA      string         `gorm:"column:modelo_ia;type:varchar(100)" json:"modelo_ia"`
	TipoAnalisis  string         `gorm:"column:tipo_analisis;type:varchar(100);index" json:"tipo_analisis"`
	SessionID     string         `gorm:"column:session_id;type:varchar(100)" json:"session_id"`
	JobID         string         `gorm:"column:job_id;type:varchar(100)" json:"job_id"`
	FechaAnalisis time.Time      `gorm:"column:fecha_analisis;autoCreateTime" json:"fecha_analisis"`
}

func (Analisis) TableName() string {
	return "analisis"
}

// Models lists every table in dependency order for AutoMigrate.
func Models() []any {
	return []any{
		&Proyecto{},
		&Documento{},
		&Analisis{},
		&Entregable{},
		&SeccionEstudio{},
		&TipoDocumento{},
		&ContenidoMinimo{},
	}
}
