package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"tdr-review/logic/analysis"
	"tdr-review/storage/files"
	"tdr-review/storage/postgres"
	"tdr-review/types"
	"tdr-review/vars"

	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// scriptedEngine completes (or fails) every job on the first poll and answers with reply.
type scriptedEngine struct {
	status  types.JobStatus
	reply   string
	submits int
}

func (e *scriptedEngine) CreateSession(context.Context) (string, error) { return "sess_1", nil }

func (e *scriptedEngine) AttachAndSubmit(context.Context, string, types.DocumentRef, string, string) (string, error) {
	e.submits++
	return fmt.Sprintf("job_%d", e.submits), nil
}

func (e *scriptedEngine) ListJobs(_ context.Context, sessionID string, _ int) ([]types.Job, error) {
	return []types.Job{{ID: fmt.Sprintf("job_%d", e.submits), SessionID: sessionID, Status: e.status}}, nil
}

func (e *scriptedEngine) ListMessages(context.Context, string, int) ([]types.Message, error) {
	return []types.Message{{
		ID:      "msg_1",
		Author:  types.AuthorAssistant,
		Content: []types.ContentSegment{{Type: types.SegmentText, Text: e.reply}},
	}}, nil
}

func (e *scriptedEngine) Model() string { return "fake-model" }

type fakeIndex struct {
	stored  []types.RequirementHit
	deleted []string
	err     error
}

func (f *fakeIndex) Store(_ context.Context, reqs []types.RequirementHit) error {
	if f.err != nil {
		return f.err
	}
	f.stored = reqs
	return nil
}

func (f *fakeIndex) DeleteByProject(_ context.Context, projectID string) error {
	f.deleted = append(f.deleted, projectID)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, req types.SearchRequest) ([]types.RequirementHit, error) {
	var out []types.RequirementHit
	for _, r := range f.stored {
		if strings.Contains(strings.ToLower(r.NombreRequisito), strings.ToLower(req.Query)) {
			out = append(out, r)
		}
	}
	return out, nil
}

const fencedAnswer = "```json\n" + `{
  "proyecto": {"cui": "2456789", "monto_referencial": "S/ 2,500,000.00"},
  "entregables": [
    {"nombre_entregable": "Primer Entregable", "plazo_dias": 30, "secciones": [
      {"nombre": "Topografía", "orden": 1, "es_estudio_completo": true, "tipos_documento": [
        {"nombre_tipo_documento": "Memoria Descriptiva", "orden": 1, "contenidos_minimos": [
          {"nombre_requisito": "Generalidades", "descripcion_completa": "Antecedentes y objetivos", "es_obligatorio": true, "orden": 1},
          {"nombre_requisito": "Planos", "descripcion_completa": "Planos a escala", "es_obligatorio": false, "orden": 2}
        ]}
      ]}
    ]}
  ]
}` + "\n```"

type fixture struct {
	db       *gorm.DB
	projects *ProjectService
	extract  *ExtractionService
	engine   *scriptedEngine
	index    *fakeIndex
	project  *postgres.Proyecto
	doc      *postgres.Documento
}

func newFixture(t *testing.T, e *scriptedEngine, idx *fakeIndex) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := postgres.InitDB(vars.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	if err := postgres.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "/uploads/p/tdr.pdf", []byte("%PDF-1.4"), 0o644)
	store := files.NewStoreFs(mem, "/uploads")

	projectRepo := postgres.NewProjectRepo(db)
	docRepo := postgres.NewDocumentRepo(db)

	var index RequirementIndex
	if idx != nil {
		index = idx
	}
	f := &fixture{db: db, engine: e, index: idx}
	f.projects = NewProjectService(projectRepo, docRepo, store, index)
	f.extract = NewExtractionService(
		projectRepo, docRepo, postgres.NewTreeRepo(db),
		analysis.NewSubmitter(e, store),
		analysis.NewPoller(e, analysis.PollerConfig{Interval: time.Millisecond, Timeout: 50 * time.Millisecond}),
		analysis.NewExtractor(e, 20),
		index,
		TDRProfile(""),
		e.Model(),
	)

	ctx := context.Background()
	f.project, err = f.projects.Create(ctx, CreateProjectInput{Nombre: "Mejoramiento vial"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	f.doc, err = f.projects.RegisterDocument(ctx, f.project.ID, RegisterDocumentInput{RutaArchivo: "p/tdr.pdf"})
	if err != nil {
		t.Fatalf("register document: %v", err)
	}
	return f
}

func TestRunDocumentPersistsTree(t *testing.T) {
	idx := &fakeIndex{}
	f := newFixture(t, &scriptedEngine{status: types.JobCompleted, reply: fencedAnswer}, idx)
	ctx := context.Background()

	res, err := f.extract.RunDocument(ctx, f.doc.ID)
	if err != nil {
		t.Fatalf("RunDocument: %v", err)
	}
	if res.Stats.Total() != 5 || res.JobID != "job_1" || res.SessionID != "sess_1" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Indexed != 2 || len(idx.stored) != 2 || idx.stored[0].Entregable != "Primer Entregable" {
		t.Errorf("requirements not indexed: %+v / %+v", res, idx.stored)
	}

	doc, _ := f.projects.GetDocument(ctx, f.doc.ID)
	if doc.Estado != postgres.EstadoAnalyzed || doc.ErrorMensaje != "" {
		t.Errorf("document state = %q (%q)", doc.Estado, doc.ErrorMensaje)
	}

	p, err := f.projects.Get(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !p.DatosExtraidos || p.CUI == nil || *p.CUI != "2456789" || p.MontoReferencial == nil || *p.MontoReferencial != 2500000 {
		t.Errorf("project not updated: %+v", p)
	}
	if len(p.Entregables) != 1 || len(p.Entregables[0].Secciones[0].TiposDocumento[0].ContenidosMinimos) != 2 {
		t.Errorf("unexpected tree %+v", p.Entregables)
	}

	a, err := f.projects.GetAnalysis(ctx, f.doc.ID)
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a.ModeloIA != "fake-model" || a.TipoAnalisis != vars.AnalysisTypeTDR || a.JobID != "job_1" {
		t.Errorf("unexpected analysis %+v", a)
	}
	if !strings.Contains(string(a.Contenido), "Generalidades") {
		t.Errorf("analysis should keep the parsed extraction, got %s", a.Contenido)
	}

	hits, err := f.projects.Search(ctx, types.SearchRequest{Query: "planos"})
	if err != nil || len(hits) != 1 {
		t.Errorf("search = %v, %v", hits, err)
	}
}

func TestRunDocumentTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, &scriptedEngine{status: types.JobCompleted, reply: fencedAnswer}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.extract.RunDocument(ctx, f.doc.ID); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	var n int64
	f.db.Model(&postgres.ContenidoMinimo{}).Count(&n)
	if n != 2 {
		t.Errorf("expected 2 requirements after two runs, got %d", n)
	}
	var analyses int64
	f.db.Model(&postgres.Analisis{}).Count(&analyses)
	if analyses != 2 {
		t.Errorf("each run keeps its analysis record, got %d", analyses)
	}
}

func TestRunDocumentFailures(t *testing.T) {
	tests := []struct {
		name   string
		engine *scriptedEngine
		want   error
	}{
		{"terminal", &scriptedEngine{status: types.JobFailed}, types.ErrJobTerminalFailure},
		{"timeout", &scriptedEngine{status: types.JobInProgress}, types.ErrJobTimeout},
		{"malformed", &scriptedEngine{status: types.JobCompleted, reply: "no JSON here"}, types.ErrMalformedExtraction},
		{"empty", &scriptedEngine{status: types.JobCompleted, reply: "   "}, types.ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.engine, nil)
			ctx := context.Background()

			_, err := f.extract.RunDocument(ctx, f.doc.ID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}

			doc, _ := f.projects.GetDocument(ctx, f.doc.ID)
			if doc.Estado != postgres.EstadoError || doc.ErrorMensaje == "" {
				t.Errorf("document should be flagged as error, got %q (%q)", doc.Estado, doc.ErrorMensaje)
			}
			p, _ := f.projects.Get(ctx, f.project.ID)
			if p.DatosExtraidos || len(p.Entregables) != 0 {
				t.Errorf("nothing should be persisted: %+v", p)
			}
		})
	}
}

func TestRunDocumentIndexFailureKeepsCommit(t *testing.T) {
	idx := &fakeIndex{err: errors.New("cluster red")}
	f := newFixture(t, &scriptedEngine{status: types.JobCompleted, reply: fencedAnswer}, idx)

	res, err := f.extract.RunDocument(context.Background(), f.doc.ID)
	if err != nil {
		t.Fatalf("index failures must not fail the run: %v", err)
	}
	if res.IndexError == "" || res.Indexed != 0 {
		t.Errorf("index failure should be reported, got %+v", res)
	}
	doc, _ := f.projects.GetDocument(context.Background(), f.doc.ID)
	if doc.Estado != postgres.EstadoAnalyzed {
		t.Errorf("document state = %q", doc.Estado)
	}
}

func TestRunDocumentUnknown(t *testing.T) {
	f := newFixture(t, &scriptedEngine{status: types.JobCompleted, reply: fencedAnswer}, nil)

	if _, err := f.extract.RunDocument(context.Background(), "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
