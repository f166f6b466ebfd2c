package service

import (
	"context"
	"encoding/json"
	"time"

	"tdr-review/logic/analysis"
	"tdr-review/pkg/logger"
	"tdr-review/storage/postgres"
	"tdr-review/types"
	"tdr-review/vars"
)

// RequirementIndex is the search side of committed requirements.
type RequirementIndex interface {
	Store(ctx context.Context, reqs []types.RequirementHit) error
	DeleteByProject(ctx context.Context, projectID string) error
	Search(ctx context.Context, req types.SearchRequest) ([]types.RequirementHit, error)
}

// ExtractionResult summarises one finished pipeline run.
type ExtractionResult struct {
	DocumentID string              `json:"document_id"`
	ProjectID  string              `json:"project_id"`
	SessionID  string              `json:"session_id"`
	JobID      string              `json:"job_id"`
	Stats      postgres.ApplyStats `json:"stats"`
	Indexed    int                 `json:"indexed"`
	IndexError string              `json:"index_error,omitempty"`
	Duration   string              `json:"duration"`
}

type ExtractionService struct {
	projects  *postgres.ProjectRepo
	documents *postgres.DocumentRepo
	tree      *postgres.TreeRepo
	submitter *analysis.Submitter
	poller    *analysis.Poller
	extractor *analysis.Extractor
	indexer   RequirementIndex
	profile   types.Profile
	model     string
}

// NewExtractionService wires the pipeline. indexer may be nil when search is not configured.
func NewExtractionService(
	projects *postgres.ProjectRepo,
	documents *postgres.DocumentRepo,
	tree *postgres.TreeRepo,
	submitter *analysis.Submitter,
	poller *analysis.Poller,
	extractor *analysis.Extractor,
	indexer RequirementIndex,
	profile types.Profile,
	model string,
) *ExtractionService {
	return &ExtractionService{
		projects:  projects,
		documents: documents,
		tree:      tree,
		submitter: submitter,
		poller:    poller,
		extractor: extractor,
		indexer:   indexer,
		profile:   profile,
		model:     model,
	}
}

// TDRProfile is the structure-extraction analysis with an optional rulebook appended.
func TDRProfile(rulebook string) types.Profile {
	return types.Profile{
		Name:         vars.ProfileTDR,
		Instructions: vars.TDRPrompt,
		Rulebook:     rulebook,
	}
}

// RunDocument submits the document, waits for the job, parses the answer and persists the
// tree. The document moves pending -> processing -> analyzed, or to error with the reason.
func (s *ExtractionService) RunDocument(ctx context.Context, documentID string) (*ExtractionResult, error) {
	start := time.Now()
	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithProject(ctx, doc.ProyectoID, doc.ID)

	if err := s.documents.SetEstado(ctx, doc.ID, postgres.EstadoProcessing, ""); err != nil {
		return nil, err
	}
	logger.Info(ctx, "extraction started", "file", doc.NombreArchivo)

	res, err := s.run(ctx, doc)
	if err != nil {
		// the run may have been cancelled; the failure still has to be recorded
		if uerr := s.documents.SetEstado(context.WithoutCancel(ctx), doc.ID, postgres.EstadoError, err.Error()); uerr != nil {
			logger.Error(ctx, "could not flag document as failed", "error", uerr)
		}
		logger.Error(ctx, "extraction failed", "kind", types.KindOf(err), "error", err)
		return nil, err
	}

	if err := s.documents.SetEstado(ctx, doc.ID, postgres.EstadoAnalyzed, ""); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start).Round(time.Millisecond).String()

	s.index(ctx, res)
	logger.Info(ctx, "extraction finished",
		"entregables", res.Stats.Entregables,
		"secciones", res.Stats.Secciones,
		"tipos_documento", res.Stats.Tipos,
		"contenidos_minimos", res.Stats.Contenidos,
		"duration", res.Duration)
	return res, nil
}

func (s *ExtractionService) run(ctx context.Context, doc *postgres.Documento) (*ExtractionResult, error) {
	handle, err := s.submitter.Submit(ctx, types.DocumentRef{Path: doc.RutaArchivo, Name: doc.NombreArchivo}, s.profile)
	if err != nil {
		return nil, err
	}

	job, err := s.poller.Wait(ctx, handle, handle.SessionID)
	if err != nil {
		return nil, err
	}

	raw, err := s.extractor.Collect(ctx, job.SessionID)
	if err != nil {
		return nil, err
	}
	tree, err := analysis.ParseExtraction(raw)
	if err != nil {
		logger.Debug(ctx, "unparseable engine answer", "raw", raw)
		return nil, err
	}

	contenido, err := json.Marshal(tree)
	if err != nil {
		return nil, types.Wrap(types.KindMalformedExtraction, "encode extraction", err)
	}
	record := &postgres.Analisis{
		DocumentoID:  doc.ID,
		Contenido:    contenido,
		ModeloIA:     s.model,
		TipoAnalisis: vars.AnalysisTypeTDR,
		SessionID:    job.SessionID,
		JobID:        job.ID,
	}

	stats, err := s.tree.ApplyExtraction(ctx, doc.ProyectoID, tree, record)
	if err != nil {
		return nil, err
	}

	return &ExtractionResult{
		DocumentID: doc.ID,
		ProjectID:  doc.ProyectoID,
		SessionID:  job.SessionID,
		JobID:      job.ID,
		Stats:      *stats,
	}, nil
}

// index pushes the project's committed requirements to search. Failures here never undo the commit.
func (s *ExtractionService) index(ctx context.Context, res *ExtractionResult) {
	if s.indexer == nil {
		return
	}
	p, err := s.projects.GetTree(ctx, res.ProjectID)
	if err != nil {
		res.IndexError = err.Error()
		logger.Warn(ctx, "requirement indexing skipped", "error", err)
		return
	}
	reqs := Requirements(p)
	if err := s.indexer.Store(ctx, reqs); err != nil {
		res.IndexError = err.Error()
		logger.Warn(ctx, "requirement indexing failed", "error", err)
		return
	}
	res.Indexed = len(reqs)
}

// Requirements flattens a project's tree into searchable rows.
func Requirements(p *postgres.Proyecto) []types.RequirementHit {
	var out []types.RequirementHit
	for _, e := range p.Entregables {
		for _, sec := range e.Secciones {
			for _, td := range sec.TiposDocumento {
				for _, c := range td.ContenidosMinimos {
					out = append(out, types.RequirementHit{
						ID:                  c.ID,
						ProjectID:           p.ID,
						Entregable:          e.NombreEntregable,
						Seccion:             sec.Nombre,
						TipoDocumento:       td.NombreTipoDocumento,
						NombreRequisito:     c.NombreRequisito,
						DescripcionCompleta: c.DescripcionCompleta,
						EsObligatorio:       c.EsObligatorio,
					})
				}
			}
		}
	}
	return out
}
