package cli

import (
	"context"
	"fmt"

	"tdr-review/logic/analysis"
	"tdr-review/logic/engine"
	"tdr-review/logic/ingestion"
	"tdr-review/pkg/logger"
	"tdr-review/service"
	"tdr-review/storage/es"
	"tdr-review/storage/files"
	"tdr-review/storage/postgres"
	"tdr-review/vars"

	"github.com/spf13/afero"
	"gorm.io/gorm"
)

// app holds the wired services shared by serve and extract.
type app struct {
	db          *gorm.DB
	projects    *service.ProjectService
	extractions *service.ExtractionService
}

func newApp(ctx context.Context, cfg *vars.Config) (*app, error) {
	db, err := postgres.InitDB(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store := files.NewStore(cfg.StorageRoot)
	text, err := ingestion.NewTextExtractor(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("text extractor: %w", err)
	}
	eng, err := engine.New(ctx, cfg, store, text)
	if err != nil {
		return nil, err
	}

	rulebook, err := readRulebook(afero.NewOsFs(), cfg.RulebookPath)
	if err != nil {
		return nil, err
	}

	// a nil *RequirementIndexer must not end up inside the interface
	var index service.RequirementIndex
	if cfg.ESAddr != "" {
		ri, err := es.NewRequirementIndexer(ctx, []string{cfg.ESAddr}, cfg.ESIndex)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		index = ri
	} else {
		logger.Info(ctx, "ESADDR not set, requirement search disabled")
	}

	projectRepo := postgres.NewProjectRepo(db)
	docRepo := postgres.NewDocumentRepo(db)

	return &app{
		db:       db,
		projects: service.NewProjectService(projectRepo, docRepo, store, index),
		extractions: service.NewExtractionService(
			projectRepo,
			docRepo,
			postgres.NewTreeRepo(db),
			analysis.NewSubmitter(eng, store),
			analysis.NewPoller(eng, analysis.PollerConfig{
				Interval:  cfg.PollInterval,
				Timeout:   cfg.PollTimeout,
				ListLimit: cfg.PollListLimit,
			}),
			analysis.NewExtractor(eng, cfg.MessageListLimit),
			index,
			service.TDRProfile(rulebook),
			eng.Model(),
		),
	}, nil
}

func (a *app) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// readRulebook returns the optional domain rulebook, "" when none is configured.
func readRulebook(fs afero.Fs, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", fmt.Errorf("read rulebook: %w", err)
	}
	return string(data), nil
}
