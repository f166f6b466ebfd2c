package analysis

import (
	"context"
	"strings"

	"tdr-review/logic/engine"
	"tdr-review/pkg/logger"
	"tdr-review/types"
)

// FileChecker answers whether a document is present in durable storage.
type FileChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// Submitter opens a session and starts one analysis job. It keeps no state of its own.
type Submitter struct {
	engine engine.Engine
	files  FileChecker
}

func NewSubmitter(e engine.Engine, files FileChecker) *Submitter {
	return &Submitter{engine: e, files: files}
}

func (s *Submitter) Submit(ctx context.Context, doc types.DocumentRef, profile types.Profile) (types.JobHandle, error) {
	if strings.TrimSpace(doc.Path) == "" {
		return types.JobHandle{}, types.Errorf(types.KindInvalidDocumentReference, "empty document path")
	}
	ok, err := s.files.Exists(ctx, doc.Path)
	if err != nil {
		return types.JobHandle{}, types.Wrap(types.KindInvalidDocumentReference, "check "+doc.Path, err)
	}
	if !ok {
		return types.JobHandle{}, types.Errorf(types.KindInvalidDocumentReference, "document %s not found in storage", doc.Path)
	}

	sessionID, err := s.engine.CreateSession(ctx)
	if err != nil {
		return types.JobHandle{}, types.Wrap(types.KindEngineFailure, "create session", err)
	}
	jobID, err := s.engine.AttachAndSubmit(ctx, sessionID, doc, profile.Instructions, profile.Rulebook)
	if err != nil {
		return types.JobHandle{}, types.Wrap(types.KindEngineFailure, "submit analysis", err)
	}

	logger.Info(ctx, "analysis submitted", "profile", profile.Name, "session_id", sessionID, "job_id", jobID, "document", doc.Path)
	return types.JobHandle{SessionID: sessionID, JobID: jobID}, nil
}
