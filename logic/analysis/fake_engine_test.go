package analysis

import (
	"context"
	"errors"

	"tdr-review/types"
)

// fakeEngine replays scripted job listings, one per ListJobs call. The last
// script entry repeats once the script runs out.
type fakeEngine struct {
	sessionID string
	jobID     string
	script    [][]types.Job
	listErr   error
	messages  []types.Message
	msgErr    error

	createErr error
	submitErr error

	listCalls   int
	lastSession string
	submitted   []types.DocumentRef
	prompts     []string
}

func (f *fakeEngine) CreateSession(context.Context) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.sessionID, nil
}

func (f *fakeEngine) AttachAndSubmit(_ context.Context, _ string, doc types.DocumentRef, prompt, rulebook string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, doc)
	f.prompts = append(f.prompts, prompt+"|"+rulebook)
	return f.jobID, nil
}

func (f *fakeEngine) ListJobs(_ context.Context, sessionID string, _ int) ([]types.Job, error) {
	f.listCalls++
	f.lastSession = sessionID
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.script) == 0 {
		return nil, nil
	}
	i := f.listCalls - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	return f.script[i], nil
}

func (f *fakeEngine) ListMessages(context.Context, string, int) ([]types.Message, error) {
	if f.msgErr != nil {
		return nil, f.msgErr
	}
	return f.messages, nil
}

func (f *fakeEngine) Model() string { return "fake-model" }

var errRemote = errors.New("remote unavailable")

func job(id string, status types.JobStatus) types.Job {
	return types.Job{ID: id, SessionID: "sess_1", Status: status}
}

func textMessage(author string, texts ...string) types.Message {
	m := types.Message{ID: "msg_" + author, Author: author}
	for _, t := range texts {
		m.Content = append(m.Content, types.ContentSegment{Type: types.SegmentText, Text: t})
	}
	return m
}
