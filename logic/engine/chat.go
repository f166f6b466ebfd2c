package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tdr-review/pkg/logger"
	"tdr-review/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// chatSession is the local transcript of one session. Slices are oldest-first.
type chatSession struct {
	mu       sync.Mutex
	jobs     []types.Job
	messages []types.Message
}

// Chat emulates sessions and jobs on top of a plain chat-completion model.
// The document text is sent inline, so a job is already terminal when AttachAndSubmit returns.
type Chat struct {
	model     model.ToolCallingChatModel
	modelName string
	text      TextSource
	sessions  *cache.Cache
	now       func() time.Time
}

// NewChat keeps sessions for ttl after their last use.
func NewChat(cm model.ToolCallingChatModel, modelName string, text TextSource, ttl time.Duration) *Chat {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Chat{
		model:     cm,
		modelName: modelName,
		text:      text,
		sessions:  cache.New(ttl, ttl/2),
		now:       time.Now,
	}
}

func (c *Chat) Model() string {
	return c.modelName
}

func (c *Chat) CreateSession(_ context.Context) (string, error) {
	id := "sess_" + uuid.NewString()
	c.sessions.SetDefault(id, &chatSession{})
	return id, nil
}

func (c *Chat) session(id string) (*chatSession, error) {
	v, ok := c.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s not found or expired", id)
	}
	// refresh the ttl on every touch
	c.sessions.SetDefault(id, v)
	return v.(*chatSession), nil
}

func (c *Chat) AttachAndSubmit(ctx context.Context, sessionID string, doc types.DocumentRef, prompt, rulebook string) (string, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return "", err
	}

	content, err := c.text.ExtractPlainText(ctx, doc.Path)
	if err != nil {
		return "", err
	}

	system := prompt
	if strings.TrimSpace(rulebook) != "" {
		system += "\n\n" + rulebook
	}
	userText := fmt.Sprintf("Documento: %s\n\n%s", doc.Name, content)

	job := types.Job{
		ID:        "job_" + uuid.NewString(),
		SessionID: sessionID,
		Status:    types.JobInProgress,
		CreatedAt: c.now(),
	}
	userMsg := types.Message{
		ID:      "msg_" + uuid.NewString(),
		Author:  types.AuthorUser,
		Content: []types.ContentSegment{{Type: types.SegmentText, Text: prompt}},
	}

	sess.mu.Lock()
	sess.jobs = append(sess.jobs, job)
	sess.messages = append(sess.messages, userMsg)
	idx := len(sess.jobs) - 1
	sess.mu.Unlock()

	resp, genErr := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(userText),
	})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if genErr != nil {
		logger.Warn(ctx, "chat generation failed", "session_id", sessionID, "job_id", job.ID, "error", genErr)
		sess.jobs[idx].Status = types.JobFailed
		return job.ID, nil
	}
	sess.messages = append(sess.messages, types.Message{
		ID:      "msg_" + uuid.NewString(),
		Author:  types.AuthorAssistant,
		Content: []types.ContentSegment{{Type: types.SegmentText, Text: resp.Content}},
	})
	sess.jobs[idx].Status = types.JobCompleted
	return job.ID, nil
}

func (c *Chat) ListJobs(_ context.Context, sessionID string, limit int) ([]types.Job, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return newestFirst(sess.jobs, limit), nil
}

func (c *Chat) ListMessages(_ context.Context, sessionID string, limit int) ([]types.Message, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return newestFirst(sess.messages, limit), nil
}

// newestFirst copies up to limit items of an oldest-first slice in reverse order.
func newestFirst[T any](items []T, limit int) []T {
	n := len(items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, 0, n)
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, items[i])
	}
	return out
}
