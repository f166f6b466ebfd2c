package analysis

import (
	"context"
	"encoding/json"
	"strings"

	"tdr-review/logic/engine"
	"tdr-review/types"
)

// Extractor recovers the engine's answer from a finished session.
type Extractor struct {
	engine engine.Engine
	limit  int
}

func NewExtractor(e engine.Engine, messageLimit int) *Extractor {
	if messageLimit <= 0 {
		messageLimit = 20
	}
	return &Extractor{engine: e, limit: messageLimit}
}

// Collect returns the text of the newest assistant message, segments joined by newlines.
func (x *Extractor) Collect(ctx context.Context, sessionID string) (string, error) {
	msgs, err := x.engine.ListMessages(ctx, sessionID, x.limit)
	if err != nil {
		return "", types.Wrap(types.KindEngineFailure, "list messages", err)
	}

	for _, m := range msgs {
		if m.Author != types.AuthorAssistant {
			continue
		}
		var parts []string
		for _, seg := range m.Content {
			if seg.Type == types.SegmentText {
				parts = append(parts, seg.Text)
			}
		}
		text := strings.Join(parts, "\n")
		if strings.TrimSpace(text) == "" {
			return "", types.Errorf(types.KindEmptyResponse, "assistant message %s has no text", m.ID)
		}
		return text, nil
	}
	return "", types.Errorf(types.KindNoAssistantResponse, "session %s has no assistant message", sessionID)
}

// ParseExtraction decodes raw strictly, retrying once without Markdown code fences.
func ParseExtraction(raw string) (*types.TdrExtraction, error) {
	tree, err := decode(raw)
	if err != nil {
		tree, err = decode(stripFences(raw))
		if err != nil {
			return nil, types.Wrap(types.KindMalformedExtraction, "decode extraction", err)
		}
	}

	tree.Normalize()
	if err := tree.Validate(); err != nil {
		return nil, types.Wrap(types.KindMalformedExtraction, "invalid extraction", err)
	}
	return tree, nil
}

func decode(s string) (*types.TdrExtraction, error) {
	var tree types.TdrExtraction
	if err := json.Unmarshal([]byte(s), &tree); err != nil {
		return nil, err
	}
	if tree.Entregables == nil {
		tree.Entregables = []types.Entregable{}
	}
	return &tree, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
