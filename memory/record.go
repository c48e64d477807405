package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// interactionChars bounds how much of the query and answer the summarizer
// sees.
const interactionChars = 200

const summarizePromptTemplate = `Summarize the exchange below in one or two
sentences, keeping the facts that would matter in a later conversation.

Question: %s
Answer: %s`

// Recorder summarizes finished interactions and persists them.
type Recorder struct {
	store  MemoryStore
	client llm.Client
	logger *slog.Logger
}

// NewRecorder builds a Recorder. client may be nil, in which case the raw
// interaction text is stored without summarization.
func NewRecorder(store MemoryStore, client llm.Client) *Recorder {
	return &Recorder{
		store:  store,
		client: client,
		logger: logging.WithComponent("memory"),
	}
}

// Record stores a query/answer pair, summarized when a model is available.
// Failures are logged and swallowed: remembering is never worth failing the
// query that was already answered.
func (r *Recorder) Record(ctx context.Context, query, answer string) {
	content := r.summarize(ctx, truncate(query, interactionChars), truncate(answer, interactionChars))
	mem := &Memory{
		ID:      GenerateMemoryID(),
		Content: content,
		Metadata: map[string]interface{}{
			"query":  query,
			"answer": truncate(answer, interactionChars),
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := r.store.AddMemory(ctx, mem); err != nil {
		r.logger.Warn("storing interaction failed", "error", err)
	}
}

func (r *Recorder) summarize(ctx context.Context, query, answer string) string {
	fallback := fmt.Sprintf("Q: %s\nA: %s", query, answer)
	if r.client == nil {
		return fallback
	}
	summary, err := llm.Complete(ctx, r.client, fmt.Sprintf(summarizePromptTemplate, query, answer))
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			r.logger.Warn("interaction summarization failed", "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(summary)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
