package eval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ragweave/ragweave/llm"
	"github.com/ragweave/ragweave/pkg/logging"
)

// RecallAtK is the fraction of relevant sources found in the first k
// retrieved sources.
func RecallAtK(retrieved, relevant []string, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	hits := intersect(topK(retrieved, k), relevant)
	return float64(hits) / float64(len(unique(relevant)))
}

// PrecisionAtK is the fraction of the first k retrieved sources that are
// relevant.
func PrecisionAtK(retrieved, relevant []string, k int) float64 {
	if k <= 0 || len(topK(retrieved, k)) == 0 {
		return 0
	}
	hits := intersect(topK(retrieved, k), relevant)
	return float64(hits) / float64(k)
}

// MRR is the reciprocal rank of the first relevant source, zero when none
// of the retrieved sources is relevant.
func MRR(retrieved, relevant []string) float64 {
	relevantSet := make(map[string]bool, len(relevant))
	for _, r := range relevant {
		relevantSet[r] = true
	}
	for rank, src := range retrieved {
		if relevantSet[src] {
			return 1.0 / float64(rank+1)
		}
	}
	return 0
}

// LexicalOverlap scores how much of the expected answer's vocabulary the
// generated answer covers. A cheap stand-in when no judge model is set.
func LexicalOverlap(answer, expected string) float64 {
	expectedWords := wordSet(expected)
	if len(expectedWords) == 0 {
		return 0
	}
	answerWords := wordSet(answer)
	overlap := 0
	for w := range expectedWords {
		if answerWords[w] {
			overlap++
		}
	}
	score := float64(overlap) / float64(len(expectedWords))
	return clamp(score)
}

// lexicalConsistency scores how much of the final answer's vocabulary
// appears in the reasoning that produced it.
func lexicalConsistency(thoughts []string, answer string) float64 {
	answerWords := wordSet(answer)
	if len(answerWords) == 0 {
		return 0
	}
	reasoningWords := wordSet(strings.Join(thoughts, " "))
	overlap := 0
	for w := range answerWords {
		if reasoningWords[w] {
			overlap++
		}
	}
	return clamp(float64(overlap) / float64(len(answerWords)))
}

// Scorer grades answers with a judge model when one is configured and falls
// back to lexical scoring otherwise. Judge failures never fail an
// evaluation run.
type Scorer struct {
	client llm.Client
	logger *slog.Logger
}

// NewScorer creates a scorer. A nil client keeps every metric lexical.
func NewScorer(client llm.Client) *Scorer {
	return &Scorer{client: client, logger: logging.WithComponent("eval")}
}

// AnswerQuality grades the generated answer against the expected one.
func (s *Scorer) AnswerQuality(ctx context.Context, answer, expected string) float64 {
	if s.client == nil {
		return LexicalOverlap(answer, expected)
	}
	prompt := fmt.Sprintf(`Rate the quality of the generated answer against the expected answer.

Expected answer:
%s

Generated answer:
%s

Reply with a single number between 0 and 1.`, expected, answer)

	score, ok := s.judge(ctx, prompt)
	if !ok {
		return LexicalOverlap(answer, expected)
	}
	return score
}

// Faithfulness grades whether the answer is supported by the given context
// passages. Without a judge model the metric cannot be computed and a
// neutral 0.7 is reported.
func (s *Scorer) Faithfulness(ctx context.Context, answer string, contexts []string) float64 {
	const neutral = 0.7
	if s.client == nil || len(contexts) == 0 {
		return neutral
	}
	limit := len(contexts)
	if limit > 3 {
		limit = 3
	}
	shown := make([]string, limit)
	for i, c := range contexts[:limit] {
		if len(c) > 500 {
			c = c[:500]
		}
		shown[i] = c
	}
	prompt := fmt.Sprintf(`Rate whether the answer is consistent with the context.

Context:
%s

Answer:
%s

Reply with a single number between 0 and 1.`, strings.Join(shown, "\n\n"), answer)

	score, ok := s.judge(ctx, prompt)
	if !ok {
		return neutral
	}
	return score
}

// Consistency grades whether the final answer follows from the recorded
// reasoning steps.
func (s *Scorer) Consistency(ctx context.Context, thoughts []string, answer string) float64 {
	if s.client == nil {
		return lexicalConsistency(thoughts, answer)
	}
	var sb strings.Builder
	for i, thought := range thoughts {
		fmt.Fprintf(&sb, "Step %d: %s\n", i+1, thought)
	}
	prompt := fmt.Sprintf(`Rate the consistency between the reasoning steps and the final answer.

Reasoning steps:
%s
Final answer:
%s

Reply with a single number between 0 and 1.`, sb.String(), answer)

	score, ok := s.judge(ctx, prompt)
	if !ok {
		return lexicalConsistency(thoughts, answer)
	}
	return score
}

func (s *Scorer) judge(ctx context.Context, prompt string) (float64, bool) {
	reply, err := llm.Complete(ctx, s.client, prompt)
	if err != nil {
		s.logger.Warn("judge call failed", "error", err)
		return 0, false
	}
	return extractScore(reply)
}

var scorePattern = regexp.MustCompile(`0?\.\d+|1\.0|[01]`)

// extractScore pulls the first 0..1 decimal out of a judge reply.
func extractScore(reply string) (float64, bool) {
	match := scorePattern.FindString(reply)
	if match == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return clamp(score), true
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func topK(items []string, k int) []string {
	if k < len(items) {
		return items[:k]
	}
	return items
}

func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

func intersect(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, it := range b {
		set[it] = true
	}
	hits := 0
	for _, it := range unique(a) {
		if set[it] {
			hits++
		}
	}
	return hits
}

func wordSet(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[strings.Trim(w, ".,!?;:\"'()")] = true
	}
	delete(words, "")
	return words
}
