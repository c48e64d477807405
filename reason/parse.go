package reason

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	thoughtPattern     = regexp.MustCompile(`(?is)thought\s*:\s*(.*?)(?:\n\s*action\s*:|$)`)
	actionPattern      = regexp.MustCompile(`(?i)action\s*:\s*([a-z_]+)`)
	actionInputPattern = regexp.MustCompile(`(?is)action\s*input\s*:\s*(.*?)(?:\n\s*confidence\s*:|$)`)

	labeledConfidence = regexp.MustCompile(`(?i)confidence\s*[:=]?\s*([0-9]*\.?[0-9]+)`)
	percentPattern    = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
	bareDecimal       = regexp.MustCompile(`\b(0?\.[0-9]+|1\.0)\b`)
)

// parseStep extracts the labeled sections of a reasoning reply. An action
// outside the known set defaults to answer.
func parseStep(reply string) Step {
	step := Step{
		Action:     ActionAnswer,
		Confidence: ExtractConfidence(reply),
	}

	if m := thoughtPattern.FindStringSubmatch(reply); m != nil {
		step.Thought = strings.TrimSpace(m[1])
	} else {
		step.Thought = strings.TrimSpace(reply)
	}

	if m := actionPattern.FindStringSubmatch(reply); m != nil {
		switch strings.ToLower(m[1]) {
		case "search":
			step.Action = ActionSearch
		case "answer":
			step.Action = ActionAnswer
		case "tool_call":
			step.Action = ActionToolCall
		}
	}

	if m := actionInputPattern.FindStringSubmatch(reply); m != nil {
		step.ActionInput = strings.TrimSpace(m[1])
	}

	return step
}

// ExtractConfidence pulls a confidence value out of free text. Tried in
// order: a labeled decimal, a percentage, a bare decimal, then a keyword
// estimate. The result is always within [0, 1].
func ExtractConfidence(text string) float64 {
	if m := labeledConfidence.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if v > 1 {
				v /= 100
			}
			return clamp01(v)
		}
	}
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clamp01(v / 100)
		}
	}
	if m := bareDecimal.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clamp01(v)
		}
	}
	return estimateFromKeywords(text)
}

func estimateFromKeywords(text string) float64 {
	lowered := strings.ToLower(text)
	for _, kw := range []string{"uncertain", "unsure", "not sure", "unclear", "no idea"} {
		if strings.Contains(lowered, kw) {
			return 0.3
		}
	}
	for _, kw := range []string{"maybe", "possibly", "might", "perhaps"} {
		if strings.Contains(lowered, kw) {
			return 0.5
		}
	}
	for _, kw := range []string{"certain", "definitely", "confident", "clearly", "sure"} {
		if strings.Contains(lowered, kw) {
			return 0.9
		}
	}
	return 0.7
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
