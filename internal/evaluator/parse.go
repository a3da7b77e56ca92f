package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/danielpatrickdp/handoff/internal/history"
)

type parseOutcome struct {
	details map[string]any
	score   float64
	source  history.ScoreSource
}

// parseOutput reads the judge's stdout document. Only overall_score is
// interpreted; every other field is carried through untouched.
func parseOutput(out []byte) parseOutcome {
	res := parseOutcome{
		details: map[string]any{},
		score:   NeutralScore,
		source:  history.SourceDefault,
	}

	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return res
	}

	var doc map[string]any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		res.details["error"] = fmt.Sprintf("unparseable judge output: %v", err)
		return res
	}
	if doc == nil {
		// literal null
		return res
	}
	res.details = doc

	if score, ok := validScore(doc["overall_score"]); ok {
		res.score = score
		res.source = history.SourceJudge
	}
	return res
}

func validScore(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}
