package triage

import (
	"fmt"
	"strings"

	triagemodel "github.com/zhouzirui/golden-hour/backend/internal/model/triage"
)

// FallbackCloser ends every summary built without an AI assessment.
const FallbackCloser = "Immediate medical attention required."

// BuildSummary renders the operator summary. result is nil on the fallback path.
func BuildSummary(condition string, symptoms []triagemodel.Entry, result *triagemodel.Result) string {
	sentences := []string{fmt.Sprintf("%s detected.", condition)}

	var critical, noted []string
	for _, s := range symptoms {
		switch {
		case s.Critical:
			critical = append(critical, s.Value)
		case s.Key != triagemodel.Patient && s.Key != triagemodel.Urgency:
			noted = append(noted, s.Value)
		}
	}
	if len(critical) > 0 {
		sentences = append(sentences, fmt.Sprintf("Critical signs: %s.", strings.Join(critical, ", ")))
	}
	if len(noted) > 0 {
		sentences = append(sentences, fmt.Sprintf("Also noted: %s.", strings.Join(noted, ", ")))
	}

	if result == nil {
		sentences = append(sentences, FallbackCloser)
		return strings.Join(sentences, " ")
	}

	sentences = append(sentences, fmt.Sprintf("Severity: %s.", result.Severity))
	if len(result.RequiredCapabilities) > 0 {
		caps := make([]string, 0, len(result.RequiredCapabilities))
		for _, c := range result.RequiredCapabilities {
			caps = append(caps, strings.ReplaceAll(c, "_", " "))
		}
		sentences = append(sentences, fmt.Sprintf("Requires: %s.", strings.Join(caps, ", ")))
	}
	return strings.Join(sentences, " ")
}
