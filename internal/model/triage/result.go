package triage

import (
	"errors"
	"strings"
)

var (
	// ErrUnavailable means the triage capability is not configured.
	ErrUnavailable = errors.New("triage capability unavailable")
	// ErrNoAnswer is the explicit "fallback" signal of a configured capability.
	ErrNoAnswer = errors.New("triage capability declined to answer")
)

// Severity 表示分诊严重程度。
type Severity string

const (
	Critical Severity = "CRITICAL"
	High     Severity = "HIGH"
	Moderate Severity = "MODERATE"
	Low      Severity = "LOW"
)

// Rank orders severities for display, CRITICAL highest. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case Critical:
		return 4
	case High:
		return 3
	case Moderate:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// ParseSeverity accepts any casing of the four known levels.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(strings.ToUpper(strings.TrimSpace(raw)))
	if s.Rank() == 0 {
		return "", false
	}
	return s, true
}

const (
	MinScore = 1
	MaxScore = 10
)

// Result is the structured answer of the AI triage capability.
type Result struct {
	Symptoms             []Entry  `json:"symptoms"`
	LikelyCondition      string   `json:"likelyCondition"`
	Severity             Severity `json:"severity"`
	RequiredCapabilities []string `json:"requiredCapabilities"`
	TriageScore          int      `json:"triageScore"`
	Reasoning            string   `json:"reasoning"`
}

// ClampScore keeps a score inside 1..10.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
