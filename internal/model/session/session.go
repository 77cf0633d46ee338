package session

import (
	"time"

	"github.com/zhouzirui/golden-hour/backend/internal/model/triage"
)

// Action is the terminal operator decision recorded for an interaction.
type Action string

const (
	Dispatched Action = "dispatched"
	Cancelled  Action = "cancelled"
	Pending    Action = "pending"
)

// Valid reports whether the action is one of the known values.
func (a Action) Valid() bool {
	switch a {
	case Dispatched, Cancelled, Pending:
		return true
	default:
		return false
	}
}

// EmergencySession is the persisted audit record of one interaction.
type EmergencySession struct {
	ID                   string          `json:"id"`
	Timestamp            time.Time       `json:"timestamp"`
	OriginalTranscript   string          `json:"originalTranscript"`
	EnglishTranslation   string          `json:"englishTranslation"`
	DetectedLanguage     string          `json:"detectedLanguage"`
	SymptomsExtracted    []triage.Entry  `json:"symptomsExtracted"`
	Action               Action          `json:"action"`
	ConfidenceScore      float64         `json:"confidenceScore"`
	DurationSeconds      *float64        `json:"durationSeconds,omitempty"`
	LikelyCondition      string          `json:"likelyCondition,omitempty"`
	Severity             triage.Severity `json:"severity,omitempty"`
	RequiredCapabilities []string        `json:"requiredCapabilities,omitempty"`
	TriageScore          *int            `json:"triageScore,omitempty"`
	TriageReasoning      string          `json:"triageReasoning,omitempty"`
}

// Draft carries the content fields of a session before the recorder assigns
// its id and timestamp.
type Draft struct {
	OriginalTranscript   string          `json:"originalTranscript"`
	EnglishTranslation   string          `json:"englishTranslation"`
	DetectedLanguage     string          `json:"detectedLanguage"`
	SymptomsExtracted    []triage.Entry  `json:"symptomsExtracted"`
	Action               Action          `json:"action"`
	ConfidenceScore      float64         `json:"confidenceScore"`
	DurationSeconds      *float64        `json:"durationSeconds,omitempty"`
	LikelyCondition      string          `json:"likelyCondition,omitempty"`
	Severity             triage.Severity `json:"severity,omitempty"`
	RequiredCapabilities []string        `json:"requiredCapabilities,omitempty"`
	TriageScore          *int            `json:"triageScore,omitempty"`
	TriageReasoning      string          `json:"triageReasoning,omitempty"`
}

// Materialize builds the full record from the draft.
func (d Draft) Materialize(id string, ts time.Time) EmergencySession {
	symptoms := make([]triage.Entry, len(d.SymptomsExtracted))
	copy(symptoms, d.SymptomsExtracted)

	var capabilities []string
	if len(d.RequiredCapabilities) > 0 {
		capabilities = append(capabilities, d.RequiredCapabilities...)
	}

	return EmergencySession{
		ID:                   id,
		Timestamp:            ts,
		OriginalTranscript:   d.OriginalTranscript,
		EnglishTranslation:   d.EnglishTranslation,
		DetectedLanguage:     d.DetectedLanguage,
		SymptomsExtracted:    symptoms,
		Action:               d.Action,
		ConfidenceScore:      d.ConfidenceScore,
		DurationSeconds:      d.DurationSeconds,
		LikelyCondition:      d.LikelyCondition,
		Severity:             d.Severity,
		RequiredCapabilities: capabilities,
		TriageScore:          d.TriageScore,
		TriageReasoning:      d.TriageReasoning,
	}
}

// Stats aggregates the stored sessions.
type Stats struct {
	Total            int `json:"total"`
	Dispatched       int `json:"dispatched"`
	Cancelled        int `json:"cancelled"`
	CriticalSymptoms int `json:"criticalSymptoms"`
}
