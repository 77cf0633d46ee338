package triage

import "strings"

// Category 表示症状条目的分类，与前端展示使用的键保持一致。
type Category string

const (
	Emergency Category = "Emergency"
	Symptom   Category = "Symptom"
	Patient   Category = "Patient"
	Concern   Category = "Concern"
	Urgency   Category = "Urgency"
)

// Entry is a single extracted sign. Order inside a list is the order the
// producing extractor appended it in.
type Entry struct {
	Key      Category `json:"key"`
	Value    string   `json:"value"`
	Critical bool     `json:"critical"`
}

// ParseCategory normalizes a model supplied key. Plural or lowercase forms
// such as "symptoms" are accepted.
func ParseCategory(raw string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.TrimSuffix(normalized, "s")
	switch normalized {
	case "emergency":
		return Emergency, true
	case "symptom":
		return Symptom, true
	case "patient":
		return Patient, true
	case "concern":
		return Concern, true
	case "urgency":
		return Urgency, true
	default:
		return "", false
	}
}

// HasCritical reports whether any entry is marked critical.
func HasCritical(entries []Entry) bool {
	for _, e := range entries {
		if e.Critical {
			return true
		}
	}
	return false
}
