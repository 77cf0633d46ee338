package symptom

import (
	"strings"

	"github.com/zhouzirui/golden-hour/backend/internal/model/triage"
)

// DefaultCondition is reported when no Emergency rule fired.
const DefaultCondition = "Medical emergency"

// rule 描述一条关键词规则：anyOf 中任一命中，且 allOf 中每一组都至少命中一个。
type rule struct {
	anyOf []string
	allOf [][]string
	entry triage.Entry
}

var rules = []rule{
	{
		anyOf: []string{"chest pain", "heart"},
		entry: triage.Entry{Key: triage.Emergency, Value: "Possible Cardiac Event", Critical: true},
	},
	{
		anyOf: []string{"sweating", "sweat"},
		entry: triage.Entry{Key: triage.Symptom, Value: "Excessive sweating"},
	},
	{
		anyOf: []string{"arm"},
		allOf: [][]string{{"numb", "pain"}},
		entry: triage.Entry{Key: triage.Symptom, Value: "Arm numbness/pain", Critical: true},
	},
	{
		anyOf: []string{"breathing", "breath"},
		entry: triage.Entry{Key: triage.Symptom, Value: "Difficulty breathing", Critical: true},
	},
	{
		anyOf: []string{"heart attack"},
		entry: triage.Entry{Key: triage.Concern, Value: "Patient suspects heart attack", Critical: true},
	},
	{
		anyOf: []string{"grandfather", "father", "elderly"},
		entry: triage.Entry{Key: triage.Patient, Value: "Elderly male"},
	},
	{
		anyOf: []string{"help", "please", "quickly"},
		entry: triage.Entry{Key: triage.Urgency, Value: "Immediate response needed", Critical: true},
	},
}

// Extract maps English text onto symptom entries using the fixed rule table.
// Every rule is evaluated independently and matches are appended in table
// order. The result is never nil.
func Extract(text string) []triage.Entry {
	normalized := strings.ToLower(strings.TrimSpace(text))
	entries := make([]triage.Entry, 0, len(rules))
	if normalized == "" {
		return entries
	}

	for _, r := range rules {
		if r.matches(normalized) {
			entries = append(entries, r.entry)
		}
	}
	return entries
}

// LikelyCondition derives a condition name from fallback entries.
func LikelyCondition(entries []triage.Entry) string {
	for _, e := range entries {
		if e.Key == triage.Emergency && strings.TrimSpace(e.Value) != "" {
			return e.Value
		}
	}
	return DefaultCondition
}

func (r rule) matches(normalized string) bool {
	if !containsAny(normalized, r.anyOf) {
		return false
	}
	for _, group := range r.allOf {
		if !containsAny(normalized, group) {
			return false
		}
	}
	return true
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if word == "" {
			continue
		}
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
