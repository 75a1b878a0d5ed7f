package formatter

import (
	"encoding/json"
	"strings"

	"github.com/yildizm/GapReport/internal/backend"
)

// Record is the readable part of a finding. Findings that are not objects
// end up entirely in Observation.
type Record struct {
	Title          string `json:"title"`
	Category       string `json:"category"`
	Observation    string `json:"observation"`
	Recommendation string `json:"recommendation"`
	Actions        string `json:"actions"`
}

// keys the backend has been seen to use, first match wins
var recordKeys = map[string][]string{
	"title":          {"Title", "title"},
	"category":       {"Category", "category"},
	"observation":    {"Original Observation", "Observation", "observation", "Description", "description"},
	"recommendation": {"Recommendation", "recommendation"},
	"actions":        {"Actions", "Required Actions", "actions"},
}

// DecodeRecord reads a finding best-effort. It never fails.
func DecodeRecord(f backend.Finding) Record {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(f, &obj); err != nil || obj == nil {
		var s string
		if err := json.Unmarshal(f, &s); err == nil {
			return Record{Observation: s}
		}
		return Record{Observation: string(f)}
	}

	return Record{
		Title:          pick(obj, recordKeys["title"]),
		Category:       pick(obj, recordKeys["category"]),
		Observation:    pick(obj, recordKeys["observation"]),
		Recommendation: pick(obj, recordKeys["recommendation"]),
		Actions:        pick(obj, recordKeys["actions"]),
	}
}

func pick(obj map[string]json.RawMessage, keys []string) string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return strings.Join(list, "\n")
		}
		return strings.TrimSpace(string(raw))
	}
	return ""
}

// ActionList splits Actions into its non-empty lines
func (r Record) ActionList() []string {
	var out []string
	for _, line := range strings.Split(r.Actions, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// DisplayTitle falls back to a placeholder for untitled findings
func (r Record) DisplayTitle() string {
	if r.Title == "" || r.Title == "N/A" {
		return "Untitled finding"
	}
	return r.Title
}

// CategoryCounts tallies findings per category in first-seen order
func CategoryCounts(records []Record) ([]string, map[string]int) {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		category := r.Category
		if category == "" {
			category = "Uncategorized"
		}
		if counts[category] == 0 {
			order = append(order, category)
		}
		counts[category]++
	}
	return order, counts
}

func decodeAll(findings []backend.Finding) []Record {
	records := make([]Record, 0, len(findings))
	for _, f := range findings {
		records = append(records, DecodeRecord(f))
	}
	return records
}
