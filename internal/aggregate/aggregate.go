// Package aggregate collapses multi-annotator votes into one final
// label per task. Adjudications take precedence over raw votes; without
// one, the configured policy (majority vote or confidence weighted)
// decides, with ties broken toward the configured tie-break label.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/dhvani-data/annotation.report/internal/monitoring"
)

// Aggregation methods recorded on output labels.
const (
	MethodMajorityVote       = "majority_vote"
	MethodConfidenceWeighted = "confidence_weighted"
	MethodAdjudicated        = "adjudicated"
)

// Vote is one annotator's judgment on one task.
type Vote struct {
	TaskID      string
	AnnotatorID string
	Label       int
	Subtypes    []string
	Confidence  string
}

// Ruling is an adjudicator's authoritative label for one task. It
// supersedes all raw votes for that task.
type Ruling struct {
	TaskID   string
	Label    int
	Subtypes []string
}

// Config selects the aggregation policy and its parameters.
type Config struct {
	Method        string
	TieBreakLabel int
	WeightLow     float64
	WeightMedium  float64
	WeightHigh    float64
}

func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = MethodMajorityVote
	}
	if c.WeightLow <= 0 {
		c.WeightLow = 1
	}
	if c.WeightMedium <= 0 {
		c.WeightMedium = 2
	}
	if c.WeightHigh <= 0 {
		c.WeightHigh = 3
	}
	return c
}

// Label is the aggregated output for one task. AgreementRate is the
// fraction of raw votes matching the final label, informational even
// when an adjudication decided the label.
type Label struct {
	TaskID        string
	Label         int
	Method        string
	AgreementRate float64
	NAnnotators   int
	Confidence    string
	Subtypes      []string
	TieBroken     bool
	Adjudicated   bool
}

// EmptyAnnotationSetError reports a task with no votes. Such tasks are
// excluded from batch output, never given a default label.
type EmptyAnnotationSetError struct {
	TaskID string
}

func (e *EmptyAnnotationSetError) Error() string {
	return fmt.Sprintf("task %s has no annotations", e.TaskID)
}

// Result is the batch aggregation output. Skipped lists tasks excluded
// because they had no votes.
type Result struct {
	Labels  []Label
	Skipped []string
}

// AggregateTask collapses the votes for one task into a single label.
// A non-nil ruling wins regardless of votes or policy.
func AggregateTask(taskID string, votes []Vote, ruling *Ruling, cfg Config) (Label, error) {
	if len(votes) == 0 {
		return Label{}, &EmptyAnnotationSetError{TaskID: taskID}
	}
	cfg = cfg.withDefaults()

	if ruling != nil {
		return adjudicatedLabel(taskID, votes, ruling), nil
	}

	var label int
	var tie bool
	switch cfg.Method {
	case MethodMajorityVote:
		label, tie = majorityLabel(votes, cfg.TieBreakLabel)
	case MethodConfidenceWeighted:
		label, tie = weightedLabel(votes, cfg)
	default:
		return Label{}, fmt.Errorf("unknown aggregation method %q", cfg.Method)
	}

	return Label{
		TaskID:        taskID,
		Label:         label,
		Method:        cfg.Method,
		AgreementRate: agreementRate(votes, label),
		NAnnotators:   len(votes),
		Confidence:    modalConfidence(votes, label),
		Subtypes:      majoritySubtypes(votes, label),
		TieBroken:     tie,
	}, nil
}

// Aggregate collapses a batch of votes into one label per task, sorted
// by task ID. Tasks that appear only in rulings carry no votes and are
// skipped with a warning. The same input always yields the same output.
func Aggregate(votes []Vote, rulings []Ruling, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	if cfg.Method != MethodMajorityVote && cfg.Method != MethodConfidenceWeighted {
		return Result{}, fmt.Errorf("unknown aggregation method %q", cfg.Method)
	}

	byTask := make(map[string][]Vote)
	for _, v := range votes {
		byTask[v.TaskID] = append(byTask[v.TaskID], v)
	}
	rulingByTask := make(map[string]*Ruling, len(rulings))
	for i := range rulings {
		rulingByTask[rulings[i].TaskID] = &rulings[i]
	}

	taskIDs := make([]string, 0, len(byTask))
	for taskID := range byTask {
		taskIDs = append(taskIDs, taskID)
	}
	for taskID := range rulingByTask {
		if _, ok := byTask[taskID]; !ok {
			taskIDs = append(taskIDs, taskID)
		}
	}
	sort.Strings(taskIDs)

	var result Result
	for _, taskID := range taskIDs {
		label, err := AggregateTask(taskID, byTask[taskID], rulingByTask[taskID], cfg)
		if err != nil {
			monitoring.Logf("⚠️  skipping task %s: %v", taskID, err)
			result.Skipped = append(result.Skipped, taskID)
			continue
		}
		result.Labels = append(result.Labels, label)
	}
	return result, nil
}

func adjudicatedLabel(taskID string, votes []Vote, ruling *Ruling) Label {
	subtypes := append([]string(nil), ruling.Subtypes...)
	if ruling.Label == 0 {
		subtypes = nil
	}
	sort.Strings(subtypes)
	return Label{
		TaskID:        taskID,
		Label:         ruling.Label,
		Method:        MethodAdjudicated,
		AgreementRate: agreementRate(votes, ruling.Label),
		NAnnotators:   len(votes),
		Confidence:    "high",
		Subtypes:      subtypes,
		Adjudicated:   true,
	}
}

func majorityLabel(votes []Vote, tieBreak int) (label int, tie bool) {
	var zeros, ones int
	for _, v := range votes {
		if v.Label == 1 {
			ones++
		} else {
			zeros++
		}
	}
	switch {
	case ones > zeros:
		return 1, false
	case zeros > ones:
		return 0, false
	default:
		return tieBreak, true
	}
}

func weightedLabel(votes []Vote, cfg Config) (label int, tie bool) {
	var zeros, ones float64
	for _, v := range votes {
		w := cfg.WeightMedium
		switch v.Confidence {
		case "low":
			w = cfg.WeightLow
		case "high":
			w = cfg.WeightHigh
		}
		if v.Label == 1 {
			ones += w
		} else {
			zeros += w
		}
	}
	switch {
	case ones > zeros:
		return 1, false
	case zeros > ones:
		return 0, false
	default:
		return cfg.TieBreakLabel, true
	}
}

func agreementRate(votes []Vote, label int) float64 {
	if len(votes) == 0 {
		return 0
	}
	matching := 0
	for _, v := range votes {
		if v.Label == label {
			matching++
		}
	}
	return float64(matching) / float64(len(votes))
}

// modalConfidence returns the most common confidence among votes that
// match the final label, preferring the higher level on a count tie.
// Falls back to medium when no vote matches.
func modalConfidence(votes []Vote, label int) string {
	counts := make(map[string]int)
	for _, v := range votes {
		if v.Label != label {
			continue
		}
		switch v.Confidence {
		case "low", "medium", "high":
			counts[v.Confidence]++
		default:
			counts["medium"]++
		}
	}
	best, bestCount := "medium", 0
	for _, level := range []string{"high", "medium", "low"} {
		if counts[level] > bestCount {
			best, bestCount = level, counts[level]
		}
	}
	return best
}

// majoritySubtypes returns the subtypes selected by at least half of
// the votes matching the final label. Subtypes only apply to toxic
// labels.
func majoritySubtypes(votes []Vote, label int) []string {
	if label != 1 {
		return nil
	}
	var matching int
	counts := make(map[string]int)
	for _, v := range votes {
		if v.Label != label {
			continue
		}
		matching++
		seen := make(map[string]bool, len(v.Subtypes))
		for _, s := range v.Subtypes {
			if !seen[s] {
				seen[s] = true
				counts[s]++
			}
		}
	}
	if matching == 0 {
		return nil
	}
	var subtypes []string
	for s, count := range counts {
		if count*2 >= matching {
			subtypes = append(subtypes, s)
		}
	}
	sort.Strings(subtypes)
	return subtypes
}
