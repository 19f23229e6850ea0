// Package scorer measures per-annotator quality against the expert
// gold set: binary accuracy, per-subtype precision/recall/F1, and an
// overall ranking with review flags.
package scorer

import (
	"sort"

	"github.com/dhvani-data/annotation.report/internal/db"
)

// Annotator statuses. An annotator with no gold overlap is never given
// a fabricated score.
const (
	StatusOK               = "ok"
	StatusLowCoverage      = "low_gold_coverage"
	StatusInsufficientGold = "insufficient_gold"
)

// Config controls scoring.
type Config struct {
	// AccuracyFloor flags annotators below it for review.
	AccuracyFloor float64

	// MinGoldOverlap is the overlap at which a score is considered
	// reliable. Scores below it are still computed but reported with
	// StatusLowCoverage.
	MinGoldOverlap int

	// Subtypes is the vocabulary scored per annotator.
	Subtypes []string
}

// SubtypeScore is one annotator's precision/recall/F1 on one subtype.
type SubtypeScore struct {
	Subtype        string  `json:"subtype"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

// AnnotatorScore is one annotator's performance against the gold set.
// Precision, recall and F1 treat the toxic label as the positive class.
type AnnotatorScore struct {
	AnnotatorID      string         `json:"annotator_id"`
	TotalAnnotations int            `json:"total_annotations"`
	GoldOverlap      int            `json:"gold_overlap"`
	Correct          int            `json:"correct"`
	Accuracy         float64        `json:"accuracy"`
	Precision        float64        `json:"precision"`
	Recall           float64        `json:"recall"`
	F1               float64        `json:"f1"`
	SubtypeScores    []SubtypeScore `json:"subtype_scores,omitempty"`
	Status           string         `json:"status"`
	NeedsReview      bool           `json:"needs_review"`
	Rank             int            `json:"rank"`
}

// Dashboard is the full scoring report, ranked best first. Annotators
// without gold overlap sit unranked at the end.
type Dashboard struct {
	Scores        []AnnotatorScore `json:"scores"`
	AccuracyFloor float64          `json:"accuracy_floor"`
	GoldItems     int              `json:"gold_items"`
	Annotators    int              `json:"annotators"`
}

// Score evaluates every annotator in the input against the gold set.
// Tasks provide the task-to-item join; annotations on tasks whose item
// has no gold label are ignored.
func Score(annotations []db.Annotation, tasks []db.Task, gold []db.GoldItem, cfg Config) *Dashboard {
	itemByTask := make(map[string]string, len(tasks))
	for _, task := range tasks {
		itemByTask[task.TaskID] = task.ItemID
	}
	goldByItem := make(map[string]db.GoldItem, len(gold))
	for _, g := range gold {
		goldByItem[g.ItemID] = g
	}

	byAnnotator := make(map[string][]db.Annotation)
	for _, a := range annotations {
		byAnnotator[a.AnnotatorID] = append(byAnnotator[a.AnnotatorID], a)
	}
	annotators := make([]string, 0, len(byAnnotator))
	for id := range byAnnotator {
		annotators = append(annotators, id)
	}
	sort.Strings(annotators)

	dashboard := &Dashboard{
		AccuracyFloor: cfg.AccuracyFloor,
		GoldItems:     len(gold),
		Annotators:    len(annotators),
	}

	for _, annotatorID := range annotators {
		score := scoreAnnotator(annotatorID, byAnnotator[annotatorID], itemByTask, goldByItem, cfg)
		dashboard.Scores = append(dashboard.Scores, score)
	}

	rank(dashboard.Scores)
	return dashboard
}

func scoreAnnotator(annotatorID string, annotations []db.Annotation, itemByTask map[string]string, goldByItem map[string]db.GoldItem, cfg Config) AnnotatorScore {
	score := AnnotatorScore{AnnotatorID: annotatorID, TotalAnnotations: len(annotations)}

	tp := make(map[string]int)
	fp := make(map[string]int)
	fn := make(map[string]int)
	var binaryTP, binaryFP, binaryFN int

	for _, a := range annotations {
		itemID, ok := itemByTask[a.TaskID]
		if !ok {
			continue
		}
		g, ok := goldByItem[itemID]
		if !ok {
			continue
		}

		score.GoldOverlap++
		if a.Label == g.Label {
			score.Correct++
		}
		switch {
		case a.Label == 1 && g.Label == 1:
			binaryTP++
		case a.Label == 1 && g.Label == 0:
			binaryFP++
		case a.Label == 0 && g.Label == 1:
			binaryFN++
		}

		predicted := subtypeSet(a.Label, a.ToxicSubtypes)
		expected := subtypeSet(g.Label, g.ToxicSubtypes)
		for _, subtype := range cfg.Subtypes {
			switch {
			case predicted[subtype] && expected[subtype]:
				tp[subtype]++
			case predicted[subtype] && !expected[subtype]:
				fp[subtype]++
			case !predicted[subtype] && expected[subtype]:
				fn[subtype]++
			}
		}
	}

	if score.GoldOverlap == 0 {
		score.Status = StatusInsufficientGold
		return score
	}

	score.Accuracy = float64(score.Correct) / float64(score.GoldOverlap)
	score.NeedsReview = score.Accuracy < cfg.AccuracyFloor
	if score.GoldOverlap < cfg.MinGoldOverlap {
		score.Status = StatusLowCoverage
	} else {
		score.Status = StatusOK
	}

	if binaryTP+binaryFP > 0 {
		score.Precision = float64(binaryTP) / float64(binaryTP+binaryFP)
	}
	if binaryTP+binaryFN > 0 {
		score.Recall = float64(binaryTP) / float64(binaryTP+binaryFN)
	}
	if score.Precision+score.Recall > 0 {
		score.F1 = 2 * score.Precision * score.Recall / (score.Precision + score.Recall)
	}

	for _, subtype := range cfg.Subtypes {
		score.SubtypeScores = append(score.SubtypeScores, subtypeScore(subtype, tp[subtype], fp[subtype], fn[subtype]))
	}
	return score
}

// subtypeSet returns the effective subtype set for a label. Subtypes
// only apply to toxic labels.
func subtypeSet(label int, subtypes []string) map[string]bool {
	set := make(map[string]bool, len(subtypes))
	if label != 1 {
		return set
	}
	for _, s := range subtypes {
		set[s] = true
	}
	return set
}

func subtypeScore(subtype string, tp, fp, fn int) SubtypeScore {
	score := SubtypeScore{
		Subtype:        subtype,
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
	}
	if tp+fp > 0 {
		score.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		score.Recall = float64(tp) / float64(tp+fn)
	}
	if score.Precision+score.Recall > 0 {
		score.F1 = 2 * score.Precision * score.Recall / (score.Precision + score.Recall)
	}
	return score
}

// rank orders scored annotators by accuracy, best first, breaking ties
// by gold overlap then annotator ID. Unscored annotators follow, rank
// zero.
func rank(scores []AnnotatorScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		aScored := a.Status != StatusInsufficientGold
		bScored := b.Status != StatusInsufficientGold
		if aScored != bScored {
			return aScored
		}
		if !aScored {
			return a.AnnotatorID < b.AnnotatorID
		}
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		if a.GoldOverlap != b.GoldOverlap {
			return a.GoldOverlap > b.GoldOverlap
		}
		return a.AnnotatorID < b.AnnotatorID
	})

	next := 1
	for i := range scores {
		if scores[i].Status == StatusInsufficientGold {
			scores[i].Rank = 0
			continue
		}
		scores[i].Rank = next
		next++
	}
}
