// Package iaa computes inter-annotator agreement over a batch of
// annotations: pairwise Cohen's kappa, subtype percent agreement, a
// pooled confusion matrix, and the disagreement set that feeds
// adjudication.
package iaa

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dhvani-data/annotation.report/internal/db"
)

// Config controls the agreement computation.
type Config struct {
	// KappaThreshold is the mean pairwise kappa required for the batch
	// to pass the go/no-go gate.
	KappaThreshold float64

	// Subtypes is the toxic subtype vocabulary scored for percent
	// agreement.
	Subtypes []string
}

// UndefinedAgreementError reports that no pairwise kappa could be
// computed for the batch.
type UndefinedAgreementError struct {
	Reason string
}

func (e *UndefinedAgreementError) Error() string {
	return "agreement undefined: " + e.Reason
}

// PairKappa is the agreement between one pair of annotators over the
// tasks both annotated. Kappa is nil when the pair is degenerate (both
// annotators constant on the same label).
type PairKappa struct {
	AnnotatorA     string   `json:"annotator_a"`
	AnnotatorB     string   `json:"annotator_b"`
	Kappa          *float64 `json:"kappa"`
	NTasks         int      `json:"n_tasks"`
	Interpretation string   `json:"interpretation"`
}

// SubtypeAgreement is the pooled percent agreement on the presence of
// one toxic subtype across all annotator pairs.
type SubtypeAgreement struct {
	Subtype     string  `json:"subtype"`
	Agreement   float64 `json:"agreement"`
	Comparisons int     `json:"comparisons"`
}

// Disagreement is a task whose annotators did not all assign the same
// label. Labels maps annotator ID to the label they assigned.
type Disagreement struct {
	TaskID string         `json:"task_id"`
	Labels map[string]int `json:"labels"`
}

// Report is the full agreement report for a batch.
type Report struct {
	NTasks            int                `json:"n_tasks"`
	NAnnotators       int                `json:"n_annotators"`
	Annotators        []string           `json:"annotators"`
	PairKappas        []PairKappa        `json:"pairwise_kappa"`
	MeanKappa         float64            `json:"mean_kappa"`
	Threshold         float64            `json:"threshold"`
	Pass              bool               `json:"pass"`
	Interpretation    string             `json:"interpretation"`
	RawAgreement      float64            `json:"raw_agreement"`
	ConfusionMatrix   [2][2]int          `json:"confusion_matrix"`
	SubtypeAgreements []SubtypeAgreement `json:"subtype_agreement"`
	Disagreements     []Disagreement     `json:"disagreements"`
}

// Compute builds the agreement report for a set of annotations,
// typically one pilot batch. At least two annotators with one
// co-annotated task are required; pairs whose kappa is undefined are
// excluded from the mean, and if every pair is undefined an
// UndefinedAgreementError is returned.
func Compute(annotations []db.Annotation, cfg Config) (*Report, error) {
	// Group labels by task, then index annotators.
	byTask := make(map[string]map[string]db.Annotation)
	annotatorSet := make(map[string]bool)
	for _, a := range annotations {
		if byTask[a.TaskID] == nil {
			byTask[a.TaskID] = make(map[string]db.Annotation)
		}
		byTask[a.TaskID][a.AnnotatorID] = a
		annotatorSet[a.AnnotatorID] = true
	}

	annotators := make([]string, 0, len(annotatorSet))
	for id := range annotatorSet {
		annotators = append(annotators, id)
	}
	sort.Strings(annotators)

	if len(annotators) < 2 {
		return nil, &UndefinedAgreementError{Reason: "fewer than two annotators"}
	}

	taskIDs := make([]string, 0, len(byTask))
	for id := range byTask {
		taskIDs = append(taskIDs, id)
	}
	sort.Strings(taskIDs)

	report := &Report{
		NTasks:      len(byTask),
		NAnnotators: len(annotators),
		Annotators:  annotators,
		Threshold:   cfg.KappaThreshold,
	}

	var kappas []float64
	pooledAgree, pooledTotal := 0, 0
	subtypeAgree := make(map[string]int)
	subtypeTotal := make(map[string]int)

	for i := 0; i < len(annotators); i++ {
		for j := i + 1; j < len(annotators); j++ {
			a, b := annotators[i], annotators[j]
			var labelsA, labelsB []int
			for _, taskID := range taskIDs {
				annA, okA := byTask[taskID][a]
				annB, okB := byTask[taskID][b]
				if !okA || !okB {
					continue
				}
				labelsA = append(labelsA, annA.Label)
				labelsB = append(labelsB, annB.Label)

				if annA.Label == annB.Label {
					pooledAgree++
				}
				pooledTotal++
				if annA.Label >= 0 && annA.Label <= 1 && annB.Label >= 0 && annB.Label <= 1 {
					report.ConfusionMatrix[annA.Label][annB.Label]++
				}

				for _, subtype := range cfg.Subtypes {
					if hasSubtype(annA.ToxicSubtypes, subtype) == hasSubtype(annB.ToxicSubtypes, subtype) {
						subtypeAgree[subtype]++
					}
					subtypeTotal[subtype]++
				}
			}
			if len(labelsA) == 0 {
				continue
			}

			kappa := CohenKappa(labelsA, labelsB)
			pair := PairKappa{
				AnnotatorA:     a,
				AnnotatorB:     b,
				NTasks:         len(labelsA),
				Interpretation: Interpret(kappa),
			}
			if !math.IsNaN(kappa) {
				k := kappa
				pair.Kappa = &k
				kappas = append(kappas, kappa)
			}
			report.PairKappas = append(report.PairKappas, pair)
		}
	}

	if len(kappas) == 0 {
		return nil, &UndefinedAgreementError{Reason: "no annotator pair with a defined kappa"}
	}

	report.MeanKappa = stat.Mean(kappas, nil)
	report.Pass = report.MeanKappa >= cfg.KappaThreshold
	report.Interpretation = Interpret(report.MeanKappa)
	if pooledTotal > 0 {
		report.RawAgreement = float64(pooledAgree) / float64(pooledTotal)
	}

	for _, subtype := range cfg.Subtypes {
		entry := SubtypeAgreement{Subtype: subtype, Comparisons: subtypeTotal[subtype]}
		if entry.Comparisons > 0 {
			entry.Agreement = float64(subtypeAgree[subtype]) / float64(entry.Comparisons)
		}
		report.SubtypeAgreements = append(report.SubtypeAgreements, entry)
	}

	for _, taskID := range taskIDs {
		labels := byTask[taskID]
		if len(labels) < 2 {
			continue
		}
		first, mixed := -1, false
		for _, ann := range labels {
			if first == -1 {
				first = ann.Label
			} else if ann.Label != first {
				mixed = true
				break
			}
		}
		if !mixed {
			continue
		}
		d := Disagreement{TaskID: taskID, Labels: make(map[string]int, len(labels))}
		for annotator, ann := range labels {
			d.Labels[annotator] = ann.Label
		}
		report.Disagreements = append(report.Disagreements, d)
	}

	return report, nil
}

func hasSubtype(subtypes []string, subtype string) bool {
	for _, s := range subtypes {
		if s == subtype {
			return true
		}
	}
	return false
}
