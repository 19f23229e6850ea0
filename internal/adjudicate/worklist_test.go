package adjudicate

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dhvani-data/annotation.report/internal/db"
	"github.com/dhvani-data/annotation.report/internal/iaa"
)

func TestWriteWorklist(t *testing.T) {
	rows := []Row{
		{
			TaskID: "t2",
			Text:   "yeh kya bakwas hai, seriously",
			Annotations: []db.Annotation{
				{TaskID: "t2", AnnotatorID: "ann-b", Label: 0},
				{TaskID: "t2", AnnotatorID: "ann-a", Label: 1, ToxicSubtypes: []string{"insult", "hate"}},
			},
		},
		{
			TaskID: "t1",
			Text:   "normal comment, nothing toxic",
			Annotations: []db.Annotation{
				{TaskID: "t1", AnnotatorID: "ann-a", Label: 0},
				{TaskID: "t1", AnnotatorID: "ann-b", Label: 1},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteWorklist(&buf, rows); err != nil {
		t.Fatalf("WriteWorklist failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to re-read worklist: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if diff := cmp.Diff(worklistHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	// Rows come out sorted by task ID with votes ordered by annotator.
	if records[1][0] != "t1" || records[2][0] != "t2" {
		t.Errorf("expected rows sorted by task ID, got %s then %s", records[1][0], records[2][0])
	}
	if records[1][2] != "ann-a=0; ann-b=1" {
		t.Errorf("unexpected votes cell for t1: %q", records[1][2])
	}
	if records[2][2] != "ann-a=1[insult,hate]; ann-b=0" {
		t.Errorf("unexpected votes cell for t2: %q", records[2][2])
	}

	// Adjudication columns start blank.
	for _, col := range []int{3, 4, 5, 6} {
		if records[1][col] != "" {
			t.Errorf("expected blank column %d, got %q", col, records[1][col])
		}
	}
}

func TestBuildRows(t *testing.T) {
	disagreements := []iaa.Disagreement{
		{TaskID: "t1", Labels: map[string]int{"ann-a": 0, "ann-b": 1}},
	}
	annotations := []db.Annotation{
		{TaskID: "t1", AnnotatorID: "ann-a", Label: 0},
		{TaskID: "t1", AnnotatorID: "ann-b", Label: 1},
		{TaskID: "t2", AnnotatorID: "ann-a", Label: 1},
	}
	text := map[string]string{"t1": "kuch bhi bol raha hai"}

	rows := BuildRows(disagreements, annotations, text)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].TaskID != "t1" || rows[0].Text != "kuch bhi bol raha hai" {
		t.Errorf("unexpected row: %+v", rows[0])
	}
	if len(rows[0].Annotations) != 2 {
		t.Errorf("expected 2 annotations for t1, got %d", len(rows[0].Annotations))
	}
}

func TestParseWorklist(t *testing.T) {
	input := strings.Join([]string{
		"task_id,text,votes,final_label,final_subtypes,adjudicator_id,rationale",
		`t1,"some text, with a comma",ann-a=0; ann-b=1,1,"insult,hate",adj-1,clearly targeted`,
		"t2,other text,ann-a=1; ann-b=0,0,,adj-1,",
		"t3,unresolved text,ann-a=1; ann-b=0,,,,",
	}, "\n")

	adjudications, err := ParseWorklist(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseWorklist failed: %v", err)
	}

	if len(adjudications) != 2 {
		t.Fatalf("expected 2 resolved rows, got %d", len(adjudications))
	}

	first := adjudications[0]
	if first.TaskID != "t1" || first.Label != 1 || first.AdjudicatorID != "adj-1" {
		t.Errorf("unexpected first adjudication: %+v", first)
	}
	if diff := cmp.Diff([]string{"hate", "insult"}, first.ToxicSubtypes); diff != "" {
		t.Errorf("subtypes mismatch (-want +got):\n%s", diff)
	}
	if first.Rationale != "clearly targeted" {
		t.Errorf("unexpected rationale: %q", first.Rationale)
	}

	second := adjudications[1]
	if second.TaskID != "t2" || second.Label != 0 || len(second.ToxicSubtypes) != 0 {
		t.Errorf("unexpected second adjudication: %+v", second)
	}
}

func TestParseWorklistInvalidLabel(t *testing.T) {
	input := strings.Join([]string{
		"task_id,text,votes,final_label,final_subtypes,adjudicator_id,rationale",
		"t1,text,ann-a=0,2,,adj-1,",
	}, "\n")

	if _, err := ParseWorklist(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for out-of-domain final_label")
	}
}

func TestParseWorklistMissingAdjudicator(t *testing.T) {
	input := strings.Join([]string{
		"task_id,text,votes,final_label,final_subtypes,adjudicator_id,rationale",
		"t1,text,ann-a=0,1,,,",
	}, "\n")

	if _, err := ParseWorklist(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for resolved row without adjudicator_id")
	}
}

func TestParseWorklistSubtypesOnNonToxic(t *testing.T) {
	input := strings.Join([]string{
		"task_id,text,votes,final_label,final_subtypes,adjudicator_id,rationale",
		"t1,text,ann-a=0,0,hate,adj-1,",
	}, "\n")

	if _, err := ParseWorklist(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for subtypes on a non-toxic final label")
	}
}

func TestWorklistRoundTrip(t *testing.T) {
	rows := []Row{
		{
			TaskID: "t1",
			Text:   "tum log sab pagal ho",
			Annotations: []db.Annotation{
				{TaskID: "t1", AnnotatorID: "ann-a", Label: 1, ToxicSubtypes: []string{"insult"}},
				{TaskID: "t1", AnnotatorID: "ann-b", Label: 0},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteWorklist(&buf, rows); err != nil {
		t.Fatalf("WriteWorklist failed: %v", err)
	}

	// Simulate the adjudicator filling in the blank columns.
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("failed to re-read worklist: %v", err)
	}
	records[1][3] = "1"
	records[1][4] = "insult"
	records[1][5] = "adj-9"
	records[1][6] = "abusive toward the group"

	var filled bytes.Buffer
	cw := csv.NewWriter(&filled)
	if err := cw.WriteAll(records); err != nil {
		t.Fatalf("failed to write filled worklist: %v", err)
	}

	adjudications, err := ParseWorklist(&filled)
	if err != nil {
		t.Fatalf("ParseWorklist failed: %v", err)
	}
	if len(adjudications) != 1 {
		t.Fatalf("expected 1 adjudication, got %d", len(adjudications))
	}
	got := adjudications[0]
	if got.TaskID != "t1" || got.Label != 1 || got.AdjudicatorID != "adj-9" {
		t.Errorf("unexpected adjudication: %+v", got)
	}
	if diff := cmp.Diff([]string{"insult"}, got.ToxicSubtypes); diff != "" {
		t.Errorf("subtypes mismatch (-want +got):\n%s", diff)
	}
}
