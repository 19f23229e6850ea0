package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dhvani-data/annotation.report/internal/schema"
)

// csvHeader lists the tabular columns, one per record field with the
// metadata flattened.
var csvHeader = []string{
	"id", "text", "source", "language", "split", "code_mixed",
	"final_label", "aggregation_method", "final_subtypes",
	"confidence", "agreement_rate", "n_annotators", "notes",
}

func marshalCSV(records []schema.Record) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Text,
			rec.Source,
			rec.Language,
			rec.Split,
			strconv.FormatBool(rec.CodeMixed),
			strconv.Itoa(rec.FinalLabel),
			rec.Method,
			strings.Join(rec.Metadata.FinalSubtypes, ","),
			rec.Metadata.Confidence,
			strconv.FormatFloat(rec.Metadata.AgreementRate, 'g', -1, 64),
			strconv.Itoa(rec.Metadata.NAnnotators),
			rec.Metadata.Notes,
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row for %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadJSONL parses a line-delimited export back into records.
func ReadJSONL(r io.Reader) ([]schema.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var records []schema.Record
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec schema.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSONL line %d: %w", line, err)
		}
		normalizeRecord(&rec)
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSONL: %w", err)
	}
	return records, nil
}

// ReadCSV parses a tabular export back into records.
func ReadCSV(r io.Reader) ([]schema.Record, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV export has no header row")
	}
	if !slices.Equal(rows[0], csvHeader) {
		return nil, fmt.Errorf("unexpected CSV header: %v", rows[0])
	}

	var records []schema.Record
	for i, row := range rows[1:] {
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCSVRow(row []string) (schema.Record, error) {
	var rec schema.Record
	if len(row) != len(csvHeader) {
		return rec, fmt.Errorf("got %d columns, want %d", len(row), len(csvHeader))
	}

	codeMixed, err := strconv.ParseBool(row[5])
	if err != nil {
		return rec, fmt.Errorf("invalid code_mixed %q: %w", row[5], err)
	}
	finalLabel, err := strconv.Atoi(row[6])
	if err != nil {
		return rec, fmt.Errorf("invalid final_label %q: %w", row[6], err)
	}
	agreement, err := strconv.ParseFloat(row[10], 64)
	if err != nil {
		return rec, fmt.Errorf("invalid agreement_rate %q: %w", row[10], err)
	}
	nAnnotators, err := strconv.Atoi(row[11])
	if err != nil {
		return rec, fmt.Errorf("invalid n_annotators %q: %w", row[11], err)
	}

	var subtypes []string
	for _, s := range strings.Split(row[8], ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			subtypes = append(subtypes, s)
		}
	}

	rec = schema.Record{
		ID:         row[0],
		Text:       row[1],
		Source:     row[2],
		Language:   row[3],
		Split:      row[4],
		CodeMixed:  codeMixed,
		FinalLabel: finalLabel,
		Method:     row[7],
		Metadata: schema.Metadata{
			FinalSubtypes: subtypes,
			Confidence:    row[9],
			AgreementRate: agreement,
			NAnnotators:   nAnnotators,
			Notes:         row[12],
		},
	}
	return rec, nil
}
