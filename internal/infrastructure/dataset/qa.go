package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// LoadQACSV reads curated question/answer exemplars with columns
// question, answer and optionally eval_aspect, eval_slide_numbers.
func LoadQACSV(path string) ([]domain.QAExemplar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open qa csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read qa csv: %w", err)
	}
	return qaFromRows(rows, path)
}

// LoadQAXLSX reads the same exemplar table from the first sheet of an Excel
// workbook, which is how the QA set is maintained by campaign staff.
func LoadQAXLSX(path string) ([]domain.QAExemplar, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open qa xlsx: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("qa xlsx %s has no sheets", path)
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read qa xlsx sheet %s: %w", sheets[0], err)
	}
	return qaFromRows(rows, path)
}

func qaFromRows(rows [][]string, path string) ([]domain.QAExemplar, error) {
	out := make([]domain.QAExemplar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "question") {
			continue
		}
		question := strings.TrimSpace(row[0])
		answer := strings.TrimSpace(row[1])
		if question == "" || answer == "" {
			continue
		}

		exemplar := domain.QAExemplar{Question: question, Answer: answer}
		if len(row) > 2 {
			exemplar.EvalAspect = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			slides, err := parseSlideNumbers(row[3])
			if err != nil {
				return nil, fmt.Errorf("qa row %d: %w", i+1, err)
			}
			exemplar.EvalSlideNumbers = slides
		}
		out = append(out, exemplar)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("qa file %s holds no exemplars", path)
	}
	return out, nil
}

// parseSlideNumbers accepts "3" or "3,5,7".
func parseSlideNumbers(cell string) ([]int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	parts := strings.Split(cell, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("slide number %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
