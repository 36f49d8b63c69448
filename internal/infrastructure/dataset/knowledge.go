package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// LoadKnowledgeCSV reads the manifesto corpus: one document per row with
// columns content, row, image. A header row is detected and skipped.
func LoadKnowledgeCSV(path string) ([]domain.KnowledgeDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read knowledge csv: %w", err)
	}

	out := make([]domain.KnowledgeDocument, 0, len(rows))
	for i, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("knowledge csv line %d: expected 3 columns, got %d", i+1, len(row))
		}
		if i == 0 && isKnowledgeHeader(row) {
			continue
		}
		rowNum, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("knowledge csv line %d: row column: %w", i+1, err)
		}
		content := strings.TrimSpace(row[0])
		if content == "" {
			continue
		}
		out = append(out, domain.KnowledgeDocument{
			Content: content,
			Metadata: domain.DocumentMetadata{
				Row:   rowNum,
				Image: strings.TrimSpace(row[2]),
			},
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("knowledge csv %s holds no documents", path)
	}
	return out, nil
}

func isKnowledgeHeader(row []string) bool {
	head := strings.ToLower(strings.TrimSpace(row[0]))
	return head == "content" || head == "text"
}
