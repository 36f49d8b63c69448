package interactionlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aituberdev/answerd/internal/core/domain"
)

// Writer appends served interactions to hourly files in two shapes: JSONL
// for programmatic evaluation and CSV (BOM plus header) for spreadsheet
// review by campaign staff. Failures here must never fail a reply, so the
// caller treats Append errors as log-and-continue.
type Writer struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	hourKey string
	jsonl   *os.File
	csvFile *os.File
	csvw    *csv.Writer
}

var csvHeader = []string{
	"timestamp",
	"doc_retrieval_type",
	"question",
	"response",
	"rag_qa",
	"rag_knowledge",
	"metadata_row",
	"metadata_image",
	"latency_ms",
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create interaction log dir: %w", err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

func (w *Writer) Append(record domain.InteractionRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotate(w.now()); err != nil {
		return err
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode interaction record: %w", err)
	}
	if _, err := w.jsonl.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write interaction jsonl: %w", err)
	}

	row := []string{
		record.Timestamp.Format(time.RFC3339),
		string(record.RetrievalMode),
		record.Question,
		record.Response,
		record.QAContext,
		record.KnowledgeContext,
		strconv.Itoa(record.Metadata.Row),
		record.Metadata.Image,
		strconv.FormatFloat(record.LatencyMS, 'f', 3, 64),
	}
	if err := w.csvw.Write(row); err != nil {
		return fmt.Errorf("write interaction csv: %w", err)
	}
	w.csvw.Flush()
	return w.csvw.Error()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFiles()
}

// rotate opens the files for the current hour, closing the previous pair.
func (w *Writer) rotate(now time.Time) error {
	key := now.Format("2006-01-02_15")
	if key == w.hourKey && w.jsonl != nil {
		return nil
	}
	if err := w.closeFiles(); err != nil {
		return err
	}

	jsonlPath := filepath.Join(w.dir, "interactions_"+key+".jsonl")
	jsonl, err := os.OpenFile(jsonlPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", jsonlPath, err)
	}

	csvPath := filepath.Join(w.dir, "interactions_"+key+".csv")
	info, statErr := os.Stat(csvPath)
	fresh := statErr != nil || info.Size() == 0
	csvFile, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = jsonl.Close()
		return fmt.Errorf("open %s: %w", csvPath, err)
	}

	csvw := csv.NewWriter(csvFile)
	if fresh {
		// UTF-8 BOM so Excel renders Japanese text.
		if _, err := csvFile.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			_ = jsonl.Close()
			_ = csvFile.Close()
			return fmt.Errorf("write csv bom: %w", err)
		}
		if err := csvw.Write(csvHeader); err != nil {
			_ = jsonl.Close()
			_ = csvFile.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
		csvw.Flush()
	}

	w.hourKey = key
	w.jsonl = jsonl
	w.csvFile = csvFile
	w.csvw = csvw
	return nil
}

func (w *Writer) closeFiles() error {
	var firstErr error
	if w.csvw != nil {
		w.csvw.Flush()
		if err := w.csvw.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.csvFile = nil
		w.csvw = nil
	}
	if w.jsonl != nil {
		if err := w.jsonl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		w.jsonl = nil
	}
	return firstErr
}
