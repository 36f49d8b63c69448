package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/aituberdev/answerd/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadKnowledgeCSV(t *testing.T) {
	path := writeFile(t, "knowledge.csv", `content,row,image
"教育政策: タブレット配備を進めます。",1,slide_1.png
"防災対策: 備蓄を倍増します。",2,slide_2.png
`)

	docs, err := LoadKnowledgeCSV(path)
	if err != nil {
		t.Fatalf("LoadKnowledgeCSV() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[1].Metadata.Row != 2 || docs[1].Metadata.Image != "slide_2.png" {
		t.Fatalf("unexpected metadata: %#v", docs[1].Metadata)
	}
}

func TestLoadKnowledgeCSVBadRowColumn(t *testing.T) {
	path := writeFile(t, "knowledge.csv", "内容,abc,slide_1.png\n")
	if _, err := LoadKnowledgeCSV(path); err == nil {
		t.Fatalf("expected an error for a non-numeric row column")
	}
}

func TestLoadQACSV(t *testing.T) {
	path := writeFile(t, "qa.csv", `question,answer,eval_aspect,eval_slide_numbers
"政策の柱は？","5本の柱があります。",policy,"3,5"
"応援しています","ありがとうございます。",,
`)

	exemplars, err := LoadQACSV(path)
	if err != nil {
		t.Fatalf("LoadQACSV() error = %v", err)
	}
	if len(exemplars) != 2 {
		t.Fatalf("expected 2 exemplars, got %d", len(exemplars))
	}
	if len(exemplars[0].EvalSlideNumbers) != 2 || exemplars[0].EvalSlideNumbers[0] != 3 {
		t.Fatalf("unexpected slide numbers: %#v", exemplars[0].EvalSlideNumbers)
	}
	if !strings.Contains(exemplars[0].PageContent(), "question: 政策の柱は？") {
		t.Fatalf("unexpected page content: %q", exemplars[0].PageContent())
	}
}

func TestLoadQAXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	for i, row := range [][]string{
		{"question", "answer"},
		{"子育て支援は？", "家賃補助を拡充します。"},
	} {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := book.SetCellValue(sheet, ref, cell); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "qa.xlsx")
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}

	exemplars, err := LoadQAXLSX(path)
	if err != nil {
		t.Fatalf("LoadQAXLSX() error = %v", err)
	}
	if len(exemplars) != 1 || exemplars[0].Question != "子育て支援は？" {
		t.Fatalf("unexpected exemplars: %#v", exemplars)
	}
}

func TestLoadNGTable(t *testing.T) {
	path := writeFile(t, "ng.yaml", `allow:
  - 核家族
rules:
  - pattern: 核
  - pattern: 対立候補
    reply: 他の候補者についてはコメントを差し控えます。
`)

	table, err := LoadNGTable(path)
	if err != nil {
		t.Fatalf("LoadNGTable() error = %v", err)
	}
	if len(table.Rules) != 2 || len(table.Allow) != 1 {
		t.Fatalf("unexpected table: %#v", table)
	}
	if table.Rules[1].Reply == "" {
		t.Fatalf("expected the custom reply preserved")
	}
}

func TestLoadNGTableRejectsEmptyPattern(t *testing.T) {
	path := writeFile(t, "ng.yaml", "rules:\n  - pattern: \"\"\n")
	if _, err := LoadNGTable(path); err == nil {
		t.Fatalf("expected an error for an empty pattern")
	}
}

func TestLoadTemplateMessages(t *testing.T) {
	path := writeFile(t, "templates.yaml", "messages:\n  - 考え中です、少々お待ちください。\n  - いい質問ですね。\n")
	out, err := LoadTemplateMessages(path)
	if err != nil {
		t.Fatalf("LoadTemplateMessages() error = %v", err)
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out.Messages))
	}
}

func TestChunkTextRespectsParagraphs(t *testing.T) {
	text := "第一段落です。\n\n第二段落です。"
	chunks := ChunkText(text, 300)
	if len(chunks) != 1 {
		t.Fatalf("short paragraphs should pack into one chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "第一段落") || !strings.Contains(chunks[0], "第二段落") {
		t.Fatalf("unexpected chunk: %q", chunks[0])
	}
}

func TestChunkTextCutsLongParagraphAtSentenceEnd(t *testing.T) {
	sentence := strings.Repeat("あ", 120) + "。"
	text := sentence + sentence + sentence

	chunks := ChunkText(text, 300)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "。") {
		t.Fatalf("expected the first chunk to end at a sentence boundary: %q", chunks[0][len(chunks[0])-9:])
	}
	for _, chunk := range chunks {
		if len([]rune(chunk)) > 300 {
			t.Fatalf("chunk exceeds the size limit: %d runes", len([]rune(chunk)))
		}
	}
}

func TestChunkDocumentsSegmentsLongRows(t *testing.T) {
	long := strings.Repeat("政策の詳細です。", 34) + "\n\n" + strings.Repeat("追加の説明です。", 34)
	docs := []domain.KnowledgeDocument{
		{Content: "短い行です。", Metadata: domain.DocumentMetadata{Row: 1, Image: "slide_1.png"}},
		{Content: long, Metadata: domain.DocumentMetadata{Row: 2, Image: "slide_2.png"}},
	}

	out := ChunkDocuments(docs, 0)
	if len(out) < 3 {
		t.Fatalf("expected the long row segmented into multiple chunks, got %d documents", len(out))
	}
	if out[0].Content != "短い行です。" || out[0].Metadata.Row != 1 {
		t.Fatalf("expected the short row passed through intact, got %+v", out[0])
	}
	for _, doc := range out[1:] {
		if n := len([]rune(doc.Content)); n > 300 {
			t.Fatalf("chunk exceeds the size limit: %d runes", n)
		}
		if doc.Metadata.Row != 2 || doc.Metadata.Image != "slide_2.png" {
			t.Fatalf("expected chunks to inherit the source row metadata, got %+v", doc.Metadata)
		}
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	if chunks := ChunkText("   \n\n  ", 300); len(chunks) != 0 {
		t.Fatalf("expected no chunks for blank input, got %d", len(chunks))
	}
}
