package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aituberdev/answerd/internal/core/domain"
)

func TestFilterCommentsKeepsSelectedInOriginalOrder(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{`{"question_index": [2, 0]}`}}
	comments := []string{"政策を教えて", "こんにちは", "応援しています！"}

	out, err := NewCommentClassifier(gen, nil).FilterComments(context.Background(), comments)
	if err != nil {
		t.Fatalf("FilterComments() error = %v", err)
	}
	if len(out) != 2 || out[0] != "政策を教えて" || out[1] != "応援しています！" {
		t.Fatalf("expected selected comments in input order, got %#v", out)
	}
}

func TestFilterCommentsExcludesOperatorCommands(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{`{"question_index": [0]}`}}
	comments := []string{"#restart", "＃設定変更", "教育政策は？"}

	out, err := NewCommentClassifier(gen, nil).FilterComments(context.Background(), comments)
	if err != nil {
		t.Fatalf("FilterComments() error = %v", err)
	}
	if len(out) != 1 || out[0] != "教育政策は？" {
		t.Fatalf("expected only the real comment, got %#v", out)
	}
	if strings.Contains(gen.jsonPrompts[0], "#restart") || strings.Contains(gen.jsonPrompts[0], "＃設定変更") {
		t.Fatalf("operator commands must not reach the model: %q", gen.jsonPrompts[0])
	}
}

func TestFilterCommentsAllOperatorCommands(t *testing.T) {
	gen := &scriptedGenerator{}
	out, err := NewCommentClassifier(gen, nil).FilterComments(context.Background(), []string{"#a", "＃b"})
	if err != nil {
		t.Fatalf("FilterComments() error = %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result, got %#v", out)
	}
	if len(gen.jsonPrompts) != 0 {
		t.Fatalf("expected no model call for an empty batch, got %d", len(gen.jsonPrompts))
	}
}

func TestFilterCommentsDropsOutOfRangeIndices(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{`{"question_index": [0, 5, -1]}`}}
	out, err := NewCommentClassifier(gen, nil).FilterComments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("FilterComments() error = %v", err)
	}
	if len(out) != 1 || out[0] != "a" {
		t.Fatalf("expected only the valid index kept, got %#v", out)
	}
}

func TestFilterCommentsPropagatesModelFailure(t *testing.T) {
	gen := &scriptedGenerator{jsonErr: errors.New("model offline")}
	_, err := NewCommentClassifier(gen, nil).FilterComments(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrExternalCall) {
		t.Fatalf("expected external-call error, got %v", err)
	}
}

func TestFilterCommentsPropagatesMalformedReply(t *testing.T) {
	gen := &scriptedGenerator{jsonReplies: []string{"not json"}}
	_, err := NewCommentClassifier(gen, nil).FilterComments(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrMalformedModelOutput) {
		t.Fatalf("expected malformed-output error, got %v", err)
	}
}
