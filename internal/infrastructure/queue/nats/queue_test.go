package nats

import (
	"context"
	"strings"
	"testing"
)

func TestNewRejectsInvalidSubjects(t *testing.T) {
	cases := []struct {
		name    string
		subject string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"star wildcard", "documents.*"},
		{"chevron wildcard", "documents.>"},
		{"embedded space", "documents ingest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New("nats://localhost:4222", tc.subject); err == nil {
				t.Fatalf("expected subject %q to be rejected", tc.subject)
			}
		})
	}
}

func TestPublishRejectsEmptyStorageKey(t *testing.T) {
	q := &Queue{subject: "documents.ingest"}
	err := q.PublishDocumentIngested(context.Background(), "  ")
	if err == nil || !strings.Contains(err.Error(), "empty storage key") {
		t.Fatalf("expected empty-key error, got %v", err)
	}
}
