package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/core/ports"
)

type historyFake struct {
	records []domain.ConversionRecord
	err     error
	limit   int
}

func (f *historyFake) RecordConversion(_ context.Context, record domain.ConversionRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *historyFake) ListRecentConversions(_ context.Context, limit int) ([]domain.ConversionRecord, error) {
	f.limit = limit
	return f.records, nil
}

type eventsFake struct {
	published []domain.ConversionRecord
	err       error
}

func (f *eventsFake) PublishConversionHandled(_ context.Context, record domain.ConversionRecord) error {
	f.published = append(f.published, record)
	return f.err
}

func TestAuditedConversionRecordsSuccess(t *testing.T) {
	engine := &engineFake{out: []byte("<p>done</p>")}
	history := &historyFake{}
	events := &eventsFake{}
	svc := NewAuditedConversionService(NewConvertDocumentUseCase(engine, nil, 0), history, events, nil)

	doc, err := svc.Convert(context.Background(), convertInput("notes.md", "text/markdown", "# Notes\n", domain.FormatHTML))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if len(history.records) != 1 || len(events.published) != 1 {
		t.Fatalf("expected one record and one event, got %d and %d", len(history.records), len(events.published))
	}

	rec := history.records[0]
	if rec.ID == "" || rec.Outcome != domain.OutcomeSucceeded {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.SourceFormat != domain.FormatMarkdown || rec.TargetFormat != domain.FormatHTML {
		t.Fatalf("unexpected formats: %+v", rec)
	}
	if rec.InputBytes != int64(len("# Notes\n")) || rec.OutputBytes != int64(len(doc.Data)) {
		t.Fatalf("unexpected sizes: %+v", rec)
	}
	if events.published[0].ID != rec.ID {
		t.Fatalf("event and record ids differ")
	}
}

func TestAuditedConversionClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		engine *engineFake
		input  ports.ConvertInput
		want   domain.ConversionOutcome
	}{
		{
			name:   "validation",
			engine: &engineFake{},
			input:  convertInput("../etc/passwd.txt", "text/plain", "x", domain.FormatPDF),
			want:   domain.OutcomeRejected,
		},
		{
			name:   "engine",
			engine: &engineFake{err: errors.New("boom")},
			input:  convertInput("a.txt", "text/plain", "hello", domain.FormatPDF),
			want:   domain.OutcomeFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &historyFake{}
			svc := NewAuditedConversionService(NewConvertDocumentUseCase(tt.engine, nil, 0), history, nil, nil)

			if _, err := svc.Convert(context.Background(), tt.input); err == nil {
				t.Fatalf("expected error")
			}
			if len(history.records) != 1 {
				t.Fatalf("expected one record, got %d", len(history.records))
			}
			if got := history.records[0]; got.Outcome != tt.want || got.ErrorMessage == "" {
				t.Fatalf("unexpected record: %+v", got)
			}
		})
	}
}

func TestAuditedConversionIgnoresSinkErrors(t *testing.T) {
	engine := &engineFake{out: []byte("ok")}
	svc := NewAuditedConversionService(
		NewConvertDocumentUseCase(engine, nil, 0),
		&historyFake{err: errors.New("db down")},
		&eventsFake{err: errors.New("nats down")},
		nil,
	)

	if _, err := svc.Convert(context.Background(), convertInput("a.txt", "text/plain", "hello", domain.FormatMarkdown)); err != nil {
		t.Fatalf("sink failures must not fail the conversion: %v", err)
	}
}

func TestAuditedConversionListRecentClampsLimit(t *testing.T) {
	history := &historyFake{}
	svc := NewAuditedConversionService(NewConvertDocumentUseCase(&engineFake{}, nil, 0), history, nil, nil)

	if _, err := svc.ListRecent(context.Background(), 0); err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if history.limit != defaultHistoryLimit {
		t.Fatalf("expected default limit, got %d", history.limit)
	}
	_, _ = svc.ListRecent(context.Background(), 10_000)
	if history.limit != maxHistoryLimit {
		t.Fatalf("expected clamped limit, got %d", history.limit)
	}

	empty := NewAuditedConversionService(nil, nil, nil, nil)
	records, err := empty.ListRecent(context.Background(), 5)
	if err != nil || records == nil || len(records) != 0 {
		t.Fatalf("expected empty history, got %v %v", records, err)
	}
}
