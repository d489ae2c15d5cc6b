package service

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/logbook/internal/domain/gpx"
	"github.com/okian/logbook/internal/domain/ledger"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/metrics"
)

// ImportResult is what an import creates.
type ImportResult struct {
	ID         int64         `json:"id"`
	ActivityID int64         `json:"activity_id"`
	Analysis   *gpx.Analysis `json:"analysis,omitempty"`
}

// ListImports returns recorded external ids for source, newest first.
func (s *Service) ListImports(ctx context.Context, source model.Source) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, source)
}

// IsImported reports whether externalID is recorded for source.
func (s *Service) IsImported(ctx context.Context, source model.Source, externalID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.ledger.IsImported(ctx, source, externalID)
}

// RecordImport links externalID to an existing activity.
func (s *Service) RecordImport(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.ledger.Record(ctx, source, externalID, activityID)
}

// ImportGPX parses and analyzes a GPX upload and stores it as an activity
// keyed by filename.
func (s *Service) ImportGPX(ctx context.Context, filename string, r io.Reader) (ImportResult, error) {
	if err := s.ready(); err != nil {
		return ImportResult{}, err
	}
	if filename == "" {
		return ImportResult{}, fmt.Errorf("%w: filename is required", ErrInvalidArgument)
	}
	// duplicates are rejected before the body is parsed
	seen, err := s.ledger.IsImported(ctx, model.SourceGPX, filename)
	if err != nil {
		return ImportResult{}, err
	}
	if seen {
		metrics.RecordImportDuplicate(string(model.SourceGPX))
		return ImportResult{}, fmt.Errorf("%w: gpx %q", ledger.ErrAlreadyImported, filename)
	}

	track, err := gpx.Parse(r, filename)
	if err != nil {
		return ImportResult{}, err
	}
	analysis, err := gpx.Analyze(track)
	if err != nil {
		return ImportResult{}, err
	}
	activityID, recordID, err := s.ledger.Import(ctx, model.SourceGPX, filename, gpx.ToActivity(analysis, filename, s.now()))
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{ID: recordID, ActivityID: activityID, Analysis: &analysis}, nil
}
