// Package ledger tracks which external items (GPX files, Strava activities)
// have already been turned into activities.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/logbook/internal/adapters/repository"
	"github.com/okian/logbook/internal/domain/model"
	"github.com/okian/logbook/pkg/logger"
	"github.com/okian/logbook/pkg/metrics"
)

// Store is the persistence the ledger needs.
type Store interface {
	IsImported(ctx context.Context, source model.Source, externalID string) (bool, error)
	RecordImport(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error)
	ListImports(ctx context.Context, source model.Source) ([]string, error)
	ImportActivity(ctx context.Context, source model.Source, externalID string, a *model.Activity) (int64, error)
}

// Ledger validates and records imports per source.
type Ledger struct {
	store Store
	log   logger.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(l logger.Logger) Option {
	return func(lg *Ledger) {
		lg.log = l
	}
}

// New creates a ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseSource turns a path segment into an importable source.
func ParseSource(s string) (model.Source, error) {
	src := model.Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Importable() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	return src, nil
}

// IsImported reports whether externalID was already recorded for source.
func (l *Ledger) IsImported(ctx context.Context, source model.Source, externalID string) (bool, error) {
	if err := checkKey(source, externalID); err != nil {
		return false, err
	}
	ok, err := l.store.IsImported(ctx, source, externalID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return ok, nil
}

// Record links externalID to an existing activity. A second record of the
// same id returns ErrAlreadyImported.
func (l *Ledger) Record(ctx context.Context, source model.Source, externalID string, activityID int64) (int64, error) {
	if err := checkKey(source, externalID); err != nil {
		return 0, err
	}
	if activityID <= 0 {
		return 0, fmt.Errorf("%w: activity id must be positive", ErrInvalidRecord)
	}
	id, err := l.store.RecordImport(ctx, source, externalID, activityID)
	if err != nil {
		return 0, l.mapErr(ctx, source, externalID, err)
	}
	metrics.RecordImportRecorded(string(source))
	return id, nil
}

// List returns every recorded external id for source, newest first.
func (l *Ledger) List(ctx context.Context, source model.Source) ([]string, error) {
	if !source.Importable() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	ids, err := l.store.ListImports(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Import creates a and its ledger row together. When externalID is already
// recorded nothing is written and ErrAlreadyImported is returned.
func (l *Ledger) Import(ctx context.Context, source model.Source, externalID string, a model.Activity) (activityID, recordID int64, err error) {
	if err := checkKey(source, externalID); err != nil {
		return 0, 0, err
	}
	a.Source = source
	a.SourceID = externalID
	a.Normalize()
	if err := a.Validate(); err != nil {
		return 0, 0, err
	}
	recordID, err = l.store.ImportActivity(ctx, source, externalID, &a)
	if err != nil {
		return 0, 0, l.mapErr(ctx, source, externalID, err)
	}
	metrics.RecordImportRecorded(string(source))
	metrics.RecordActivityCreated(string(source))
	if l.log != nil {
		l.log.Info(ctx, "activity imported",
			logger.String("source", string(source)),
			logger.String("external_id", externalID),
			logger.Int64("activity_id", a.ID))
	}
	return a.ID, recordID, nil
}

func (l *Ledger) mapErr(ctx context.Context, source model.Source, externalID string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		metrics.RecordImportDuplicate(string(source))
		if l.log != nil {
			l.log.Debug(ctx, "duplicate import", logger.String("source", string(source)), logger.String("external_id", externalID))
		}
		return fmt.Errorf("%w: %s %q", ErrAlreadyImported, source, externalID)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrActivityMissing, err)
	case errors.Is(err, repository.ErrUnknownSource):
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func checkKey(source model.Source, externalID string) error {
	if !source.Importable() {
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if strings.TrimSpace(externalID) == "" {
		return fmt.Errorf("%w: external id is required", ErrInvalidRecord)
	}
	return nil
}
