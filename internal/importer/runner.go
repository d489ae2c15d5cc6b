// Package importer uploads a directory of GPX tracks to a running logbook.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/logbook/pkg/logger"
)

// Run uploads every .gpx file under cfg.Dir that the service's GPX ledger
// does not already hold and, when asked, runs an award pass. Per-file
// failures are counted, not returned.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	log := logger.Named("importer")

	if cfg.BaseURL == "" || cfg.Dir == "" {
		return stats, fmt.Errorf("%w: base url and dir are required", ErrInvalidArgs)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	files, shadowed, err := findTracks(cfg.Dir)
	if err != nil {
		return stats, err
	}
	stats.Files = len(files)
	stats.Shadowed = len(shadowed)
	for _, path := range shadowed {
		log.Warn(ctx, "track name already taken, not uploading",
			logger.String("file", path),
			logger.String("name", filepath.Base(path)))
	}

	c := newClient(base, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, err
	}
	known, err := c.known(ctx)
	if err != nil {
		return stats, fmt.Errorf("list imports: %w", err)
	}
	pending := make([]string, 0, len(files))
	for _, path := range files {
		if _, ok := known[filepath.Base(path)]; ok {
			stats.Skipped++
			continue
		}
		pending = append(pending, path)
	}
	log.Info(ctx, "uploading tracks",
		logger.Int("files", len(files)),
		logger.Int("skipped", stats.Skipped),
		logger.Int("workers", cfg.Workers))

	var imported, duplicate, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, path := range pending {
		g.Go(func() error {
			res, err := c.upload(gctx, path)
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
				log.Warn(gctx, "upload failed", logger.String("file", path), logger.Error(err))
			case res == outcomeDuplicate:
				atomic.AddInt64(&duplicate, 1)
				if cfg.Verbose {
					log.Info(gctx, "already imported", logger.String("file", path))
				}
			default:
				atomic.AddInt64(&imported, 1)
				if cfg.Verbose {
					log.Info(gctx, "imported", logger.String("file", path))
				}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	stats.Imported = int(imported)
	stats.Duplicate = int(duplicate)
	stats.Failed = int(failed)

	if cfg.ProcessAwards && stats.Imported > 0 {
		granted, err := c.processAwards(ctx)
		if err != nil {
			return stats, fmt.Errorf("process awards: %w", err)
		}
		stats.Granted = granted
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "import finished",
		logger.Int("files", stats.Files),
		logger.Int("skipped", stats.Skipped),
		logger.Int("shadowed", stats.Shadowed),
		logger.Int("imported", stats.Imported),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("granted", stats.Granted),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// findTracks lists .gpx files under dir, sorted for stable upload order.
// The ledger keys on the base name, so only the first path per base name is
// returned; later ones come back as shadowed.
func findTracks(dir string) (files, shadowed []string, err error) {
	var all []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".gpx") {
			all = append(all, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}
	sort.Strings(all)

	taken := make(map[string]struct{}, len(all))
	for _, path := range all {
		name := filepath.Base(path)
		if _, ok := taken[name]; ok {
			shadowed = append(shadowed, path)
			continue
		}
		taken[name] = struct{}{}
		files = append(files, path)
	}
	return files, shadowed, nil
}
