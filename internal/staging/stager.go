// Package staging copies bundled voice assets out of a read-only source
// (directory, zip archive or NATS object store) into writable storage.
//
// Every source carries a manifest (ManifestFile) listing its files. A
// subfolder of the manifest is copied file by file, in manifest order, and
// files already present at the destination are left alone.
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrManifestUnavailable is returned when the manifest cannot be read.
	// Staging is impossible; callers must not treat it as "nothing to copy".
	ErrManifestUnavailable = errors.New("asset manifest unavailable")
	// ErrCopyFailed is returned when a single asset could not be copied.
	ErrCopyFailed = errors.New("asset copy failed")
)

// Report summarises one CopyDirectory run.
type Report struct {
	Subfolder string
	Root      string
	Matched   int
	Copied    int
	Skipped   int
	Failed    int
}

// Target is one subfolder to stage and the directory it is staged into.
type Target struct {
	Subfolder string
	Root      string
}

// Stager copies assets from a Source to local directories.
type Stager struct {
	source Source
	logger *slog.Logger
}

// NewStager creates a stager reading from source.
func NewStager(source Source, logger *slog.Logger) *Stager {
	return &Stager{source: source, logger: logger}
}

// ListHierarchy returns the manifest entries under subfolder, in manifest
// order. An empty subfolder returns the whole manifest. A read failure
// returns ErrManifestUnavailable; an empty result means the subfolder has
// no files.
func (s *Stager) ListHierarchy(ctx context.Context, subfolder string) ([]string, error) {
	data, err := s.source.ReadFile(ctx, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnavailable, err)
	}
	return FilterManifest(ParseManifest(data), subfolder), nil
}

// CopyFile copies the asset rel to dst. An existing dst is treated as
// already staged and the source is not read.
func (s *Stager) CopyFile(ctx context.Context, rel, dst string) error {
	_, err := s.copyFile(ctx, rel, dst)
	return err
}

func (s *Stager) copyFile(ctx context.Context, rel, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		s.logger.Debug("asset already staged, skipping", "asset", rel, "dest", dst)
		return false, nil
	}

	data, err := s.source.ReadFile(ctx, rel)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCopyFailed, rel, err)
	}

	parent := filepath.Dir(dst)
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		s.logger.Debug("creating directory", "dir", parent)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCopyFailed, rel, err)
	}

	if err := writeFileAtomic(dst, data); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCopyFailed, rel, err)
	}

	s.logger.Debug("asset copied", "asset", rel, "dest", dst, "bytes", len(data))
	return true, nil
}

// CopyDirectory stages every manifest entry under subfolder into root.
// Entries are copied one at a time in manifest order. A failed entry is
// logged and counted; the remaining entries are still attempted. The
// returned error is non-nil only when the manifest is unavailable or ctx
// is cancelled.
func (s *Stager) CopyDirectory(ctx context.Context, subfolder, root string) (Report, error) {
	report := Report{Subfolder: NormalizeSubfolder(subfolder), Root: root}

	entries, err := s.ListHierarchy(ctx, subfolder)
	if err != nil {
		s.logger.Error("could not retrieve asset hierarchy", "subfolder", report.Subfolder, "error", err)
		return report, err
	}
	report.Matched = len(entries)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dst, err := DestinationPath(subfolder, root, entry)
		if err != nil {
			report.Failed++
			s.logger.Error("refusing to stage asset", "asset", entry, "root", root, "error", err)
			continue
		}

		copied, err := s.copyFile(ctx, entry, dst)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("failed to stage asset", "asset", entry, "dest", dst, "error", err)
		case copied:
			report.Copied++
		default:
			report.Skipped++
		}
	}

	s.logger.Info("asset directory staged",
		"subfolder", report.Subfolder,
		"root", root,
		"matched", report.Matched,
		"copied", report.Copied,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	return report, nil
}

// StageAll stages several targets concurrently. Each target is still copied
// sequentially. The first manifest or context error cancels the rest.
func (s *Stager) StageAll(ctx context.Context, targets []Target) ([]Report, error) {
	reports := make([]Report, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			report, err := s.CopyDirectory(gctx, target.Subfolder, target.Root)
			reports[i] = report
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
