package staging

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ErrInvalidPath is returned for asset paths that are absolute or escape
// the source root.
var ErrInvalidPath = errors.New("invalid asset path")

// Source reads bundled assets by forward-slash relative path.
// Implementations must return the exact bytes of the asset.
type Source interface {
	ReadFile(ctx context.Context, rel string) ([]byte, error)
}

// DirSource reads assets from a plain directory.
type DirSource struct {
	root string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Root returns the directory the source reads from.
func (s *DirSource) Root() string {
	return s.root
}

// ReadFile reads rel below the source root.
func (s *DirSource) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(rel) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
}

// ZipSource reads assets out of a zip archive, optionally below a prefix
// inside the archive (an APK keeps them under "assets").
type ZipSource struct {
	archive *zip.ReadCloser
	prefix  string
}

// OpenZipSource opens the archive at archivePath.
func OpenZipSource(archivePath, prefix string) (*ZipSource, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open asset archive %s: %w", archivePath, err)
	}
	return &ZipSource{archive: rc, prefix: NormalizeSubfolder(prefix)}, nil
}

// ReadFile reads rel from the archive.
func (s *ZipSource) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(rel) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	name := rel
	if s.prefix != "" {
		name = path.Join(s.prefix, rel)
	}

	f, err := s.archive.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// Close releases the archive.
func (s *ZipSource) Close() error {
	return s.archive.Close()
}
