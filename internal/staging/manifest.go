package staging

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ManifestFile is the manifest name at the root of every asset source.
// It lists one forward-slash relative path per line.
const ManifestFile = "StreamingAssetsHierarchy.txt"

// ParseManifest splits manifest text into entries.
// Both \n and \r\n line endings are accepted; blank lines are dropped.
// Backslash separators are converted to forward slashes.
func ParseManifest(data []byte) []string {
	lines := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == '\r' || r == '\n'
	})

	entries := make([]string, len(lines))
	for i, line := range lines {
		entries[i] = strings.ReplaceAll(line, `\`, "/")
	}
	return entries
}

// NormalizeSubfolder converts backslashes to forward slashes, trims
// surrounding whitespace and strips trailing slashes.
func NormalizeSubfolder(subfolder string) string {
	s := strings.ReplaceAll(subfolder, `\`, "/")
	s = strings.TrimSpace(s)
	return strings.TrimRight(s, "/")
}

// FilterManifest returns the entries equal to subfolder or under it, in
// manifest order. An empty subfolder matches every entry.
func FilterManifest(entries []string, subfolder string) []string {
	prefix := NormalizeSubfolder(subfolder)

	matched := make([]string, 0, len(entries))
	for _, entry := range entries {
		if prefix == "" || entry == prefix || strings.HasPrefix(entry, prefix+"/") {
			matched = append(matched, entry)
		}
	}
	return matched
}

// DestinationPath maps a manifest entry onto root, dropping the subfolder
// prefix when the entry carries it. An entry naming the subfolder itself is
// placed at root under its base name. Entries that are not valid relative
// paths, or that would land outside root, return ErrInvalidPath.
func DestinationPath(subfolder, root, entry string) (string, error) {
	if !fs.ValidPath(entry) || entry == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, entry)
	}

	prefix := NormalizeSubfolder(subfolder)
	suffix := entry

	switch {
	case prefix == "":
	case suffix == prefix:
		suffix = path.Base(suffix)
	case strings.HasPrefix(suffix, prefix+"/"):
		suffix = suffix[len(prefix)+1:]
	}

	dst := filepath.Join(root, filepath.FromSlash(suffix))
	rel, err := filepath.Rel(root, dst)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, entry)
	}
	return dst, nil
}

// GenerateManifest walks root and returns every regular file below it as a
// sorted forward-slash relative path. The manifest itself is excluded.
func GenerateManifest(root string) ([]string, error) {
	var entries []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestFile {
			return nil
		}

		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(entries)
	return entries, nil
}

// WriteManifest regenerates the manifest file at the root of dir and
// returns the entries it wrote.
func WriteManifest(dir string) ([]string, error) {
	entries, err := GenerateManifest(dir)
	if err != nil {
		return nil, err
	}

	if err := writeFileAtomic(filepath.Join(dir, ManifestFile), encodeManifest(entries)); err != nil {
		return nil, err
	}
	return entries, nil
}

func encodeManifest(entries []string) []byte {
	if len(entries) == 0 {
		return nil
	}
	return []byte(strings.Join(entries, "\n") + "\n")
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers only ever observe a complete file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".murmur-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
