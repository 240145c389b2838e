package index

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFileSize is the largest file the walker will hand to the
// pipeline.
const DefaultMaxFileSize = 10 * 1024 * 1024

// DefaultExtensions are the file types Discover picks up.
var DefaultExtensions = []string{
	".md", ".mdx", ".txt", ".html", ".htm",
	".pdf", ".docx", ".pptx", ".rst",
}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// Discover walks root and returns indexable files in sorted order.
// Hidden directories and common build output are skipped, as are files
// over maxFileSize. extensions defaults to DefaultExtensions.
func Discover(root string, extensions []string, maxFileSize int64) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("walk_error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !wanted[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > maxFileSize {
			slog.Warn("file_skipped_too_large",
				slog.String("path", path),
				slog.Int64("size", info.Size()))
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// IsIndexable reports whether path has a supported extension and is a
// regular file.
func IsIndexable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, e := range DefaultExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
