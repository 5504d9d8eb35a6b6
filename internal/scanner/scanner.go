// Package scanner lists indexable documents and classifies them against the
// recorded index state.
//
// Change detection is two-stage: a matching modification time means unchanged
// without reading the file; a differing one triggers a streaming SHA-256 of the
// content, so a touched but byte-identical file still counts as unchanged.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/localrag-mcp/pkg/types"
)

// FileStat is the listing-time state of one present file.
type FileStat struct {
	AbsPath string
	ModTime float64
	Size    int64
}

// Config selects which files are indexed.
type Config struct {
	Extensions  []string // matched as case-insensitive suffixes
	ExcludeDirs []string // matched against whole path segments
}

// Scanner walks a docs root and detects changes. It holds no mutable state.
type Scanner struct {
	root    string
	exts    []string
	exclude map[string]bool
	logger  zerolog.Logger
}

// New creates a Scanner rooted at root.
func New(root string, cfg Config, logger zerolog.Logger) *Scanner {
	exts := make([]string, 0, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		if e = strings.ToLower(e); e != "" {
			exts = append(exts, e)
		}
	}
	exclude := make(map[string]bool, len(cfg.ExcludeDirs))
	for _, d := range cfg.ExcludeDirs {
		exclude[d] = true
	}
	return &Scanner{root: root, exts: exts, exclude: exclude, logger: logger}
}

// Root returns the absolute docs root.
func (s *Scanner) Root() string {
	return s.root
}

// AbsPath converts a relative slash-separated record path to a filesystem path.
func (s *Scanner) AbsPath(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Matches reports whether a relative path would be indexed.
func (s *Scanner) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if s.exclude[dir] {
			return false
		}
	}
	return s.hasExtension(parts[len(parts)-1])
}

// ExcludesDir reports whether a directory with this base name is skipped.
func (s *Scanner) ExcludesDir(name string) bool {
	return s.exclude[name]
}

func (s *Scanner) hasExtension(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range s.exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// List returns every indexable file under the root keyed by relative,
// slash-separated path. Unreadable entries are logged and skipped.
func (s *Scanner) List(ctx context.Context) (map[string]FileStat, error) {
	files := make(map[string]FileStat)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != s.root && s.exclude[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.hasExtension(d.Name()) {
			return nil
		}

		// Stat follows symlinks so linked documents are indexed by their target.
		info, err := os.Stat(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = FileStat{
			AbsPath: path,
			ModTime: types.ModTimeOf(info.ModTime()),
			Size:    info.Size(),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk %s: %v", types.ErrFileAccess, s.root, err)
	}
	return files, nil
}

// Detect classifies current and known paths into the four disjoint sets.
// Files with equal modification times are never read.
func (s *Scanner) Detect(ctx context.Context, current map[string]FileStat, known map[string]types.FileRecord) (*types.ScanResult, error) {
	result := &types.ScanResult{Errors: make(map[string]error)}

	for path, stat := range current {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, ok := known[path]
		switch {
		case !ok:
			result.New = append(result.New, path)
		case rec.ModTime == stat.ModTime:
			result.Unchanged = append(result.Unchanged, path)
		default:
			hash, err := HashFile(stat.AbsPath)
			if err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("failed to hash file, keeping indexed state")
				result.Errors[path] = err
				result.Unchanged = append(result.Unchanged, path)
			} else if hash == rec.Hash {
				result.Unchanged = append(result.Unchanged, path)
				result.Touched = append(result.Touched, types.FileRecord{Path: path, Hash: hash, ModTime: stat.ModTime})
			} else {
				result.Updated = append(result.Updated, path)
			}
		}
	}

	for path := range known {
		if _, ok := current[path]; !ok {
			result.Deleted = append(result.Deleted, path)
		}
	}

	sort.Strings(result.New)
	sort.Strings(result.Updated)
	sort.Strings(result.Deleted)
	sort.Strings(result.Unchanged)
	sort.Slice(result.Touched, func(i, j int) bool { return result.Touched[i].Path < result.Touched[j].Path })
	return result, nil
}

// Scan lists the root and detects changes against known.
func (s *Scanner) Scan(ctx context.Context, known map[string]types.FileRecord) (*types.ScanResult, error) {
	current, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.Detect(ctx, current, known)
}
