package crossfade

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opd-ai/crossfade/factory"
	"github.com/opd-ai/crossfade/media"
)

// ExportTimeLayout names exports by their UTC creation time.
const ExportTimeLayout = "2006-01-02T15-04-05Z"

// ExportInfo describes a saved export.
type ExportInfo struct {
	Name    string
	Path    string
	Format  factory.Format
	Created time.Time
	Size    int64
}

// NextExportPath returns an unused output path in dir named after now.
// Two exports in the same second get a short random suffix.
func NextExportPath(dir string, format factory.Format, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	ext := ""
	if format == factory.FormatStream {
		ext = media.StreamExtension
	}
	base := now.UTC().Format(ExportTimeLayout)

	path := filepath.Join(dir, base+ext)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path, nil
	} else if err != nil {
		return "", err
	}
	return filepath.Join(dir, base+"-"+uuid.NewString()[:8]+ext), nil
}

// ListExports returns the exports saved in dir, newest first. A missing
// directory has no exports.
func ListExports(dir string) ([]ExportInfo, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	exports := make([]ExportInfo, 0, len(entries))
	for _, e := range entries {
		info, ok := exportInfo(dir, e)
		if ok {
			exports = append(exports, info)
		}
	}

	sort.Slice(exports, func(i, j int) bool {
		if !exports[i].Created.Equal(exports[j].Created) {
			return exports[i].Created.After(exports[j].Created)
		}
		return exports[i].Name > exports[j].Name
	})
	return exports, nil
}

func exportInfo(dir string, e os.DirEntry) (ExportInfo, bool) {
	path := filepath.Join(dir, e.Name())
	fi, err := e.Info()
	if err != nil {
		return ExportInfo{}, false
	}

	info := ExportInfo{Name: e.Name(), Path: path, Created: fi.ModTime(), Size: fi.Size()}
	switch {
	case e.IsDir():
		if _, err := os.Stat(filepath.Join(path, media.ManifestName)); err != nil {
			return ExportInfo{}, false
		}
		info.Format = factory.FormatPNG
		info.Size = dirSize(path)
	case strings.EqualFold(filepath.Ext(e.Name()), media.StreamExtension):
		info.Format = factory.FormatStream
	default:
		return ExportInfo{}, false
	}

	// Exports are named by creation time; prefer it over the mtime.
	stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
	if len(stem) >= len(ExportTimeLayout) {
		if t, err := time.Parse(ExportTimeLayout, stem[:len(ExportTimeLayout)]); err == nil {
			info.Created = t
		}
	}
	return info, true
}

func dirSize(dir string) int64 {
	var total int64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		if fi, err := e.Info(); err == nil && !e.IsDir() {
			total += fi.Size()
		}
	}
	return total
}

func (s *Studio) now() time.Time {
	if s.timeProvider != nil {
		return s.timeProvider.Now()
	}
	return time.Now()
}
