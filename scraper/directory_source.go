// backend/scraper/directory_source.go
package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gewnthar/tvreport/backend/models"
)

// DirectorySource offers the .xlsx workbooks of a local folder, typically a synced Drive folder.
type DirectorySource struct {
	dir string
}

func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

// ListDatasets returns the folder's .xlsx files sorted by modification time, oldest first.
func (s *DirectorySource) ListDatasets(ctx context.Context) ([]models.DatasetFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory %s: %w", s.dir, err)
	}

	var files []models.DatasetFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".xlsx") || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		files = append(files, models.DatasetFile{
			ID:         filepath.Join(s.dir, e.Name()),
			Label:      e.Name(),
			ModifiedAt: info.ModTime(),
		})
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedAt.Before(files[j].ModifiedAt)
	})
	return files, ctx.Err()
}

// Open returns the local path of the file; directory datasets need no download.
func (s *DirectorySource) Open(ctx context.Context, file models.DatasetFile) (string, error) {
	if _, err := os.Stat(file.ID); err != nil {
		return "", fmt.Errorf("dataset %s is not readable: %w", file.Label, err)
	}
	return file.ID, nil
}
