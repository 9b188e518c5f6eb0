// backend/scraper/drive_source.go
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gewnthar/tvreport/backend/models"
)

// DriveSource lists and downloads schedule workbooks from a Google Drive folder through the Drive v3 REST API.
type DriveSource struct {
	client      *http.Client
	baseURL     string
	folderID    string
	apiKey      string
	downloadDir string
}

func NewDriveSource(baseURL, folderID, apiKey, downloadDir string) *DriveSource {
	return &DriveSource{
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimRight(baseURL, "/"),
		folderID:    folderID,
		apiKey:      apiKey,
		downloadDir: downloadDir,
	}
}

type driveFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

type driveFileList struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

// ListDatasets returns the folder's .xlsx files sorted by modification time, oldest first.
func (s *DriveSource) ListDatasets(ctx context.Context) ([]models.DatasetFile, error) {
	var files []models.DatasetFile
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("q", fmt.Sprintf("'%s' in parents and trashed=false", s.folderID))
		q.Set("fields", "nextPageToken,files(id,name,modifiedTime)")
		q.Set("pageSize", "200")
		if s.apiKey != "" {
			q.Set("key", s.apiKey)
		}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		page, err := s.listPage(ctx, s.baseURL+"/drive/v3/files?"+q.Encode())
		if err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			if !strings.HasSuffix(strings.ToLower(f.Name), ".xlsx") {
				continue
			}
			files = append(files, models.DatasetFile{ID: f.ID, Label: f.Name, ModifiedAt: f.ModifiedTime})
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModifiedAt.Before(files[j].ModifiedAt)
	})
	log.Printf("Scraper: Found %d workbook(s) in Drive folder %s\n", len(files), s.folderID)
	return files, nil
}

func (s *DriveSource) listPage(ctx context.Context, listURL string) (*driveFileList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build Drive list request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list Drive folder %s: %w", s.folderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list Drive folder %s: status code %d", s.folderID, resp.StatusCode)
	}
	var page driveFileList
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode Drive file list: %w", err)
	}
	return &page, nil
}

// Open downloads the file into the download directory and returns its local path.
func (s *DriveSource) Open(ctx context.Context, file models.DatasetFile) (string, error) {
	q := url.Values{}
	q.Set("alt", "media")
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	mediaURL := fmt.Sprintf("%s/drive/v3/files/%s?%s", s.baseURL, url.PathEscape(file.ID), q.Encode())

	localPath := filepath.Join(s.downloadDir, filepath.Base(file.Label))
	if err := DownloadFile(ctx, s.client, mediaURL, localPath); err != nil {
		return "", fmt.Errorf("failed to download %s: %w", file.Label, err)
	}
	return localPath, nil
}

var keyParamRegex = regexp.MustCompile(`([?&]key=)[^&]+`)

// redactKey hides API keys in URLs before they reach the log.
func redactKey(u string) string {
	return keyParamRegex.ReplaceAllString(u, "${1}REDACTED")
}
