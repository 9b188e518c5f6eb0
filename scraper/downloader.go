// backend/scraper/downloader.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// DownloadFile downloads url to localSavePath, creating the directory if needed.
// A partially written file is removed on failure.
func DownloadFile(ctx context.Context, client *http.Client, url string, localSavePath string) error {
	log.Printf("Scraper: Downloading %s to %s\n", redactKey(url), localSavePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", redactKey(url), err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make GET request to %s: %w", redactKey(url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file from %s: received status code %d", redactKey(url), resp.StatusCode)
	}

	dir := filepath.Dir(localSavePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	outFile, err := os.Create(localSavePath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localSavePath, err)
	}

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		outFile.Close()
		os.Remove(localSavePath)
		return fmt.Errorf("failed to copy downloaded content to %s: %w", localSavePath, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", localSavePath, err)
	}

	log.Printf("Scraper: Downloaded %s\n", localSavePath)
	return nil
}
