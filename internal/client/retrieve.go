package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bioflow/internal/model"
	"bioflow/internal/telemetry"

	"go.uber.org/zap"
)

// Retrieve downloads every output file descriptor into destDir, writing each
// one under its remote name and overwriting any existing file. The first
// failed download aborts the remainder.
func (c *Client) Retrieve(ctx context.Context, files []model.OutputFile, destDir string) error {
	for _, f := range files {
		url := c.baseURL + "retrieve/data/" + f.ID
		dest := filepath.Join(destDir, f.Name)
		if err := c.download(ctx, url, dest); err != nil {
			c.countDownload("failed")
			return fmt.Errorf("failed to retrieve output %q: %w", f.Name, err)
		}
		c.countDownload("success")
	}
	return nil
}

// download streams the raw response bytes at url into destPath. Redirects
// are followed; the final response must be a 200.
func (c *Client) download(ctx context.Context, url, destPath string) error {
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destPath, err)
	}
	defer file.Close()

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}

	telemetry.Logger.Info("Downloaded output file",
		zap.String("path", destPath),
		zap.Int64("bytes", written),
	)
	return nil
}

func (c *Client) countDownload(outcome string) {
	if c.metrics != nil {
		c.metrics.IncrementDownloadCounter(outcome)
	}
}

// RunJob drives one full job through the API: launch, wait for a terminal
// status, then download every listed output into destDir.
func (c *Client) RunJob(ctx context.Context, endpoint string, args []Argument, destDir string) (string, []model.OutputFile, time.Duration, error) {
	token, _, err := c.Launch(ctx, c.baseURL+endpoint, args)
	if err != nil {
		return "", nil, 0, err
	}

	files, elapsed, err := c.CheckJob(ctx, token)
	if err != nil {
		return token, nil, elapsed, err
	}

	if err := c.Retrieve(ctx, files, destDir); err != nil {
		return token, files, elapsed, err
	}
	return token, files, elapsed, nil
}
