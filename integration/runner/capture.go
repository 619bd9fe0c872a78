package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Capture writes full-page snapshots for human audit. Files are overwritten
// on every run and never influence pass/fail.
type Capture struct {
	Page   Page
	Dir    string
	Logger *slog.Logger
}

// Save captures the page into Dir/name and returns the written path.
func (c *Capture) Save(ctx context.Context, name string) (string, error) {
	buf, err := c.Page.CaptureFullPage(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	path := filepath.Join(c.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot to file: %w", err)
	}

	c.Logger.Info("Saved screenshot", "path", path, "bytes", len(buf))
	return path, nil
}
