package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var labelSanitizer = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// sanitizeLabel collapses anything outside [A-Za-z0-9_-] to underscores so a
// label is always safe in a filename.
func sanitizeLabel(label string) string {
	safe := strings.Trim(labelSanitizer.ReplaceAllString(label, "_"), "_")
	if safe == "" {
		return "shot"
	}
	return safe
}

// artifactFilename builds the timestamped screenshot filename. The microsecond
// suffix keeps two screenshots in the same second from colliding.
func artifactFilename(label string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%s_%06d_%s.png", now.Format("20060102_150405"), now.Nanosecond()/1000, sanitizeLabel(label))
}

// ArtifactPaths returns the file path and public URL path for a screenshot,
// creating the run's artifact directory if needed.
func ArtifactPaths(artifactsDir string, runID int64, label string) (string, string, error) {
	filename := artifactFilename(label, time.Now())
	dir := filepath.Join(artifactsDir, "screenshots", fmt.Sprintf("run_%d", runID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create artifact directory: %w", err)
	}
	publicURL := fmt.Sprintf("/artifacts/screenshots/run_%d/%s", runID, filename)
	return filepath.Join(dir, filename), publicURL, nil
}
