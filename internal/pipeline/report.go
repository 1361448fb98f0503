package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// reportName is the manifest written next to the staged artefacts.
const reportName = "report.json"

// Report is the machine-readable summary of a run, written into the output
// directory so downstream jobs can discover what was built without parsing
// logs.
type Report struct {
	RunID      string     `json:"run_id,omitempty"`
	Profile    string     `json:"profile"`
	Versions   string     `json:"versions"`
	OutputDir  string     `json:"output_dir"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Artefacts  []Artefact `json:"artefacts"`
	Uploaded   int        `json:"uploaded"`
}

func (p *pipeline) writeReport(outputDir string, start time.Time, result *Result) error {
	report := Report{
		RunID:      p.runID,
		Profile:    p.cfg.Profile,
		Versions:   result.Versions,
		OutputDir:  result.OutputDir,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Artefacts:  result.Artefacts,
		Uploaded:   result.Uploaded,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialise report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, reportName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// fileSHA256 returns the hex-encoded SHA-256 digest of the file at path.
func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
