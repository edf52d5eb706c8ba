package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/lendrules/pkg/registry"
	"mercator-hq/lendrules/pkg/rule/conflict"
	ruleerrors "mercator-hq/lendrules/pkg/rule/errors"
	"mercator-hq/lendrules/pkg/telemetry/logging"
)

// Status is the outcome of importing one file.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPresent  Status = "present"
	StatusConflict Status = "conflict"
	StatusInvalid  Status = "invalid"
	StatusFailed   Status = "failed"
)

// Submitter stores a wire-format rule document.
type Submitter interface {
	Submit(ctx context.Context, data []byte) (*registry.SubmitResult, error)
}

// FileResult reports what happened to one file.
type FileResult struct {
	Path   string `json:"path"`
	Status Status `json:"status"`
	RuleID string `json:"ruleId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Report summarizes an import run.
type Report struct {
	Files []FileResult `json:"files"`
}

// Count returns the number of files with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any file was not stored and not already present.
func (r *Report) Failed() bool {
	for _, f := range r.Files {
		if f.Status != StatusCreated && f.Status != StatusPresent {
			return true
		}
	}
	return false
}

// Importer submits rule files.
type Importer struct {
	submitter Submitter
	logger    *slog.Logger
}

// New creates an importer submitting through s.
func New(s Submitter, logger *slog.Logger) *Importer {
	return &Importer{submitter: s, logger: logging.Default(logger)}
}

// ImportDir submits every *.json file directly inside dir in name order.
// Hidden files are skipped. Per-file failures are reported in the Report;
// the returned error is set only when dir cannot be read or ctx ends.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Report, error) {
	paths, err := RuleFiles(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{Files: make([]FileResult, 0, len(paths))}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Files = append(report.Files, im.ImportFile(ctx, p))
	}

	im.logger.InfoContext(ctx, "rule import finished",
		"dir", dir,
		"files", len(report.Files),
		"created", report.Count(StatusCreated),
		"present", report.Count(StatusPresent),
		"conflicts", report.Count(StatusConflict),
		"invalid", report.Count(StatusInvalid),
		"failed", report.Count(StatusFailed),
	)
	return report, nil
}

// ImportFile submits a single file.
func (im *Importer) ImportFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Status, res.Error = StatusFailed, err.Error()
		return res
	}

	out, err := im.submitter.Submit(ctx, data)
	if err == nil {
		res.Status, res.RuleID = StatusCreated, out.Rule.ID
		return res
	}

	var (
		dup *conflict.DuplicateRuleError
		ce  *conflict.ConflictError
		el  *ruleerrors.ErrorList
	)
	switch {
	case errors.As(err, &dup):
		res.Status, res.RuleID = StatusPresent, dup.Report.ExistingID
		return res
	case errors.As(err, &ce):
		res.Status = StatusConflict
	case errors.As(err, &el):
		res.Status = StatusInvalid
	default:
		res.Status = StatusFailed
	}
	res.Error = err.Error()
	im.logger.WarnContext(ctx, "rule file not imported", "path", path, "status", res.Status, "error", err)
	return res
}

// RuleFiles lists the rule documents directly inside dir in name order:
// *.json files, any case, hidden files skipped.
func RuleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isRuleFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func isRuleFile(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}
