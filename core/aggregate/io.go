package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/yavs-hq/yavs/core/findings"
)

// WriteJSON writes the current findings to path as an indented JSON array
// using atomic temp-file + rename, creating parent directories as needed.
func (a *Aggregator) WriteJSON(path string) error {
	ff := a.findings
	if ff == nil {
		ff = []findings.Finding{}
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling findings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".findings-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming findings file: %w", err)
	}

	a.logger.Info("wrote findings", "count", len(ff), "path", path)
	return nil
}

// rawFinding augments the canonical finding shape with the legacy
// "description" key some scanner adapters emit instead of "message".
type rawFinding struct {
	findings.Finding
	Description string `json:"description,omitempty"`
}

// toolResult is one scanner block inside a structured results document.
type toolResult struct {
	Tool       string       `json:"tool"`
	Violations []rawFinding `json:"violations"`
	Issues     []rawFinding `json:"issues"`
}

// structuredResults is the categorized results document format, with
// compliance violations and SAST issues nested under per-tool blocks.
type structuredResults struct {
	Compliance []toolResult `json:"compliance"`
	SAST       []toolResult `json:"sast"`
	Data       []rawFinding `json:"data"`
}

// ReadJSON loads findings from a JSON results file, replacing any findings
// currently held. Three layouts are accepted: a flat array of findings, a
// {"data": [...]} wrapper, and the structured per-category format with
// "compliance" and "sast" sections. Structured entries missing a tool,
// category, or message are backfilled from their surrounding block.
func (a *Aggregator) ReadJSON(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading findings file %s: %w", path, err)
	}

	ff, err := decodeFindings(data)
	if err != nil {
		return fmt.Errorf("parsing findings file %s: %w", path, err)
	}

	a.findings = ff
	a.logger.Info("loaded findings", "count", len(ff), "path", path)
	return nil
}

func decodeFindings(data []byte) ([]findings.Finding, error) {
	// Flat array format.
	var flat []rawFinding
	if err := json.Unmarshal(data, &flat); err == nil {
		return finalize(flat, "", ""), nil
	}

	var doc structuredResults
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if len(doc.Compliance) > 0 || len(doc.SAST) > 0 {
		var out []findings.Finding
		for _, tr := range doc.Compliance {
			out = append(out, finalizeBlock(tr.Violations, tr.Tool, findings.CategoryCompliance)...)
		}
		for _, tr := range doc.SAST {
			out = append(out, finalizeBlock(tr.Issues, tr.Tool, findings.CategorySAST)...)
		}
		return out, nil
	}

	return finalize(doc.Data, "", ""), nil
}

func finalizeBlock(raw []rawFinding, tool, category string) []findings.Finding {
	if tool == "" {
		tool = "Unknown"
	}
	return finalize(raw, tool, category)
}

func finalize(raw []rawFinding, tool, category string) []findings.Finding {
	out := make([]findings.Finding, 0, len(raw))
	for _, r := range raw {
		f := r.Finding
		if f.Tool == "" {
			f.Tool = tool
		}
		if f.Category == "" {
			f.Category = category
		}
		if f.Message == "" && r.Description != "" {
			f.Message = r.Description
		}
		out = append(out, f)
	}
	return out
}

// LoadFiles reads several findings files concurrently, each into its own
// Aggregator, and merges the results into a single Aggregator in path order
// so that output is deterministic regardless of read completion order.
func LoadFiles(ctx context.Context, paths []string, opts ...Option) (*Aggregator, error) {
	parts := make([]*Aggregator, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			part := New(opts...)
			if err := part.ReadJSON(path); err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := New(opts...)
	for _, part := range parts {
		merged.AddFindings(part.Findings())
	}
	return merged, nil
}
