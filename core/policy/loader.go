package policy

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a single policy file. The codec is selected
// by extension: .yaml/.yml or .json; anything else is an unsupported format
// error.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing policy file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported policy file format: %s", filepath.Ext(path))
	}

	f.applyDefaults()
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}

	f.Source = path
	return &f, nil
}

// loadPaths loads policies from explicit files and directories. Directories
// are walked recursively for .yaml/.yml/.json files in lexicographic order
// so that last-write-wins rule effects stay deterministic. A file that
// fails to load is logged and skipped; loading continues.
func loadPaths(paths []string, logger *slog.Logger) []*File {
	var policies []*File

	appendFile := func(path string) {
		f, err := LoadFile(path)
		if err != nil {
			logger.Error("failed to load policy", "path", path, "error", err)
			return
		}
		policies = append(policies, f)
		logger.Info("loaded policy", "name", f.Name, "rules", len(f.Rules))
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			logger.Error("failed to load policy", "path", path, "error", err)
			continue
		}
		if !info.IsDir() {
			appendFile(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(p)) {
			case ".yaml", ".yml", ".json":
				appendFile(p)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to walk policy directory", "path", path, "error", err)
		}
	}

	return policies
}
