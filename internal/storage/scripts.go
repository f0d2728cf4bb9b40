package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jwebster45206/story-grid/pkg/script"
	"gopkg.in/yaml.v3"
)

// LoadScripts reads extra story scripts from <dataDir>/scripts, as .json,
// .yaml or .yml files.
// Unreadable or invalid files are skipped with a warning. A missing
// directory yields no scripts.
func LoadScripts(dataDir string, logger *slog.Logger) ([]script.Script, error) {
	scriptsDir := filepath.Join(dataDir, "scripts")
	var scripts []script.Script

	err := filepath.WalkDir(scriptsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == scriptsDir {
				return fs.SkipDir
			}
			return err
		}
		ext := filepath.Ext(path)
		if d.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			return nil
		}

		file, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Failed to read script file", "path", path, "error", err)
			return nil
		}

		var s script.Script
		if ext == ".json" {
			err = json.Unmarshal(file, &s)
		} else {
			err = yaml.Unmarshal(file, &s)
		}
		if err != nil {
			logger.Warn("Failed to unmarshal script file", "path", path, "error", err)
			return nil
		}
		if err := script.Validate(s); err != nil {
			logger.Warn("Skipping invalid script", "path", path, "error", err)
			return nil
		}

		scripts = append(scripts, s)
		return nil
	})
	if err != nil {
		logger.Error("Failed to walk scripts directory", "error", err)
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Key < scripts[j].Key })
	return scripts, nil
}
