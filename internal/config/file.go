package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"

	"github.com/kelsos/roomfinder/internal/filters"
	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/models"
)

// Deployment is the per-institution part of the configuration
type Deployment struct {
	Vocabulary   filters.Vocabulary  `json:"vocabulary"`
	StatusLabels models.StatusLabels `json:"status_labels"`
}

// ReadFile reads a json5 file and merges `<name>.local.<ext>` over it when present.
// os.ErrNotExist is returned when neither file exists.
func ReadFile[T any](name string) (T, error) {
	var out T
	found := false

	base, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		found = true
	}

	localName := localPath(name)
	local, err := os.ReadFile(localName)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(local) > 0 {
		var override T
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, fmt.Errorf("failed to parse %s: %w", localName, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("failed to merge %s: %w", localName, err)
		}
		logger.Info("Merged local overrides from %s", localName)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}

	return out, nil
}

func localPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// LoadDeployment reads the deployment file and fills unset status labels with defaults
func LoadDeployment(name string) (Deployment, error) {
	deployment, err := ReadFile[Deployment](name)
	if err != nil {
		return Deployment{}, fmt.Errorf("failed to read deployment file %s: %w", name, err)
	}

	labels := models.DefaultStatusLabels()
	if err := mergo.Merge(&labels, deployment.StatusLabels, mergo.WithOverride); err != nil {
		return Deployment{}, fmt.Errorf("failed to merge status labels: %w", err)
	}
	deployment.StatusLabels = labels

	if deployment.Vocabulary.Empty() {
		return Deployment{}, fmt.Errorf("deployment file %s must list buildings, floors, facility_types and equipment", name)
	}

	return deployment, nil
}
