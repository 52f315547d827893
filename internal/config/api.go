package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inovacc/aimodels/internal/application"
	"gopkg.in/yaml.v3"
)

// DefaultAPIURL is the public remote inference endpoint.
const DefaultAPIURL = "https://ai-models.ecmwf.int/api/v1/"

// API holds the remote execution settings stored in api.yaml.
type API struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// APIConfigPath returns the location of the api.yaml file.
func APIConfigPath() (string, error) {
	dir, err := application.GetApplicationDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "api.yaml"), nil
}

// LoadAPI reads the api.yaml config, creating a template file with the
// default URL and an empty token when none exists yet.
func LoadAPI() (API, error) {
	path, err := APIConfigPath()
	if err != nil {
		return API{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := writeTemplate(path); err != nil {
			return API{}, err
		}
		return API{URL: DefaultAPIURL}, nil
	}
	if err != nil {
		return API{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg API
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return API{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.URL == "" {
		cfg.URL = DefaultAPIURL
	}

	return cfg, nil
}

func writeTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpl := API{URL: DefaultAPIURL}
	data, err := yaml.Marshal(&tmpl)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	return nil
}
