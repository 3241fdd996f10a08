package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

func parse[T any]() (T, error) {
	var cfg T

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

func LoadBackendConfig() (BackendConfig, error) {
	return parse[BackendConfig]()
}

func LoadExporterConfig() (ExporterConfig, error) {
	return parse[ExporterConfig]()
}

func LoadCLIConfig() (CLIConfig, error) {
	return parse[CLIConfig]()
}
