package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// noDefaultsTag is a tag name no field carries, so envDefault values are
// not applied a second time on top of a file.
const noDefaultsTag = "-"

var defaultEnvLoaded sync.Once

// Load fills v from environment variables using `env` and `envDefault` tags.
// The first call also reads ./.env if it exists; variables already set in the
// process environment win over the file.
//
// Example:
//
//	type Config struct {
//		TempDir     string `env:"MULTIPART_TEMP_DIR"`
//		MaxBodySize int64  `env:"MULTIPART_MAX_BODY_SIZE" envDefault:"33554432"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// A missing .env is fine.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("Failed to load required configuration: %v", err))
	}
}

// LoadEnv reads the given .env files into the process environment.
// Variables that are already set are left untouched.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrReadingFile, err)
	}
	return nil
}

// LoadFile fills v from a YAML file and then from the environment.
// Precedence, lowest first: envDefault tags, the file, set variables.
func LoadFile[T any](path string, v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	if err := env.ParseWithOptions(v, env.Options{Environment: map[string]string{}}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingFile, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return errors.Join(ErrParsingFile, err)
	}

	if err := env.ParseWithOptions(v, env.Options{DefaultValueTagName: noDefaultsTag}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}
