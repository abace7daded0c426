// Package config loads typed configuration from the environment and,
// optionally, a YAML file.
//
// It wraps github.com/caarlos0/env/v11 for tag-driven parsing,
// github.com/joho/godotenv for .env files and gopkg.in/yaml.v3 for files.
//
// # Usage
//
//	type Config struct {
//		HTTP   httpserver.Config
//		Log    logger.Config
//		Parser related.Config
//	}
//
//	var cfg Config
//	if path := os.Getenv("CONFIG_FILE"); path != "" {
//		err = config.LoadFile(path, &cfg)
//	} else {
//		err = config.Load(&cfg)
//	}
//
// LoadFile applies envDefault tags first, then the file, then any variables
// that are set, so a deployment can override a single value from a checked-in
// file.
//
// # Error Handling
//
// Errors wrap one of ErrParsingConfig, ErrReadingFile, ErrParsingFile or
// ErrNilPointer and can be checked with errors.Is.
package config
