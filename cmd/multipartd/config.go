package main

import (
	"github.com/dmitrymomot/multipartkit/pkg/file"
	"github.com/dmitrymomot/multipartkit/pkg/httpserver"
	"github.com/dmitrymomot/multipartkit/pkg/logger"
	"github.com/dmitrymomot/multipartkit/pkg/related"
)

const (
	storageLocal = "local"
	storageS3    = "s3"
	storageRedis = "redis"
)

type appConfig struct {
	HTTP   httpserver.Config `yaml:"http"`
	Log    logger.Config     `yaml:"log"`
	Parser related.Config    `yaml:"parser"`
	S3     file.S3Config     `yaml:"s3"`
	Redis  file.RedisConfig  `yaml:"redis"`

	Storage     string `env:"MULTIPART_STORAGE" envDefault:"local" yaml:"storage"`
	MaxBodySize int64  `env:"MULTIPART_MAX_BODY_SIZE" envDefault:"33554432" yaml:"max_body_size"`
}
