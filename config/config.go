// Package config loads the reader configuration: where the file lives and
// the shape of the feature and label streams.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"parquet_batch/pqerr"
)

const (
	FormatParquet = "parquet"
	FormatDense   = "dense"
)

// Config is the top-level configuration. Pointer fields distinguish a
// missing key from a zero value.
type Config struct {
	Source   *Source `yaml:"hdfs"`
	Features *Stream `yaml:"features"`
	Labels   *Stream `yaml:"labels"`
}

// Source locates the input file.
type Source struct {
	Host     *string `yaml:"host"`
	FilePath *string `yaml:"filePath"`
	Port     *int    `yaml:"port"`
	Format   *string `yaml:"format"`
}

// Stream describes one input stream.
type Stream struct {
	Dim    *int    `yaml:"dim"`
	Format *string `yaml:"format"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &pqerr.IOError{Op: "read config", Err: err}
	}
	return Parse(b)
}

// Parse decodes and validates a YAML configuration.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, &pqerr.ConfigError{Msg: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required key is present, the source first and
// then the label and feature streams. It returns the first missing key as a
// *pqerr.ConfigError.
func (c *Config) Validate() error {
	if c.Source == nil {
		return &pqerr.ConfigError{Key: "hdfs"}
	}
	if err := c.Source.validate("hdfs"); err != nil {
		return err
	}
	if c.Labels == nil {
		return &pqerr.ConfigError{Key: "labels"}
	}
	if err := c.Labels.validate("labels"); err != nil {
		return err
	}
	if c.Features == nil {
		return &pqerr.ConfigError{Key: "features"}
	}
	return c.Features.validate("features")
}

func (s *Source) validate(prefix string) error {
	switch {
	case s.Host == nil:
		return &pqerr.ConfigError{Key: prefix + ".host"}
	case s.FilePath == nil:
		return &pqerr.ConfigError{Key: prefix + ".filePath"}
	case s.Port == nil:
		return &pqerr.ConfigError{Key: prefix + ".port"}
	case s.Format == nil:
		return &pqerr.ConfigError{Key: prefix + ".format"}
	}
	if *s.Port <= 0 || *s.Port > 65535 {
		return &pqerr.ConfigError{Key: prefix + ".port", Msg: fmt.Sprintf("invalid port %d", *s.Port)}
	}
	if *s.Format != FormatParquet {
		return &pqerr.ConfigError{Key: prefix + ".format", Msg: fmt.Sprintf("unsupported file format %q", *s.Format)}
	}
	return nil
}

func (s *Stream) validate(prefix string) error {
	switch {
	case s.Dim == nil:
		return &pqerr.ConfigError{Key: prefix + ".dim"}
	case s.Format == nil:
		return &pqerr.ConfigError{Key: prefix + ".format"}
	}
	if *s.Dim <= 0 {
		return &pqerr.ConfigError{Key: prefix + ".dim", Msg: fmt.Sprintf("invalid dimension %d", *s.Dim)}
	}
	if *s.Format != FormatDense {
		return &pqerr.ConfigError{Key: prefix + ".format", Msg: fmt.Sprintf("unsupported stream format %q", *s.Format)}
	}
	return nil
}

// FilePath returns the configured file path.
func (c *Config) FilePath() string {
	return *c.Source.FilePath
}

// Dims returns the feature and label dimensions.
func (c *Config) Dims() (features, labels int) {
	return *c.Features.Dim, *c.Labels.Dim
}
