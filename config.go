package chunkstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/chunkstore/codec"
	"github.com/hupe1980/chunkstore/item"
	"github.com/hupe1980/chunkstore/resource"
	"gopkg.in/yaml.v3"
)

// Config is the file form of writer and reader options.
//
//	chunk_bytes: 64MB
//	compression: zstd
//	rank: 3
//	checkpoint_every: 10
//	schema:
//	  - {name: image, type: image}
//	  - {name: label, type: int}
type Config struct {
	ChunkSize           int         `yaml:"chunk_size,omitempty"`
	ChunkBytes          string      `yaml:"chunk_bytes,omitempty"`
	Compression         string      `yaml:"compression,omitempty"`
	Rank                int         `yaml:"rank,omitempty"`
	Schema              item.Schema `yaml:"schema,omitempty"`
	Resume              bool        `yaml:"resume,omitempty"`
	CheckpointEvery     int         `yaml:"checkpoint_every,omitempty"`
	CheckpointRetention int         `yaml:"checkpoint_retention,omitempty"`
	ExpectedFragments   int         `yaml:"expected_fragments,omitempty"`
	CacheBudget         string      `yaml:"cache_budget,omitempty"`
	Codec               string      `yaml:"codec,omitempty"`
	IOLimit             string      `yaml:"io_limit,omitempty"` // bytes per second
	MemoryLimit         string      `yaml:"memory_limit,omitempty"`
	LogLevel            string      `yaml:"log_level,omitempty"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig decodes a YAML config. Unknown keys are rejected.
func ReadConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ParseConfig decodes a YAML config held in memory.
func ParseConfig(data []byte) (*Config, error) {
	return ReadConfig(bytes.NewReader(data))
}

// Marshal encodes the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriterOptions converts the config into writer options.
func (c *Config) WriterOptions() ([]Option, error) {
	opts, err := c.commonOptions()
	if err != nil {
		return nil, err
	}
	if c.ChunkSize != 0 {
		opts = append(opts, WithChunkSize(c.ChunkSize))
	}
	if c.ChunkBytes != "" {
		n, err := ParseSize(c.ChunkBytes)
		if err != nil {
			return nil, fmt.Errorf("chunk_bytes: %w", err)
		}
		opts = append(opts, WithChunkBytes(n))
	}
	if c.Compression != "" {
		opts = append(opts, WithCompression(c.Compression))
	}
	if c.Schema != nil {
		opts = append(opts, WithSchema(c.Schema))
	}
	opts = append(opts,
		WithRank(c.Rank),
		WithCheckpointEvery(c.CheckpointEvery),
		WithCheckpointRetention(c.CheckpointRetention),
		WithExpectedFragments(c.ExpectedFragments),
	)
	if c.Resume {
		opts = append(opts, WithResume())
	}
	return opts, nil
}

// ReaderOptions converts the config into reader options.
func (c *Config) ReaderOptions() ([]Option, error) {
	opts, err := c.commonOptions()
	if err != nil {
		return nil, err
	}
	if c.CacheBudget != "" {
		n, err := ParseSize(c.CacheBudget)
		if err != nil {
			return nil, fmt.Errorf("cache_budget: %w", err)
		}
		opts = append(opts, WithCacheBudget(n))
	}
	return opts, nil
}

func (c *Config) commonOptions() ([]Option, error) {
	var opts []Option

	if c.Codec != "" {
		cd, ok := codec.ByName(c.Codec)
		if !ok {
			return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
		}
		opts = append(opts, WithCodec(cd))
	}

	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
			return nil, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
		}
		opts = append(opts, WithLogLevel(level))
	}

	if c.IOLimit != "" || c.MemoryLimit != "" {
		var rc resource.Config
		if c.IOLimit != "" {
			n, err := ParseSize(c.IOLimit)
			if err != nil {
				return nil, fmt.Errorf("io_limit: %w", err)
			}
			rc.IOLimitBytesPerSec = n
		}
		if c.MemoryLimit != "" {
			n, err := ParseSize(c.MemoryLimit)
			if err != nil {
				return nil, fmt.Errorf("memory_limit: %w", err)
			}
			rc.MemoryLimitBytes = n
		}
		opts = append(opts, WithResourceController(resource.NewController(rc)))
	}
	return opts, nil
}
