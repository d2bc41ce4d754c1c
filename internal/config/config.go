// Package config loads nonplanar job files.
//
// A job file is YAML or JSON (chosen by extension). It is first read into a generic
// map and then decoded with mapstructure, so both formats share one set of keys and
// unknown keys are rejected.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/nonplanar/pkg/adapters/process"
	"github.com/aretw0/nonplanar/pkg/geom"
	"github.com/aretw0/nonplanar/pkg/transform"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "nonplanar.yaml"

// Range skips leading and trailing motion moves.
type Range struct {
	StartOffset int `mapstructure:"start_offset" yaml:"start_offset" json:"start_offset"`
	EndOffset   int `mapstructure:"end_offset" yaml:"end_offset" json:"end_offset"`
}

// Store selects where finished jobs are kept.
type Store struct {
	Kind string        `mapstructure:"kind" yaml:"kind" json:"kind"` // none, memory, file, redis
	Path string        `mapstructure:"path" yaml:"path" json:"path"`
	Addr string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	DB   int           `mapstructure:"db" yaml:"db" json:"db"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// Compress gzips stored jobs. Encrypt seals them with AES-256-GCM; the key is
	// read from the environment, never from the job file.
	Compress bool `mapstructure:"compress" yaml:"compress" json:"compress"`
	Encrypt  bool `mapstructure:"encrypt" yaml:"encrypt" json:"encrypt"`
}

// Log configures the application logger.
type Log struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json" json:"json"`
}

// File is a decoded job file.
type File struct {
	Transform  transform.Config `mapstructure:"transform" yaml:"transform" json:"transform"`
	Offset     []float64        `mapstructure:"offset" yaml:"offset" json:"offset"`
	Center     bool             `mapstructure:"center" yaml:"center" json:"center"`
	Range      Range            `mapstructure:"range" yaml:"range" json:"range"`
	MaxSegment float64          `mapstructure:"max_segment" yaml:"max_segment" json:"max_segment"`
	ZFloor     *float64         `mapstructure:"z_floor" yaml:"z_floor" json:"z_floor"`
	MaxEdge    float64          `mapstructure:"max_edge" yaml:"max_edge" json:"max_edge"`
	Store      Store            `mapstructure:"store" yaml:"store" json:"store"`
	Log        Log              `mapstructure:"log" yaml:"log" json:"log"`
	Slicers    []process.Tool   `mapstructure:"slicers" yaml:"slicers" json:"slicers"`
}

// Default returns the settings used when no job file exists.
func Default() File {
	return File{
		Transform:  transform.Config{Kind: transform.KindIdentity},
		MaxSegment: 1,
		MaxEdge:    2,
		Store:      Store{Kind: "none"},
		Log:        Log{Level: "info"},
	}
}

// Load reads a job file. An empty path tries DefaultFile and falls back to Default
// when it does not exist; an explicit path must exist.
func Load(path string) (File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes file contents; ext selects JSON (".json") or YAML (anything else).
func Parse(data []byte, ext string) (File, error) {
	var raw map[string]any
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &raw); err != nil {
			return File{}, fmt.Errorf("failed to parse json config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return File{}, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	}
	return Decode(raw)
}

// Decode applies raw settings on top of Default.
func Decode(raw map[string]any) (File, error) {
	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return File{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return File{}, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that decoding cannot express.
func (f File) Validate() error {
	if len(f.Offset) != 0 && len(f.Offset) != 3 {
		return &transform.ConfigError{Key: "offset", Reason: "expected [x, y, z]", Value: f.Offset}
	}
	if !(f.MaxSegment > 0) {
		return &transform.ConfigError{Key: "max_segment", Reason: "must be positive", Value: f.MaxSegment}
	}
	if !(f.MaxEdge > 0) {
		return &transform.ConfigError{Key: "max_edge", Reason: "must be positive", Value: f.MaxEdge}
	}
	if f.Range.StartOffset < 0 || f.Range.EndOffset < 0 {
		return &transform.ConfigError{Key: "range", Reason: "offsets must not be negative", Value: f.Range}
	}
	switch f.Store.Kind {
	case "", "none", "memory", "file", "redis":
	default:
		return &transform.ConfigError{Key: "store.kind", Reason: "must be one of none, memory, file, redis", Value: f.Store.Kind}
	}
	for i, tool := range f.Slicers {
		if tool.Name == "" || tool.Command == "" {
			return &transform.ConfigError{Key: fmt.Sprintf("slicers[%d]", i), Reason: "name and command are required", Value: tool.Name}
		}
	}
	if _, err := f.Transform.Build(); err != nil {
		return err
	}
	return nil
}

// OffsetPoint returns the configured offset, or the origin when none is set.
func (f File) OffsetPoint() geom.Point3 {
	if len(f.Offset) != 3 {
		return geom.Origin
	}
	return geom.Pt(f.Offset[0], f.Offset[1], f.Offset[2])
}

// Floor returns the configured Z floor, or -Inf when none is set.
func (f File) Floor() float64 {
	if f.ZFloor == nil {
		return math.Inf(-1)
	}
	return *f.ZFloor
}
