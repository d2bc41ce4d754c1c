package transform

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Recognised transform kinds.
const (
	KindIdentity     = "identity"
	KindConical      = "conical"
	KindConicalUp    = "conical-up"
	KindConicalDown  = "conical-down"
	KindParabolic    = "parabolic"
	KindCustom       = "custom"
	kindPlanarLegacy = "planar"
)

// Config selects and parameterises a transform. It uses mapstructure tags so it
// can be decoded from YAML documents, JSON bodies and tool arguments alike.
type Config struct {
	Kind  string  `json:"kind" yaml:"kind" mapstructure:"kind"`
	Angle float64 `json:"angle,omitempty" yaml:"angle,omitempty" mapstructure:"angle"`

	// Custom component expressions. Empty components default to the identity.
	X string `json:"x,omitempty" yaml:"x,omitempty" mapstructure:"x"`
	Y string `json:"y,omitempty" yaml:"y,omitempty" mapstructure:"y"`
	Z string `json:"z,omitempty" yaml:"z,omitempty" mapstructure:"z"`
}

// Decode converts a loosely typed value (typically map[string]any) into a Config.
// Numbers given as strings are accepted.
func Decode(input any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(input); err != nil {
		return cfg, &ConfigError{Key: "transform", Reason: "cannot decode", Err: err}
	}
	return cfg, nil
}

// FromMap decodes and builds a transform in one step.
func FromMap(m map[string]any) (Transform, error) {
	cfg, err := Decode(m)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// Build constructs the configured transform. An empty kind means identity.
func (c Config) Build() (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(c.Kind)) {
	case "", KindIdentity, kindPlanarLegacy:
		return Identity{}, nil
	case KindConical, KindConicalUp:
		if err := c.checkAngle(); err != nil {
			return nil, err
		}
		return NewConical(c.Angle), nil
	case KindConicalDown:
		if err := c.checkAngle(); err != nil {
			return nil, err
		}
		return NewConical(-c.Angle), nil
	case KindParabolic:
		return Parabolic{}, nil
	case KindCustom:
		fx, fy, fz := orDefault(c.X, "x"), orDefault(c.Y, "y"), orDefault(c.Z, "z")
		return NewCustom(fx, fy, fz)
	default:
		return nil, &ConfigError{Key: "kind", Reason: "must be one of identity, conical, conical-up, conical-down, parabolic, custom", Value: c.Kind, Err: ErrUnknownKind}
	}
}

// checkAngle rejects angles whose tangent is unbounded.
func (c Config) checkAngle() error {
	if c.Angle <= -90 || c.Angle >= 90 {
		return &ConfigError{Key: "angle", Reason: "must be strictly between -90 and 90 degrees", Value: c.Angle}
	}
	return nil
}

// String renders the config in the form accepted by ParseSpec.
func (c Config) String() string {
	switch strings.ToLower(c.Kind) {
	case KindConical, KindConicalUp, KindConicalDown:
		return fmt.Sprintf("%s:%g", c.Kind, c.Angle)
	case KindCustom:
		return fmt.Sprintf("custom:%s;%s;%s", orDefault(c.X, "x"), orDefault(c.Y, "y"), orDefault(c.Z, "z"))
	case "":
		return KindIdentity
	default:
		return c.Kind
	}
}

// ParseSpec parses the compact command-line form "kind[:args]", for example
// "conical:30", "parabolic" or "custom:x;y;z+0.1*hypot(x,y)".
func ParseSpec(spec string) (Config, error) {
	kind, args, _ := strings.Cut(strings.TrimSpace(spec), ":")
	cfg := Config{Kind: strings.ToLower(kind)}
	switch cfg.Kind {
	case KindConical, KindConicalUp, KindConicalDown:
		if args == "" {
			return cfg, &ConfigError{Key: "angle", Reason: "required for conical transforms"}
		}
		var angle float64
		if _, err := fmt.Sscanf(args, "%g", &angle); err != nil {
			return cfg, &ConfigError{Key: "angle", Reason: "not a number", Value: args, Err: err}
		}
		cfg.Angle = angle
	case KindCustom:
		parts := strings.Split(args, ";")
		if len(parts) != 3 {
			return cfg, &ConfigError{Key: "custom", Reason: "expected three expressions separated by ';'", Value: args}
		}
		cfg.X, cfg.Y, cfg.Z = parts[0], parts[1], parts[2]
	}
	return cfg, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
