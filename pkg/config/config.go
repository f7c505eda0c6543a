// Package config loads form unit settings from YAML or HCL files and turns
// them into scope options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	forms "github.com/pumped-fn/pumped-forms"
	"github.com/pumped-fn/pumped-forms/pkg/control"
	"github.com/pumped-fn/pumped-forms/presets"
)

// File names looked up by Resolve, in order
var FileNames = []string{"forms.hcl", "forms.yaml", "forms.yml"}

// Config represents a forms.hcl or forms.yaml configuration.
type Config struct {
	Namespace string      `yaml:"namespace,omitempty" hcl:"namespace,optional"`
	Tags      []string    `yaml:"tags,omitempty" hcl:"tags,optional"`
	Mode      *ModeConfig `yaml:"mode,omitempty" hcl:"mode,block"`
	Log       string      `yaml:"log,omitempty" hcl:"log,optional"`
}

// ModeConfig configures the mode preset.
type ModeConfig struct {
	Invalid  string `yaml:"invalid,omitempty" hcl:"invalid,optional"`
	Validity *bool  `yaml:"validity,omitempty" hcl:"validity,optional"`
	Form     *bool  `yaml:"form,omitempty" hcl:"form,optional"`
}

// Load reads a configuration file. Files with the .hcl extension are parsed
// as HCL with the process environment available as env, others as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if filepath.Ext(path) == ".hcl" {
		return ParseHCL(data, path, Environ())
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML configuration
func ParseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseHCL parses an HCL configuration. Expressions may reference the given
// variables as env.NAME.
func ParseHCL(data []byte, filename string, env map[string]string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, evalContext(env), &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(env))
	for name, value := range env {
		vars[name] = cty.StringVal(value)
	}

	envVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		envVal = cty.ObjectVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}

// Environ returns the process environment as a map
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && name != "" {
			env[name] = value
		}
	}
	return env
}

// Resolve loads the first configuration file found in dir, or an empty
// configuration when there is none. A missing namespace defaults to the last
// element of the module path declared by dir's go.mod.
func Resolve(dir string) (*Config, error) {
	cfg := &Config{}
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		break
	}

	if strings.TrimSpace(cfg.Namespace) == "" {
		cfg.Namespace = defaultNamespace(dir)
	}
	return cfg, nil
}

func defaultNamespace(dir string) string {
	base := filepath.Base(dir)

	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return base
	}
	modName, _, ok := module.SplitPathVersion(modfile.ModulePath(data))
	if ok && modName != "" {
		parts := strings.Split(modName, "/")
		base = parts[len(parts)-1]
	}
	return base
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.Mode != nil && c.Mode.Invalid != "" {
		switch control.Mode(c.Mode.Invalid) {
		case control.ModeOn, control.ModeReadOnly, control.ModeNoSubmit, control.ModeOff:
		default:
			return fmt.Errorf("invalid mode %q: expected one of on, ro, -on, off", c.Mode.Invalid)
		}
	}
	if c.Log != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Log)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.Log, err)
		}
	}
	return nil
}

// LogLevel returns the configured log level, INFO by default
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if c.Log == "" || level.UnmarshalText([]byte(c.Log)) != nil {
		return slog.LevelInfo
	}
	return level
}

// ModeOptions returns the options of the mode preset
func (c *Config) ModeOptions() presets.ModeOptions {
	if c.Mode == nil {
		return presets.ModeOptions{}
	}
	return presets.ModeOptions{
		Invalid:        control.Mode(c.Mode.Invalid),
		IgnoreValidity: c.Mode.Validity != nil && !*c.Mode.Validity,
		IgnoreForm:     c.Mode.Form != nil && !*c.Mode.Form,
	}
}

// Specs returns the preset specs described by the configuration, in the
// order they apply
func (c *Config) Specs() []forms.Spec {
	var specs []forms.Spec
	if len(c.Tags) > 0 {
		specs = append(specs, presets.Tags(c.Tags...))
	}
	if c.Mode != nil {
		specs = append(specs, presets.Mode(c.ModeOptions()))
	}
	return specs
}

// ScopeOptions returns options configuring a root scope: its name, its
// presets and the default preset. Logging goes to handler when not nil.
func (c *Config) ScopeOptions(handler slog.Handler) []forms.ScopeOption {
	opts := []forms.ScopeOption{
		forms.WithDefaultPreset(presets.Default()),
	}
	if c.Namespace != "" {
		opts = append(opts, forms.WithScopeName(c.Namespace))
	}
	for _, spec := range c.Specs() {
		opts = append(opts, forms.WithPreset(spec))
	}
	if handler != nil {
		opts = append(opts, forms.WithLogger(slog.New(handler)))
	}
	return opts
}
