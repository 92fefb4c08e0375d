package referral

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Insurance   []InsurancePlan   `yaml:"insurance" validate:"min=1,dive"`
	Specialties SpecialtiesConfig `yaml:"specialties"`
	Seed        SeedConfig        `yaml:"seed"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"min=0"`
}

type StorageConfig struct {
	Type   string        `yaml:"type" validate:"oneof=memory file sqlite postgres"`
	Config DynamicConfig `yaml:"config"`
}

type SpecialtiesConfig struct {
	Source string   `yaml:"source" validate:"oneof=fixed derived"`
	Names  []string `yaml:"names"`
}

type SeedConfig struct {
	Enable bool `yaml:"enable"`
	// File is a YAML list of provider bodies; empty means the built-in samples.
	File string `yaml:"file"`
}

// DynamicConfig holds backend specific settings decoded on demand.
type DynamicConfig map[string]interface{}

func (c DynamicConfig) As(pc interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           pc,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := d.Decode(map[string]interface{}(c)); err != nil {
		return err
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageMemory,
		},
		Insurance: DefaultInsurancePlans(),
		Specialties: SpecialtiesConfig{
			Source: SpecialtiesFixed,
			Names:  DefaultSpecialties(),
		},
	}
}

// FillDefaults sets every zero field to its default.
func (c *Config) FillDefaults() error {
	if err := mergo.Merge(c, defaultConfig()); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := NewInsuranceRegistry(c.Insurance); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads path, fills defaults and validates. An empty path yields
// the defaults alone.
func LoadConfig(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := c.FillDefaults(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
