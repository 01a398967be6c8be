package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gferrors "github.com/vnykmshr/flowio/pkg/common/errors"
)

// DefaultEnvPrefix prefixes every environment override, e.g.
// FLOWIO_WRITABLE_HIGH_WATER_MARK.
const DefaultEnvPrefix = "FLOWIO"

// Loader builds a Config from defaults, a YAML file and the environment,
// in that order of precedence.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("flowio.yaml").
//	    Load()
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader returns a loader reading FLOWIO_* variables.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// WithConfigPath sets the YAML file. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix replaces the FLOWIO prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookupEnv replaces os.LookupEnv, mostly for tests.
func (l *Loader) WithLookupEnv(fn func(string) (string, bool)) *Loader {
	l.lookupEnv = fn
	return l
}

// Load returns the validated configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, err
		}
	}
	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is NewLoader().WithConfigPath(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return gferrors.NewOperationError(module, "ReadFile", err).WithContext("path=" + l.configPath)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return gferrors.NewOperationError(module, "Parse", err).WithContext("path=" + l.configPath)
	}
	return nil
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, key); err != nil {
				return err
			}
			continue
		}

		value, ok := l.lookupEnv(key)
		if !ok || value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return gferrors.NewValidationError(module, key, value, err.Error())
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool: %w", err)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
