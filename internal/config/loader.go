package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

const moduleName = "config"

// EnvPrefix prefixes every environment override, e.g. FORECASTPIPE_INGEST_LOOKBACK_DAYS.
const EnvPrefix = "FORECASTPIPE_"

var validate = validator.New()

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// EnvFilePath is an optional .env file. When empty, ./.env is tried silently.
	EnvFilePath string
	// Embedded is the base YAML document.
	Embedded EmbeddedConfig
	// OverridePath is an optional YAML file applied on top of Embedded.
	OverridePath string
	// Expander expands ${VAR} placeholders. Defaults to OsEnvironmentExpander.
	Expander EnvironmentExpander
}

// LoadConfig builds the configuration in this order:
//
//  1. defaults from NewConfig
//  2. the embedded YAML, after ${VAR} expansion
//  3. the optional override file, after ${VAR} expansion
//  4. FORECASTPIPE_* environment variables
//
// and validates the result. A .env file is loaded into the process environment
// first; it never overrides variables that are already set.
//
// Parameters:
//
//	opts: The configuration sources.
//
// Returns:
//
//	The validated Config, or an error if a source cannot be read or decoded
//	or the result fails validation.
func LoadConfig(opts LoadOptions) (*Config, error) {
	if opts.EnvFilePath != "" {
		if err := godotenv.Load(opts.EnvFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", opts.EnvFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	expander := opts.Expander
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	cfg := NewConfig()

	if len(opts.Embedded) > 0 {
		if err := applyYAML(cfg, opts.Embedded, expander); err != nil {
			return nil, exception.New(moduleName, exception.KindConfig, "failed to apply embedded config", err)
		}
	}

	if opts.OverridePath != "" {
		raw, err := os.ReadFile(opts.OverridePath)
		if err != nil {
			return nil, exception.Newf(moduleName, exception.KindConfig, "failed to read config file %s", opts.OverridePath, err)
		}
		if err := applyYAML(cfg, raw, expander); err != nil {
			return nil, exception.Newf(moduleName, exception.KindConfig, "failed to apply config file %s", opts.OverridePath, err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix); err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "failed to load config from environment variables", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyYAML decodes raw over cfg. Keys absent from raw keep their current value.
//
// Placeholders are expanded after parsing and only inside string scalars, so an
// environment value is taken verbatim and never interpreted as YAML.
//
// Parameters:
//
//	cfg: The configuration to update in place.
//	raw: The YAML document.
//	expander: Expands ${VAR} placeholders in string scalars.
//
// Returns:
//
//	A wrapped error from the first stage that fails.
func applyYAML(cfg *Config, raw []byte, expander EnvironmentExpander) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	if err := expandNode(&doc, expander); err != nil {
		return fmt.Errorf("failed to expand environment variables: %w", err)
	}
	if err := doc.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode yaml: %w", err)
	}
	return nil
}

// expandNode expands placeholders in every string scalar below n. Mapping keys are
// left untouched. An expanded scalar stays a string whatever its text looks like.
func expandNode(n *yaml.Node, expander EnvironmentExpander) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" || !strings.Contains(n.Value, "$") {
			return nil
		}
		expanded, err := expander.Expand(n.Value)
		if err != nil {
			return err
		}
		n.Value = expanded
		n.Tag = "!!str"
		n.Style = yaml.DoubleQuotedStyle
	case yaml.MappingNode:
		for i := 1; i < len(n.Content); i += 2 {
			if err := expandNode(n.Content[i], expander); err != nil {
				return err
			}
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if err := expandNode(c, expander); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks struct constraints and cross-field rules.
//
// Parameters:
//
//	cfg: The configuration to check.
//
// Returns:
//
//	nil if cfg is valid, otherwise an error naming the failing fields.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return exception.New(moduleName, exception.KindConfig, "invalid configuration", err)
	}
	if _, err := cfg.System.Location(); err != nil {
		return exception.New(moduleName, exception.KindConfig, "invalid configuration", err)
	}
	if cfg.Secret.Provider == "env" && cfg.Forecast.APIKey == "" {
		logger.Warnf("Secret provider is 'env' but forecast.api_key is empty; fetch runs will fail.")
	}
	return nil
}

// loadStructFromEnv recursively loads values into a struct from environment variables.
// The variable name is the upper-cased prefix plus the field's yaml tag; nested structs
// extend the prefix with "_". Map fields are skipped.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch field.Kind() {
		case reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		case reflect.Map:
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField converts value to the field's kind. String slices are comma-separated.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type %s", field.Type().Elem())
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
