// Package configbinder decodes loosely typed configuration maps into structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// BindProperties binds a map of properties to a target struct using mapstructure.
// It uses the "yaml" tag for field names and allows weakly typed input, so values
// produced by environment expansion (e.g. "5432", "true") decode into numeric and
// boolean fields.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	if len(properties) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(properties); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to struct %s: %w", targetType.Name(), err)
	}
	return nil
}
