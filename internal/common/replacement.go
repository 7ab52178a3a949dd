package common

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {key-name} references in config strings.
// Allows alphanumeric characters, hyphens, and underscores.
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences replaces every {key-name} in input with its value from kvMap.
// Unknown keys are left in place and logged.
//
// Example:
//
//	ReplaceKeyReferences("{gemini_api_key}", map[string]string{"gemini_api_key": "sk-123"})
//	Returns: "sk-123"
func ReplaceKeyReferences(input string, kvMap map[string]string, logger arbor.ILogger) string {
	if input == "" {
		return input
	}

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		keyName := match[1 : len(match)-1]
		if value, ok := kvMap[keyName]; ok {
			return value
		}
		logger.Warn().Str("key", keyName).Msg("Unresolved key reference - key not found in KV store")
		return match
	})
}

// ReplaceInStruct walks a struct pointer and replaces {key-name} references in
// string fields, string slices and map[string]string values.
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("ReplaceInStruct requires a pointer, got %T", v)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}
	replaceInStructValue(val, kvMap, logger)
	return nil
}

func replaceInStructValue(val reflect.Value, kvMap map[string]string, logger arbor.ILogger) {
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			old := field.String()
			if replaced := ReplaceKeyReferences(old, kvMap, logger); replaced != old {
				field.SetString(replaced)
				logger.Debug().Str("field", typ.Field(i).Name).Msg("Replaced key reference in config field")
			}

		case reflect.Struct:
			replaceInStructValue(field, kvMap, logger)

		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				replaceInStructValue(field.Elem(), kvMap, logger)
			}

		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				for j := 0; j < field.Len(); j++ {
					elem := field.Index(j)
					elem.SetString(ReplaceKeyReferences(elem.String(), kvMap, logger))
				}
			}

		case reflect.Map:
			if field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.String && !field.IsNil() {
				m := field.Interface().(map[string]string)
				for k, value := range m {
					m[k] = ReplaceKeyReferences(value, kvMap, logger)
				}
			}
		}
	}
}
