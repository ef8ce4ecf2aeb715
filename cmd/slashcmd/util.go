package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	runtimesvc "github.com/lexcodex/slashcmd/internal/runtime"
)

// readConfigMap deserializes config.yaml into a generic map for dotted lookups.
func readConfigMap(path string) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	bytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeConfigMap persists the config map back to YAML, creating directories.
func writeConfigMap(path string, data map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	bytes, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, bytes, 0o644)
}

// validateConfigMap decodes data into a Config so typos in value types are
// caught before they reach disk.
func validateConfigMap(data map[string]interface{}, workspace string) error {
	bytes, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	cfg := runtimesvc.Config{Workspace: workspace}
	if err := yaml.Unmarshal(bytes, &cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Normalize()
}

// getConfigValue traverses a nested map using dotted notation.
func getConfigValue(data map[string]interface{}, key string) (interface{}, bool) {
	var current interface{} = data
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, ok := m[part]
		if !ok {
			return nil, false
		}
		current = value
	}
	return current, true
}

// setConfigValue creates or replaces the nested key referenced by dotted
// notation. Intermediate scalars are not overwritten.
func setConfigValue(data map[string]interface{}, key string, value interface{}) error {
	parts := strings.Split(key, ".")
	current := data
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("invalid key %q", key)
		}
		if i == len(parts)-1 {
			current[part] = value
			return nil
		}
		existing, present := current[part]
		next, ok := existing.(map[string]interface{})
		if !ok {
			if present && existing != nil {
				return fmt.Errorf("%s is not a section", strings.Join(parts[:i+1], "."))
			}
			next = map[string]interface{}{}
			current[part] = next
		}
		current = next
	}
	return nil
}

// parseValue coerces CLI input into bool/int/float before storing.
func parseValue(input string) interface{} {
	if b, err := strconv.ParseBool(input); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(input, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil {
		return f
	}
	return input
}

// prettyValue renders nested values in a one-line format.
func prettyValue(v interface{}) string {
	switch value := v.(type) {
	case []interface{}:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			parts = append(parts, prettyValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		b, _ := yaml.Marshal(value)
		return strings.TrimSpace(string(b))
	default:
		return fmt.Sprint(value)
	}
}
