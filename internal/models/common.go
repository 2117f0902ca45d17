package models

import (
	"strconv"
	"time"
)

// BasicConfig is the opaque configuration bag handed to a connector. The
// aggregation core never interprets its contents; each connector pulls the
// keys it needs through the typed accessors below. All accessors are safe to
// call on a nil config so connectors can treat "no configuration" as a
// disabled source.
type BasicConfig map[string]any

func (c *BasicConfig) GetString(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	if value, ok := (*c)[key]; ok {
		if strValue, ok := value.(string); ok {
			return strValue, true
		}
	}
	return "", false
}

func (c *BasicConfig) GetStringWithDefault(key string, defaultValue string) string {
	if value, ok := c.GetString(key); ok && len(value) > 0 {
		return value
	}
	return defaultValue
}

func (c *BasicConfig) GetInt(key string) (int, bool) {
	if c == nil {
		return 0, false
	}
	if value, ok := (*c)[key]; ok {
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		case string:
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func (c *BasicConfig) GetIntWithDefault(key string, defaultValue int) int {
	if value, ok := c.GetInt(key); ok {
		return value
	}
	return defaultValue
}

func (c *BasicConfig) GetBool(key string) (bool, bool) {
	if c == nil {
		return false, false
	}
	if value, ok := (*c)[key]; ok {
		if boolValue, ok := value.(bool); ok {
			return boolValue, true
		}
	}
	return false, false
}

func (c *BasicConfig) GetBoolWithDefault(key string, defaultValue bool) bool {
	if value, ok := c.GetBool(key); ok {
		return value
	}
	return defaultValue
}

// GetDuration parses the value as a time.Duration. Plain numbers are read as
// seconds so YAML like `timeout: 10` keeps working.
func (c *BasicConfig) GetDuration(key string) (time.Duration, bool) {
	if c == nil {
		return 0, false
	}
	if value, ok := (*c)[key]; ok {
		switch v := value.(type) {
		case time.Duration:
			return v, true
		case int:
			return time.Duration(v) * time.Second, true
		case float64:
			return time.Duration(v * float64(time.Second)), true
		case string:
			if parsed, err := time.ParseDuration(v); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func (c *BasicConfig) GetDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value, ok := c.GetDuration(key); ok {
		return value
	}
	return defaultValue
}

func (c *BasicConfig) GetMap(key string) (map[string]any, bool) {
	if c == nil {
		return nil, false
	}
	if value, ok := (*c)[key]; ok {
		if mapValue, ok := value.(map[string]any); ok {
			return mapValue, true
		}
	}
	return nil, false
}

// GetStringSlice returns a string slice value. YAML and JSON decoding
// produce []any, so both representations are accepted.
func (c *BasicConfig) GetStringSlice(key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	value, ok := (*c)[key]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if strValue, ok := item.(string); ok {
				result = append(result, strValue)
			}
		}
		return result, true
	}
	return nil, false
}
