/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package params

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Extract extracts a required parameter from args with type safety.
// Returns an error if the parameter is missing or cannot be converted to T.
func Extract[T any](args map[string]any, name string) (T, error) {
	var zero T

	value, exists := args[name]
	if !exists {
		return zero, fmt.Errorf("%s parameter is required", name)
	}
	if v, ok := value.(T); ok {
		return v, nil
	}
	if v, ok := convert[T](value); ok {
		return v, nil
	}
	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// ExtractOptional extracts an optional parameter with a default value.
// Returns the default if the parameter doesn't exist, or an error if type conversion fails.
func ExtractOptional[T any](args map[string]any, name string, defaultValue T) (T, error) {
	if _, exists := args[name]; !exists {
		return defaultValue, nil
	}
	return Extract[T](args, name)
}

// convert handles the numeric shapes providers produce: JSON numbers decode
// to float64 or json.Number, and some models quote integers as strings.
func convert[T any](value any) (T, bool) {
	var zero T
	switch any(zero).(type) {
	case int:
		if n, ok := toInt64(value); ok && n >= math.MinInt && n <= math.MaxInt {
			return any(int(n)).(T), true
		}
	case int32:
		if n, ok := toInt64(value); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return any(int32(n)).(T), true
		}
	case int64:
		if n, ok := toInt64(value); ok {
			return any(n).(T), true
		}
	case string:
		switch v := value.(type) {
		case float64:
			if v == math.Trunc(v) {
				return any(strconv.FormatInt(int64(v), 10)).(T), true
			}
		case json.Number:
			return any(v.String()).(T), true
		}
	}
	return zero, false
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}
