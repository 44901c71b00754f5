// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// ParseMakeOptions converts loosely typed options, as decoded from a
// JSON request, into [MakeOptions]. Recognized keys:
//
//	checksums  list of algorithm names
//	checksum   list of algorithm names (older spelling, merged into checksums)
//	processes  integer
//	bag_info   mapping of tag name to string, number, bool or list of those
//	encoding   string
//
// Any other key is rejected with a *BagError.
func ParseMakeOptions(raw map[string]any) (MakeOptions, error) {
	var options MakeOptions
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case "checksums", "checksum":
			names, err := stringList(key, value)
			if err != nil {
				return MakeOptions{}, err
			}
			options.Checksums = append(options.Checksums, names...)
		case "processes":
			processes, err := integer(key, value)
			if err != nil {
				return MakeOptions{}, err
			}
			options.Processes = processes
		case "bag_info":
			info, err := bagInfo(value)
			if err != nil {
				return MakeOptions{}, err
			}
			options.Info = info
		case "encoding":
			encoding, ok := value.(string)
			if !ok {
				return MakeOptions{}, bagErrorf("option %q must be a string", key)
			}
			options.Encoding = encoding
		default:
			return MakeOptions{}, bagErrorf("unsupported make option %q", key)
		}
	}
	return options, nil
}

// ParseValidateOptions converts loosely typed options into
// [ValidateOptions]. Recognized keys are "processes" (integer), "fast"
// and "completeness_only" (booleans).
func ParseValidateOptions(raw map[string]any) (ValidateOptions, error) {
	var options ValidateOptions
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		switch key {
		case "processes":
			processes, err := integer(key, value)
			if err != nil {
				return ValidateOptions{}, err
			}
			options.Processes = processes
		case "fast", "completeness_only":
			flag, ok := value.(bool)
			if !ok {
				return ValidateOptions{}, bagErrorf("option %q must be a boolean", key)
			}
			if key == "fast" {
				options.Fast = flag
			} else {
				options.CompletenessOnly = flag
			}
		default:
			return ValidateOptions{}, bagErrorf("unsupported validate option %q", key)
		}
	}
	return options, nil
}

// sortedKeys makes option errors deterministic when several keys are
// wrong.
func sortedKeys(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func stringList(key string, value any) ([]string, error) {
	switch typed := value.(type) {
	case []string:
		return slices.Clone(typed), nil
	case []any:
		names := make([]string, 0, len(typed))
		for _, element := range typed {
			name, ok := element.(string)
			if !ok {
				return nil, bagErrorf("option %q must be a list of strings", key)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, bagErrorf("option %q must be a list of strings", key)
	}
}

func integer(key string, value any) (int, error) {
	switch typed := value.(type) {
	case int:
		return typed, nil
	case int64:
		return int(typed), nil
	case float64:
		if typed == math.Trunc(typed) && typed >= math.MinInt32 && typed <= math.MaxInt32 {
			return int(typed), nil
		}
	case json.Number:
		if parsed, err := strconv.Atoi(typed.String()); err == nil {
			return parsed, nil
		}
	}
	return 0, bagErrorf("option %q must be an integer", key)
}

func bagInfo(value any) (map[string][]string, error) {
	switch typed := value.(type) {
	case map[string][]string:
		info := make(map[string][]string, len(typed))
		for name, values := range typed {
			info[name] = slices.Clone(values)
		}
		return info, nil
	case map[string]string:
		info := make(map[string][]string, len(typed))
		for name, single := range typed {
			info[name] = []string{single}
		}
		return info, nil
	case map[string]any:
		info := make(map[string][]string, len(typed))
		for name, raw := range typed {
			values, err := tagValues(name, raw)
			if err != nil {
				return nil, err
			}
			info[name] = values
		}
		return info, nil
	default:
		return nil, bagErrorf("option %q must be a mapping", "bag_info")
	}
}

func tagValues(name string, raw any) ([]string, error) {
	if list, ok := raw.([]any); ok {
		values := make([]string, 0, len(list))
		for _, element := range list {
			value, err := scalarTag(name, element)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	}
	value, err := scalarTag(name, raw)
	if err != nil {
		return nil, err
	}
	return []string{value}, nil
}

func scalarTag(name string, raw any) (string, error) {
	switch typed := raw.(type) {
	case string:
		return typed, nil
	case bool:
		return strconv.FormatBool(typed), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	case json.Number:
		return typed.String(), nil
	default:
		return "", bagErrorf("bag_info value for %q must be a string, number, boolean or list of those", name)
	}
}

// String renders options for log output.
func (o MakeOptions) String() string {
	return fmt.Sprintf("checksums=%v processes=%d info=%d encoding=%q", o.Checksums, o.Processes, len(o.Info), o.Encoding)
}
