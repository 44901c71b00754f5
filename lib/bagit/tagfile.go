// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bagit

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// tag is one "Name: Value" element of a tag file (bagit.txt,
// bag-info.txt). Order is preserved because names may repeat.
type tag struct {
	Name  string
	Value string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readTagFile parses the tag file at path. Every error is a *BagError;
// it wraps fs.ErrNotExist when the file is absent, so callers can
// produce their own message for that case.
func readTagFile(path string) ([]tag, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &BagError{Message: "opening " + filepath.Base(path), Err: err}
	}
	defer file.Close()

	tags, err := parseTags(file)
	if err != nil {
		return nil, &BagError{Message: filepath.Base(path), Err: err}
	}
	return tags, nil
}

// parseTags reads "Name: Value" lines. A line starting with whitespace
// continues the previous value. Blank lines are ignored.
func parseTags(reader io.Reader) ([]tag, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var tags []tag
	lineNumber := 0
	for scanner.Scan() {
		line := scanner.Text()
		if lineNumber == 0 {
			line = strings.TrimPrefix(line, string(utf8BOM))
		}
		lineNumber++

		if strings.TrimSpace(line) == "" {
			continue
		}

		if unicode.IsSpace(rune(line[0])) && len(tags) > 0 {
			last := &tags[len(tags)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("invalid tag format on line %d", lineNumber)
		}
		tags = append(tags, tag{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return tags, scanner.Err()
}

// tagMap groups tag values by name, keeping every value of a repeated
// name in file order.
func tagMap(tags []tag) map[string][]string {
	values := make(map[string][]string, len(tags))
	for _, t := range tags {
		values[t.Name] = append(values[t.Name], t.Value)
	}
	return values
}

// firstValue returns the first value recorded for name.
func firstValue(values map[string][]string, name string) (string, bool) {
	list := values[name]
	if len(list) == 0 {
		return "", false
	}
	return list[0], true
}

// formatTags renders tags one per line, in the given order.
func formatTags(tags []tag) []byte {
	var buffer bytes.Buffer
	for _, t := range tags {
		fmt.Fprintf(&buffer, "%s: %s\n", t.Name, t.Value)
	}
	return buffer.Bytes()
}

// sortedTags flattens values into tags ordered by name. Values of a
// repeated name keep their order.
func sortedTags(values map[string][]string) []tag {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	var tags []tag
	for _, name := range names {
		for _, value := range values[name] {
			tags = append(tags, tag{Name: name, Value: value})
		}
	}
	return tags
}
