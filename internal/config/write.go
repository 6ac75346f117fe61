package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joeycumines/launchman/internal/storage"
)

// SetKeyInFile updates or adds a global option key in the config file,
// keeping comments and every other line as they are. A new key goes before
// the first [section] header, or at the end when there is none. Keys inside
// [section] blocks are never matched.
func SetKeyInFile(path, key, value string) error {
	line := key
	if value != "" {
		line += " " + value
	}
	return editGlobalKey(path, key, func(lines []string, at, insertAt int) []string {
		if at >= 0 {
			lines[at] = line
			return lines
		}
		// keep a trailing newline last
		if insertAt == len(lines) && insertAt > 0 && lines[insertAt-1] == "" {
			insertAt--
		}
		return slices.Insert(lines, insertAt, line)
	})
}

// UnsetKeyInFile removes a global option key from the config file. A
// missing file or key is not an error.
func UnsetKeyInFile(path, key string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return editGlobalKey(path, key, func(lines []string, at, _ int) []string {
		if at < 0 {
			return lines
		}
		return slices.Delete(lines, at, at+1)
	})
}

// editGlobalKey locates key in the global section and rewrites the file
// with the lines edit returns. at is the key's line index or -1; insertAt
// is where a new global key belongs.
func editGlobalKey(path, key string, edit func(lines []string, at, insertAt int) []string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	at, insertAt := -1, len(lines)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			insertAt = i
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			at = i
			break
		}
	}

	result := strings.Join(edit(lines, at, insertAt), "\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return storage.AtomicWriteFile(path, []byte(result), 0644)
}
