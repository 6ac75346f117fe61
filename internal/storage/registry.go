package storage

import (
	"fmt"
	"sort"
)

// BackendFactory is a function that creates a new Provider instance.
type BackendFactory func() (Provider, error)

// BackendRegistry maps backend names to their factory functions.
var BackendRegistry = make(map[string]BackendFactory)

func init() {
	// The file system backend is the default
	BackendRegistry["fs"] = func() (Provider, error) {
		return NewFileSystemBackend(), nil
	}

	// An in-memory backend for testing and dry runs
	BackendRegistry["memory"] = func() (Provider, error) {
		return NewInMemoryBackend(), nil
	}
}

// GetBackend retrieves a backend by name and creates an instance.
func GetBackend(name string) (Provider, error) {
	factory, ok := BackendRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s", name)
	}
	return factory()
}

// BackendNames returns the registered backend names, sorted.
func BackendNames() []string {
	names := make([]string, 0, len(BackendRegistry))
	for name := range BackendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
