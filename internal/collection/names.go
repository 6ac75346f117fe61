package collection

import (
	"strconv"

	"github.com/joeycumines/launchman/internal/launch"
)

// CopySuffix is appended to the name of a duplicated entry.
const CopySuffix = " Copy"

// CopyName returns the name for a duplicate of name: "<name> Copy", or the
// first free "<name> Copy N" (N >= 2) when that is taken in doc.
func CopyName(doc *launch.Document, name string) string {
	base := name + CopySuffix
	if !doc.HasName(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + " " + strconv.Itoa(n)
		if !doc.HasName(candidate) {
			return candidate
		}
	}
}

// asConfiguration normalizes the value and pointer forms of a configuration.
func asConfiguration(e launch.Entry) (launch.Configuration, bool) {
	switch v := e.(type) {
	case launch.Configuration:
		return v, true
	case *launch.Configuration:
		if v != nil {
			return *v, true
		}
	}
	return launch.Configuration{}, false
}

func asCompound(e launch.Entry) (launch.Compound, bool) {
	switch v := e.(type) {
	case launch.Compound:
		return v, true
	case *launch.Compound:
		if v != nil {
			return *v, true
		}
	}
	return launch.Compound{}, false
}
