// Package infer derives launch configurations from a source file or from
// the project markers found in a directory.
package infer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeycumines/launchman/internal/launch"
)

// ErrUnsupported is returned when no generator recognizes the input.
var ErrUnsupported = errors.New("no launch configuration can be inferred")

// fileKind describes how a source file is launched.
type fileKind struct {
	lang    string
	typ     string
	program func(rel string) (key string, value launch.Value)
	extra   func(c *launch.Configuration)
}

var byExtension = map[string]fileKind{
	".go": {
		lang: "Go", typ: "go",
		program: programAttr,
		extra: func(c *launch.Configuration) {
			c.SetAttr("mode", launch.String("auto"))
		},
	},
	".py": {
		lang: "Python", typ: "debugpy",
		program: programAttr,
		extra: func(c *launch.Configuration) {
			c.SetAttr("console", launch.String("integratedTerminal"))
		},
	},
	".js":  {lang: "Node", typ: "node", program: programAttr, extra: skipNodeInternals},
	".mjs": {lang: "Node", typ: "node", program: programAttr, extra: skipNodeInternals},
	".cjs": {lang: "Node", typ: "node", program: programAttr, extra: skipNodeInternals},
	".ts": {
		lang: "TypeScript", typ: "node",
		program: programAttr,
		extra: func(c *launch.Configuration) {
			c.SetAttr("runtimeArgs", launch.Strings("--import", "tsx"))
			skipNodeInternals(c)
		},
	},
	".rs": {
		lang: "Rust", typ: "lldb",
		program: func(string) (string, launch.Value) {
			return "cargo", launch.ObjectValue(objectOf("args", launch.Strings("build")))
		},
	},
	".sh": {
		lang: "Shell", typ: "bashdb",
		program: programAttr,
	},
}

func programAttr(rel string) (string, launch.Value) {
	return "program", launch.String("${workspaceFolder}/" + filepath.ToSlash(rel))
}

func skipNodeInternals(c *launch.Configuration) {
	c.SetAttr("skipFiles", launch.Strings("<node_internals>/**"))
}

func objectOf(key string, v launch.Value) *launch.Object {
	o := launch.NewObject()
	o.Set(key, v)
	return o
}

// FromFile returns a configuration launching the file at path, which is
// referenced relative to root via ${workspaceFolder}.
func FromFile(root, path string) (launch.Configuration, error) {
	kind, ok := byExtension[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return launch.Configuration{}, fmt.Errorf("%w from %s", ErrUnsupported, filepath.Base(path))
	}
	rel, err := relative(root, path)
	if err != nil {
		return launch.Configuration{}, err
	}

	c := launch.Configuration{
		Name:    fmt.Sprintf("%s: %s", kind.lang, filepath.Base(path)),
		Type:    kind.typ,
		Request: launch.RequestLaunch,
	}
	key, value := kind.program(rel)
	c.SetAttr(key, value)
	if kind.extra != nil {
		kind.extra(&c)
	}
	return c, nil
}

// marker is a file whose presence identifies a kind of project.
type marker struct {
	file  string
	build func(dir, rel string) launch.Configuration
}

// markers are checked in order; the first present one wins.
var markers = []marker{
	{file: "go.mod", build: func(dir, rel string) launch.Configuration {
		c := named("Go: launch package", "go", rel)
		c.SetAttr("mode", launch.String("auto"))
		c.SetAttr("program", launch.String(workspacePath(rel)))
		return c
	}},
	{file: "manage.py", build: func(dir, rel string) launch.Configuration {
		c := named("Python: Django", "debugpy", rel)
		c.SetAttr("program", launch.String(workspacePath(filepath.Join(rel, "manage.py"))))
		c.SetAttr("args", launch.Strings("runserver"))
		c.SetAttr("django", launch.Bool(true))
		return c
	}},
	{file: "pyproject.toml", build: func(dir, rel string) launch.Configuration {
		c := named("Python: module", "debugpy", rel)
		c.SetAttr("module", launch.String(pythonModule(dir)))
		c.SetAttr("cwd", launch.String(workspacePath(rel)))
		return c
	}},
	{file: "package.json", build: func(dir, rel string) launch.Configuration {
		c := named("Node: npm start", "node", rel)
		c.SetAttr("runtimeExecutable", launch.String("npm"))
		c.SetAttr("runtimeArgs", launch.Strings("run-script", "start"))
		c.SetAttr("cwd", launch.String(workspacePath(rel)))
		skipNodeInternals(&c)
		return c
	}},
	{file: "Cargo.toml", build: func(dir, rel string) launch.Configuration {
		c := named("Rust: cargo run", "lldb", rel)
		c.SetAttr("cargo", launch.ObjectValue(objectOf("args", launch.Strings("build"))))
		c.SetAttr("cwd", launch.String(workspacePath(rel)))
		return c
	}},
}

func named(name, typ, rel string) launch.Configuration {
	if rel != "." && rel != "" {
		name += " (" + filepath.ToSlash(rel) + ")"
	}
	return launch.Configuration{Name: name, Type: typ, Request: launch.RequestLaunch}
}

func workspacePath(rel string) string {
	if rel == "." || rel == "" {
		return "${workspaceFolder}"
	}
	return "${workspaceFolder}/" + filepath.ToSlash(rel)
}

// FromDirectory returns a configuration for the project in dir, chosen by
// the first marker file present.
func FromDirectory(root, dir string) (launch.Configuration, error) {
	rel, err := relative(root, dir)
	if err != nil {
		return launch.Configuration{}, err
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m.file)); err == nil {
			return m.build(dir, rel), nil
		}
	}
	return launch.Configuration{}, fmt.Errorf("%w from directory %s", ErrUnsupported, dir)
}

// pythonModule guesses the importable name of a project directory.
func pythonModule(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	name := filepath.Base(dir)
	return strings.ReplaceAll(name, "-", "_")
}

// Markers returns the recognized marker file names in priority order.
func Markers() []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = m.file
	}
	return out
}

func relative(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("%s is not inside %s: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not inside %s", path, root)
	}
	return rel, nil
}
