// Package manifest handles smali.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	FileName = "smali.toml"

	DefaultSourceDir = "src"
	DefaultMethod    = "main([Ljava/lang/String;)V"
)

type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	Run     Run     `toml:"run"`

	// Dir is the absolute directory holding the smali.toml file.
	Dir string `toml:"-"`
}

type Project struct {
	Name string `toml:"name"`
}

type Source struct {
	Dirs []string `toml:"dirs"`
}

// Run selects the entry point and the execution limits.
type Run struct {
	Entry    string `toml:"entry"`
	Method   string `toml:"method"`
	MaxSteps int64  `toml:"max-steps"`
	MaxDepth int    `toml:"max-depth"`
}

// Load parses the smali.toml file in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	return m, nil
}

// Parse decodes a manifest and applies defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	if m.Run.MaxSteps < 0 || m.Run.MaxDepth < 0 {
		return nil, fmt.Errorf("run limits must not be negative")
	}

	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{DefaultSourceDir}
	}

	if m.Run.Method == "" {
		m.Run.Method = DefaultMethod
	}

	return &m, nil
}

// Exists reports whether dir holds a smali.toml file.
func Exists(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// SourceDirs returns the configured source directories relative to Dir, in
// the slash-separated form fs.FS expects.
func (m *Manifest) SourceDirs() []string {
	dirs := make([]string, 0, len(m.Source.Dirs))
	for _, d := range m.Source.Dirs {
		dirs = append(dirs, filepath.ToSlash(filepath.Clean(d)))
	}
	return dirs
}
