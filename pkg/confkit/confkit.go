// Package confkit provides small helpers for layered YAML configuration:
// loading files through go-zero's conf package, resolving paths relative to
// the main config file, and hydrating sections that live in separate files.
package confkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeromicro/go-zero/core/conf"
)

// LoadFile parses a configuration file into T using go-zero's conf.Load.
// When useEnv is true, ${VAR} references in the file are expanded from the
// environment.
func LoadFile[T any](path string, useEnv bool) (*T, error) {
	var cfg T
	var opts []conf.Option
	if useEnv {
		opts = append(opts, conf.UseEnv())
	}
	if err := conf.Load(path, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolvePath expands environment variables in file and, unless it is
// absolute, joins it onto base.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory holding the main config file.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// Section is a config block whose contents live in their own file. File
// names the path, relative to the main config; Value holds the parsed
// contents after Hydrate.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate resolves the section's file path against base and runs loader on
// it, storing the result in Value. A section with no File is left empty.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.File == "" {
		return nil
	}
	path := ResolvePath(base, s.File)
	v, err := loader(path)
	if err != nil {
		return err
	}
	s.File = path
	s.Value = v
	return nil
}
