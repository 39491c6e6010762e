package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rhino1998/smali/pkg/manifest"
	"github.com/rhino1998/smali/pkg/parser"
	"github.com/rhino1998/smali/pkg/smali"
	"github.com/rhino1998/smali/pkg/trace"
	"github.com/rhino1998/smali/pkg/vm"
)

// project is everything found at a PATH argument.
type project struct {
	manifest *manifest.Manifest
	classes  []*parser.Class
}

// openProject accepts a .smali file, a directory of them, or a directory
// holding a smali.toml.
func openProject(logger *slog.Logger, path string) (*project, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	var p project
	var fsys fs.FS
	var files []string

	if stat.IsDir() {
		ok, err := manifest.Exists(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}

		dirs := []string{"."}
		if ok {
			p.manifest, err = manifest.Load(path)
			if err != nil {
				return nil, err
			}
			dirs = p.manifest.SourceDirs()

			logger.Debug("loaded manifest",
				slog.String("project", p.manifest.Project.Name),
				slog.Any("dirs", dirs),
			)
		}

		fsys = os.DirFS(path)
		files, err = parser.Files(fsys, dirs...)
		if err != nil {
			return nil, fmt.Errorf("failed to find smali files in directory: %w", err)
		}
	} else {
		fsys = os.DirFS(filepath.Dir(path))
		files = []string{filepath.Base(path)}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no smali files found in %s", path)
	}

	p.classes, err = parser.ParseFS(fsys, files...)
	if err != nil {
		return nil, err
	}

	logger.Debug("parsed classes", slog.Int("count", len(p.classes)))

	return &p, nil
}

// config merges the manifest limits with any set on the command line.
func (p *project) config(maxSteps int64, maxDepth int) vm.Config {
	var config vm.Config
	if p.manifest != nil {
		config.MaxSteps = p.manifest.Run.MaxSteps
		config.MaxDepth = p.manifest.Run.MaxDepth
	}

	if maxSteps > 0 {
		config.MaxSteps = maxSteps
	}
	if maxDepth > 0 {
		config.MaxDepth = maxDepth
	}

	return config
}

// entry picks the class and method to run. Without an explicit class the
// first loaded class declaring the method is used.
func (p *project) entry(v *vm.VM, class, method string) (string, string, error) {
	if method == "" && p.manifest != nil {
		method = p.manifest.Run.Method
	}
	if method == "" {
		method = manifest.DefaultMethod
	}

	if class == "" && p.manifest != nil {
		class = p.manifest.Run.Entry
	}
	if class != "" {
		return class, method, nil
	}

	for _, desc := range v.Classes() {
		c, err := v.Class(desc)
		if err != nil {
			return "", "", err
		}

		m, ok := c.Method(method)
		if ok && m.Class().Descriptor() == desc {
			return desc, method, nil
		}
	}

	return "", "", fmt.Errorf("no class declares %s; pass --entry", method)
}

// run loads the project into a new VM and runs its entry method. When traceOut
// is set every executed instruction is recorded to it.
func (p *project) run(ctx context.Context, logger *slog.Logger, config vm.Config, class, method string, traceOut io.Writer) (*vm.VM, smali.Value, error) {
	var w *bufio.Writer
	if traceOut != nil {
		w = bufio.NewWriter(traceOut)
		config.Tracer = trace.NewRecorder(w)
	}

	v, err := vm.New(logger, config)
	if err != nil {
		return nil, smali.Value{}, fmt.Errorf("failed to initialize vm: %w", err)
	}

	err = v.Load(p.classes...)
	if err != nil {
		return nil, smali.Value{}, err
	}

	entry, method, err := p.entry(v, class, method)
	if err != nil {
		return nil, smali.Value{}, err
	}

	ret, err := v.Run(ctx, entry, method)

	if w != nil {
		flushErr := w.Flush()
		if flushErr != nil && err == nil {
			err = fmt.Errorf("failed to write trace: %w", flushErr)
		}
	}

	if err != nil {
		return nil, smali.Value{}, err
	}

	return v, ret, nil
}
