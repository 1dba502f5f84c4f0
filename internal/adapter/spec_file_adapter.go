package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"twister.dev/pkg/twister/internal/interp"
	m "twister.dev/pkg/twister/internal/model"
	"twister.dev/pkg/twister/internal/suite"
)

// ErrNoSpecFiles is returned when the spec paths contain no spec files.
var ErrNoSpecFiles = errors.New("no spec files found")

// SpecFileAdapter turns YAML spec files into a suite world.
type SpecFileAdapter interface {
	LoadWorld(ctx context.Context, paths []m.Path, env suite.Env, opts suite.Options) (*suite.World, error)
}

// specGroup is the on-disk shape of a spec file and of its nested groups.
type specGroup struct {
	Describe string        `yaml:"describe"`
	Examples []specExample `yaml:"examples"`
	Groups   []specGroup   `yaml:"groups"`
}

type specExample struct {
	It      string    `yaml:"it"`
	Call    string    `yaml:"call"`
	Args    []any     `yaml:"args"`
	Value   string    `yaml:"value"`
	Expect  yaml.Node `yaml:"expect"`
	Error   bool      `yaml:"error"`
	Pending string    `yaml:"pending"`
}

// LocalSpecFileAdapter reads spec files from disk.
type LocalSpecFileAdapter struct {
	fs SourceFSAdapter
}

// NewLocalSpecFileAdapter constructs a LocalSpecFileAdapter.
func NewLocalSpecFileAdapter(fs SourceFSAdapter) *LocalSpecFileAdapter {
	return &LocalSpecFileAdapter{fs: fs}
}

// LoadWorld expands paths, decodes every spec file and adds one top-level
// group per file in path order.
func (a *LocalSpecFileAdapter) LoadWorld(ctx context.Context, paths []m.Path, env suite.Env, opts suite.Options) (*suite.World, error) {
	files, err := a.expand(paths)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, ErrNoSpecFiles
	}

	world := suite.NewWorld(env, opts)

	for _, file := range files {
		content, err := a.fs.ReadFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("read spec %s: %w", file, err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)

		var spec specGroup
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("decode spec %s: %w", file, err)
		}

		if spec.Describe == "" {
			spec.Describe = strings.TrimSuffix(filepath.Base(string(file)), filepath.Ext(string(file)))
		}

		if err := buildGroup(world.Describe(spec.Describe, nil), spec); err != nil {
			return nil, fmt.Errorf("spec %s: %w", file, err)
		}
	}

	return world, nil
}

func (a *LocalSpecFileAdapter) expand(paths []m.Path) ([]m.Path, error) {
	var files []m.Path

	for _, path := range paths {
		info, err := a.fs.FileInfo(path)
		if err != nil {
			return nil, fmt.Errorf("spec path %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		var found []m.Path

		err = a.fs.Walk(path, true, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if !fi.IsDir() && isSpecFile(p) {
				found = append(found, m.Path(p))
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("spec path %s: %w", path, err)
		}

		sort.Slice(found, func(i, j int) bool { return found[i] < found[j] })
		files = append(files, found...)
	}

	return files, nil
}

func isSpecFile(path string) bool {
	return strings.HasSuffix(path, "_spec.yaml") || strings.HasSuffix(path, "_spec.yml")
}

func buildGroup(g *suite.Group, spec specGroup) error {
	for _, ex := range spec.Examples {
		if ex.It == "" {
			return fmt.Errorf("example in %q has no description", spec.Describe)
		}

		if ex.Pending != "" {
			g.Skip(ex.It, ex.Pending)
			continue
		}

		body, err := exampleBody(ex)
		if err != nil {
			return fmt.Errorf("example %q: %w", ex.It, err)
		}

		g.It(ex.It, body)
	}

	for _, child := range spec.Groups {
		var buildErr error

		g.Describe(child.Describe, func(c *suite.Group) {
			buildErr = buildGroup(c, child)
		})

		if buildErr != nil {
			return buildErr
		}
	}

	return nil
}

func exampleBody(ex specExample) (suite.Body, error) {
	if ex.Call != "" && ex.Value != "" {
		return nil, errors.New("call and value are exclusive")
	}

	if ex.Call == "" && ex.Value == "" {
		return nil, errors.New("one of call or value is required")
	}

	hasExpect := !ex.Expect.IsZero()

	var expect any
	if hasExpect {
		if err := ex.Expect.Decode(&expect); err != nil {
			return nil, fmt.Errorf("expect: %w", err)
		}
	}

	return func(ctx context.Context, env suite.Env) error {
		var (
			got any
			err error
		)

		if ex.Call != "" {
			got, err = env.Call(ctx, ex.Call, ex.Args...)
		} else {
			got, err = env.Value(ex.Value)
		}

		if ex.Error {
			if err == nil {
				return fmt.Errorf("expected an error, got %s", interp.Format(got))
			}

			return nil
		}

		if err != nil {
			return err
		}

		if hasExpect && !interp.Equal(got, expect) {
			return fmt.Errorf("expected %s, got %s", interp.Format(expect), interp.Format(got))
		}

		return nil
	}, nil
}
