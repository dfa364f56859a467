// Package recipe runs Go recipe scripts through the yaegi interpreter.
// Recipes generate pipeline YAML programmatically, for surveys where the
// document depends on the dataset: a recipe defines
//
//	func BuildPipeline(dataset string) (string, error)
//
// and receives the dataset tag when it runs. The interpreter carries only
// stdlib symbols, imports are checked against a short whitelist before
// anything evaluates, and execution is bounded by the caller's context.
package recipe

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"caustic/internal/logging"
)

// allowedImports lists the packages a recipe may import: text and number
// handling only. Filesystem, network and process access stay out.
var allowedImports = map[string]bool{
	"fmt":     true,
	"math":    true,
	"sort":    true,
	"strconv": true,
	"strings": true,
}

// Allowed returns the importable package paths, sorted.
func Allowed() []string {
	pkgs := make([]string, 0, len(allowedImports))
	for pkg := range allowedImports {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs
}

// Recipe is a parsed, import-checked recipe script.
type Recipe struct {
	name string
	src  string
	pkg  string
}

// Name returns the recipe's name, the file base name when loaded from disk.
func (r *Recipe) Name() string { return r.name }

// Load reads and parses a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	r, err := Parse(filepath.Base(path), string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse checks a recipe's imports against the whitelist. Sources without a
// package clause are wrapped into package main, so a recipe can be just the
// BuildPipeline function. Body errors surface later, from the interpreter.
func Parse(name, src string) (*Recipe, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, name, src, parser.ImportsOnly)
	if err != nil {
		wrapped := "package main\n\n" + src
		wfile, werr := parser.ParseFile(fset, name, wrapped, parser.ImportsOnly)
		if werr != nil {
			return nil, fmt.Errorf("failed to parse recipe: %w", err)
		}
		src, file = wrapped, wfile
	}

	for _, imp := range file.Imports {
		pkg := strings.Trim(imp.Path.Value, `"`)
		if !allowedImports[pkg] {
			return nil, fmt.Errorf("recipe import %q is not allowed (allowed: %s)",
				pkg, strings.Join(Allowed(), ", "))
		}
	}

	return &Recipe{name: name, src: src, pkg: file.Name.Name}, nil
}

// Build evaluates the recipe and calls its BuildPipeline with the dataset
// tag, returning the pipeline YAML it produces. The interpreter cannot be
// interrupted mid-call: when the context expires first, the call's
// goroutine runs on until the recipe returns.
func (r *Recipe) Build(ctx context.Context, dataset string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timer := logging.StartTimer(logging.CategoryRecipe, fmt.Sprintf("build %s", r.name))
	defer timer.Stop()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return "", fmt.Errorf("failed to load interpreter stdlib: %w", err)
	}
	if _, err := i.Eval(r.src); err != nil {
		return "", fmt.Errorf("recipe evaluation failed: %w", err)
	}

	v, err := i.Eval(r.pkg + ".BuildPipeline")
	if err != nil {
		return "", fmt.Errorf("recipe defines no BuildPipeline: %w", err)
	}
	build, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return "", fmt.Errorf("BuildPipeline must be func(string) (string, error)")
	}

	yamlCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		out, err := build(dataset)
		if err != nil {
			errCh <- err
			return
		}
		yamlCh <- out
	}()

	select {
	case out := <-yamlCh:
		logging.Recipe("recipe %s built %d bytes of pipeline YAML for dataset %q",
			r.name, len(out), dataset)
		return out, nil
	case err := <-errCh:
		return "", fmt.Errorf("recipe failed: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("recipe timed out: %w", ctx.Err())
	}
}
