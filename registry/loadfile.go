package registry

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// LoadFile interprets a Go source file with yaegi and registers every
// exported function it declares as a constructor, keyed by the function
// name. This is how the CLI gets real object constructors without
// recompiling: a user ships a plain .go file next to the logic program.
//
// Only stdlib imports are available to the interpreted file.
func (r *Registry) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("registry: read constructor file: %w", err)
	}
	return r.LoadSource(string(src))
}

// LoadSource is LoadFile for in-memory source text.
func (r *Registry) LoadSource(src string) error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("registry: load interpreter stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return fmt.Errorf("registry: evaluate constructor source: %w", err)
	}

	pkg := sourcePackage(src)
	symbols, ok := i.Symbols(pkg)[pkg]
	if !ok {
		return fmt.Errorf("registry: no symbols found in package %q", pkg)
	}

	registered := 0
	for name, val := range symbols {
		if val.Kind() != reflect.Func {
			continue
		}
		first := rune(name[0])
		if first < 'A' || first > 'Z' {
			continue
		}
		c, err := WrapFunc(val.Interface())
		if err != nil {
			return fmt.Errorf("registry: function %s: %w", name, err)
		}
		r.Replace(name, c)
		registered++
	}
	if registered == 0 {
		return fmt.Errorf("registry: package %q declares no exported functions", pkg)
	}
	return nil
}

func sourcePackage(src string) string {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "package "); ok {
			if i := strings.IndexAny(rest, " \t/"); i >= 0 {
				rest = rest[:i]
			}
			return rest
		}
	}
	return "main"
}
