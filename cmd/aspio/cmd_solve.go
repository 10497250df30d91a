package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aspio"
	"aspio/solver"
)

var (
	inputPath    string
	registryPath string
	backend      string
	solverPath   string
	number       int
	maxInt       int
	watch        bool
)

var solveCmd = &cobra.Command{
	Use:   "solve [program.dl...]",
	Short: "Solve annotated ASP programs and print their output objects",
	Long: `Solves the given ASP programs and prints one JSON object per answer
set, holding every name declared in the OUTPUT annotation.

Input arguments come from a JSON file holding an array, one element per
INPUT parameter. Constructors referenced by OUTPUT expressions can be
loaded from a Go source file with --registry.

Example:
  aspio solve coloring.dl --input graph.json -n 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&inputPath, "input", "i", "", "JSON file with the input argument array")
	f.StringVar(&registryPath, "registry", "", "Go source file with output constructors")
	f.StringVar(&backend, "backend", "", "solver backend: dlvhex2 or mangle")
	f.StringVar(&solverPath, "solver", "", "path to the dlvhex2 executable")
	f.IntVarP(&number, "number", "n", 0, "maximum number of answer sets (0 = all)")
	f.IntVar(&maxInt, "maxint", 0, "bound for the solver's integer domain")
	f.BoolVarP(&watch, "watch", "w", false, "re-solve whenever a program or input file changes")
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !watch {
		return solveOnce(ctx, args)
	}
	return watchAndSolve(ctx, args)
}

func solveOnce(ctx context.Context, files []string) error {
	prog, err := buildProgram(files)
	if err != nil {
		return err
	}
	inputArgs, err := readInputArgs()
	if err != nil {
		return err
	}

	results, err := prog.Solve(ctx, inputArgs...)
	if err != nil {
		return err
	}
	defer results.Close()

	enc := json.NewEncoder(os.Stdout)
	names := prog.OutputSpec().Names()
	n := 0
	for {
		res, err := results.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		obj := make(map[string]any, len(names))
		for _, name := range names {
			v, err := res.Get(name)
			if err != nil {
				return fmt.Errorf("output %s: %w", name, err)
			}
			obj[name] = jsonValue(v)
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
		n++
	}
	logger.Debug("solve finished", zap.Int("answer_sets", n))
	if err := results.Close(); err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(os.Stderr, "no answer set")
	}
	return nil
}

// watchAndSolve re-runs the solve whenever one of the involved files
// changes. Solver failures are reported and watching continues.
func watchAndSolve(ctx context.Context, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := append([]string(nil), files...)
	if inputPath != "" {
		watched = append(watched, inputPath)
	}
	if registryPath != "" {
		watched = append(watched, registryPath)
	}
	for _, path := range watched {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
	}

	run := func() {
		if err := solveOnce(ctx, files); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("file changed", zap.String("path", ev.Name))
			// Editors often replace the file, which drops the watch.
			watcher.Add(ev.Name)
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

// buildProgram assembles a program from the command line and config file.
func buildProgram(files []string) (*aspio.Program, error) {
	prog := aspio.New()
	prog.Logger = logger
	for _, path := range files {
		if err := prog.AppendFile(path); err != nil {
			return nil, err
		}
	}

	regPath := registryPath
	if regPath == "" {
		regPath = cfg.Registry
	}
	if regPath != "" {
		if err := prog.Registry.LoadFile(regPath); err != nil {
			return nil, fmt.Errorf("loading registry %s: %w", regPath, err)
		}
	}

	be := backend
	if be == "" {
		be = cfg.Backend
	}
	switch be {
	case "", "dlvhex2":
		s := solver.NewDlvhex2()
		if solverPath != "" {
			s.Executable = solverPath
		} else if cfg.Solver != "" {
			s.Executable = cfg.Solver
		}
		s.Logger = logger
		prog.Solver = s
	case "mangle":
		s := solver.NewMangle()
		s.Logger = logger
		prog.Solver = s
	default:
		return nil, fmt.Errorf("unknown backend %q (want dlvhex2 or mangle)", be)
	}

	prog.Options.MaxAnswerSets = number
	if maxInt > 0 {
		prog.Options.MaxInt = maxInt
	} else if cfg.MaxInt > 0 {
		prog.Options.MaxInt = cfg.MaxInt
	}
	return prog, nil
}

// readInputArgs decodes the --input JSON array. JSON numbers decode as int
// where possible so they marshal into plain integer facts.
func readInputArgs() ([]any, error) {
	if inputPath == "" {
		return nil, nil
	}
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w", inputPath, err)
	}
	args := make([]any, len(raw))
	for i, v := range raw {
		args[i] = normalizeJSON(v)
	}
	return args, nil
}

// normalizeJSON turns json.Number into int (or float64) recursively.
func normalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i, e := range x {
			x[i] = normalizeJSON(e)
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeJSON(e)
		}
		return x
	}
	return v
}

// jsonValue rewrites output objects into something encoding/json accepts:
// map[any]any keys become strings, [2]any pairs become arrays.
func jsonValue(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[fmt.Sprint(jsonValue(k))] = jsonValue(e)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case [2]any:
		return []any{jsonValue(x[0]), jsonValue(x[1])}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = jsonValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = jsonValue(iter.Value().Interface())
		}
		return m
	}
	return v
}
