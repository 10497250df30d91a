package aspio

import (
	"io"

	"go.uber.org/zap"

	"aspio/asp"
	"aspio/iospec"
	"aspio/registry"
	"aspio/solver"
)

// Results streams the results of one Solve call, one per answer set.
// Close may be called at any point and stops the solver; errors of an
// already-exhausted stream surface through Next.
type Results struct {
	stream solver.AnswerSets
	output *iospec.OutputSpec
	reg    *registry.Registry
	log    *zap.Logger
	count  int
}

// Next returns the next result, or io.EOF after the last answer set.
func (r *Results) Next() (*Result, error) {
	as, err := r.stream.Next()
	if err != nil {
		return nil, err
	}
	r.count++
	r.log.Debug("received answer set", zap.Int("number", r.count))
	return &Result{
		answerSet: as,
		ev:        r.output.NewEvaluation(as, r.reg),
	}, nil
}

// All collects the remaining results and closes the stream.
func (r *Results) All() ([]*Result, error) {
	defer r.Close()
	var out []*Result
	for {
		res, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
}

// Each calls fn with the named output object of every remaining answer set,
// then closes the stream.
func (r *Results) Each(name string, fn func(any) error) error {
	defer r.Close()
	for {
		res, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		obj, err := res.Get(name)
		if err != nil {
			return err
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
}

// Close stops the solver and releases its resources.
func (r *Results) Close() error {
	return r.stream.Close()
}

// Result is one answer set, mapped to Go objects on demand.
type Result struct {
	answerSet asp.AnswerSet
	ev        *iospec.Evaluation
}

// Get materializes the named output object. Objects are built lazily and
// cached, so repeated calls return the same value.
func (res *Result) Get(name string) (any, error) {
	return res.ev.GetObject(name)
}

// AnswerSet exposes the raw answer set behind the result.
func (res *Result) AnswerSet() asp.AnswerSet {
	return res.answerSet
}
