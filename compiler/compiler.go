// Package compiler chains the stages turning SQL text into a physical plan:
// parse, validate, build, simplify and optimize. A Compiler is immutable and
// safe for concurrent use; every call owns its trees and its memo.
package compiler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/opt"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/sema"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/dianpeng/sql2plan/sqlerr"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	Mode      opt.Mode
	Optimizer opt.Options

	// Registerer receives the compile metrics, nil disables them
	Registerer prometheus.Registerer
}

type Compiler struct {
	mode      opt.Mode
	validator *sema.Validator
	simplify  *opt.Simplifier
	optimizer *opt.Optimizer
	metrics   *metrics
}

// Compilation holds the output of every stage of one query
type Compilation struct {
	Text     string
	Parsed   *sql.Code
	Query    *sema.Query
	Logical  plan.Node // as built
	Simple   plan.Node // simplified
	Physical physical.Node
	Result   *opt.Result
}

func New(cat *catalog.Catalog, reg *operator.Registry, opts Options) (*Compiler, error) {
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		mode:      opts.Mode,
		validator: sema.New(cat, reg),
		simplify:  opt.NewSimplifier(reg),
		optimizer: opt.New(opts.Mode.Rules(), opts.Optimizer),
		metrics:   m,
	}, nil
}

func (self *Compiler) Mode() opt.Mode { return self.mode }

// Compile runs the whole pipeline. The stage that failed wraps the error,
// sqlerr.CodeOf still recovers the code of a query error.
func (self *Compiler) Compile(text string) (*Compilation, error) {
	start := time.Now()
	c, err := self.compile(text)
	self.metrics.observe(self.mode, c, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (self *Compiler) compile(text string) (*Compilation, error) {
	c := &Compilation{
		Text: text,
	}

	code, err := sql.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	c.Parsed = code
	if glog.V(1) {
		glog.Infof("compiler: parsed\n%s", sql.PrintCode(code))
	}

	q, err := self.validator.Validate(code)
	if err != nil {
		return nil, errors.Wrap(err, "validate")
	}
	c.Query = q
	if glog.V(1) {
		glog.Infof("compiler: validated, output %s", q.Schema)
	}

	logical, err := plan.Build(q)
	if err != nil {
		return nil, errors.Wrap(err, "build")
	}
	c.Logical = logical
	c.Simple = self.simplify.Simplify(logical)
	if err := plan.Check(c.Simple); err != nil {
		return nil, errors.Wrap(err, "simplify")
	}
	if glog.V(1) {
		glog.Infof("compiler: logical plan\n%s", plan.Explain(c.Simple))
	}

	res, err := self.optimizer.Optimize(c.Simple)
	if err != nil {
		return nil, errors.Wrapf(err, "optimize in %s mode", self.mode)
	}
	c.Result = res
	c.Physical = res.Plan
	if glog.V(1) {
		glog.Infof("compiler: %d passes, %d members, cost %s", res.Stats.Passes, res.Stats.Members, res.Cost)
	}
	return c, nil
}

// outcome labels a compile error by its code, or "ok"
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if _, ok := sqlerr.Get(err); ok {
		return sqlerr.CodeOf(err).String()
	}
	return "internal"
}
