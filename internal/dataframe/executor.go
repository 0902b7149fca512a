package dataframe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/paveg/polecat/internal/config"
	"github.com/paveg/polecat/internal/errors"
	"github.com/paveg/polecat/internal/expr"
	"github.com/paveg/polecat/internal/monitoring"
	"github.com/paveg/polecat/internal/parallel"
	"github.com/paveg/polecat/internal/series"
	"github.com/paveg/polecat/internal/validation"
)

//nolint:gochecknoglobals // process-wide default used by executors built without WithLogger
var (
	defaultLogger      log.Logger = log.NewNopLogger()
	defaultLoggerMutex sync.RWMutex
)

// SetDefaultLogger sets the logger of executors created afterwards without
// an explicit logger. nil restores the no-op logger.
func SetDefaultLogger(logger log.Logger) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	defaultLoggerMutex.Lock()
	defer defaultLoggerMutex.Unlock()
	defaultLogger = logger
}

func getDefaultLogger() log.Logger {
	defaultLoggerMutex.RLock()
	defer defaultLoggerMutex.RUnlock()
	return defaultLogger
}

// Executor optimizes and evaluates plans
type Executor struct {
	config    config.Config
	logger    log.Logger
	metrics   *monitoring.Metrics
	mem       memory.Allocator
	optimizer *QueryOptimizer
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithConfig sets the engine configuration
func WithConfig(cfg config.Config) ExecutorOption {
	return func(e *Executor) { e.config = cfg.WithDefaults() }
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithMetrics sets the metrics; without it the global metrics are used.
// Nothing is recorded unless the configuration enables MetricsCollection.
func WithMetrics(m *monitoring.Metrics) ExecutorOption {
	return func(e *Executor) { e.metrics = m }
}

// WithAllocator sets the allocator results are built with
func WithAllocator(mem memory.Allocator) ExecutorOption {
	return func(e *Executor) { e.mem = mem }
}

// NewExecutor creates an executor using the global configuration unless
// overridden.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{config: config.GetGlobalConfig().WithDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = getDefaultLogger()
	}
	if e.mem == nil {
		e.mem = memory.NewGoAllocator()
	}
	e.optimizer = NewQueryOptimizer(e.config.LimitPushdown)
	return e
}

// Collect optimizes and runs the plan rooted at root
func (e *Executor) Collect(ctx context.Context, root planNode) (*DataFrame, error) {
	return e.run(ctx, "collect", root)
}

// Fetch runs the plan and keeps at most n rows
func (e *Executor) Fetch(ctx context.Context, root planNode, n int) (*DataFrame, error) {
	if n < 0 {
		n = 0
	}
	return e.run(ctx, "fetch", &sliceNode{input: root, offset: 0, length: n})
}

// Schema runs the plan over zero-row inputs and returns its output schema
func (e *Executor) Schema(ctx context.Context, root planNode) (*arrow.Schema, error) {
	r := e.newRun(ctx, true)
	defer r.close()
	df, err := r.execute(ctx, root)
	if err != nil {
		return nil, err
	}
	defer df.Release()
	return df.Schema(), nil
}

func (e *Executor) run(ctx context.Context, op string, root planNode) (*DataFrame, error) {
	var metrics *monitoring.Metrics
	if e.config.MetricsCollection {
		metrics = monitoring.Resolve(e.metrics)
	}
	var out *DataFrame
	err := metrics.RecordOperation(op, func() (int, error) {
		start := time.Now()
		optimized, rewrites := e.optimizer.Optimize(root)
		if len(rewrites) > 0 {
			level.Debug(e.logger).Log("msg", "optimized plan", "op", op, "rewrites", strings.Join(rewrites, ","))
		}
		plan := describePlan(optimized)
		level.Debug(e.logger).Log("msg", "executing plan", "op", op, "nodes", plan.GetOperationCount())

		r := e.newRun(ctx, false)
		defer r.close()
		df, err := r.execute(ctx, optimized)
		if err != nil {
			level.Debug(e.logger).Log("msg", "plan failed", "op", op, "err", err)
			return 0, err
		}
		out = df
		level.Debug(e.logger).Log("msg", "plan finished", "op", op, "rows", df.Len(), "columns", df.Width(), "duration", time.Since(start))
		return df.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// run is the state of one plan evaluation
type run struct {
	*Executor
	eval       *expr.Evaluator
	pool       *parallel.WorkerPool
	schemaOnly bool
}

func (e *Executor) newRun(ctx context.Context, schemaOnly bool) *run {
	return &run{
		Executor:   e,
		eval:       expr.NewEvaluator(e.mem),
		pool:       parallel.NewWorkerPool(ctx, e.config.Workers()),
		schemaOnly: schemaOnly,
	}
}

func (r *run) close() {
	r.pool.Close()
}

// parallel reports whether work over n rows or groups is worth fanning out
func (r *run) parallel(n int) bool {
	return r.pool.Workers() > 1 && n >= r.config.ParallelThreshold
}

// execute evaluates node bottom-up. The returned frame is owned by the
// caller; input frames are released once the node has consumed them.
func (r *run) execute(ctx context.Context, node planNode) (*DataFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputs := node.inputs()
	frames := make([]*DataFrame, 0, len(inputs))
	defer func() {
		for _, f := range frames {
			f.Release()
		}
	}()
	for _, in := range inputs {
		df, err := r.execute(ctx, in)
		if err != nil {
			return nil, err
		}
		frames = append(frames, df)
	}

	out, err := r.apply(ctx, node, frames)
	if err != nil {
		typ, _ := node.describe()
		return nil, fmt.Errorf("evaluating %s: %w", strings.ToLower(typ), err)
	}
	return out, nil
}

func (r *run) apply(ctx context.Context, node planNode, frames []*DataFrame) (*DataFrame, error) {
	switch n := node.(type) {
	case *dataFrameScan:
		if r.schemaOnly {
			return n.df.Slice(0, 0), nil
		}
		return n.df.Clone(), nil
	case *sourceScan:
		if r.schemaOnly {
			schema, err := n.source.Schema(ctx)
			if err != nil {
				return nil, err
			}
			return EmptyFromSchema(schema, r.mem)
		}
		return n.source.Read(ctx, n.limit, r.mem)
	case *selectNode:
		return r.selectColumns(ctx, frames[0], n.exprs)
	case *withColumnsNode:
		return r.withColumns(ctx, frames[0], n.exprs)
	case *filterNode:
		return r.filter(ctx, frames[0], n.predicate)
	case *sortNode:
		return r.sort(ctx, frames[0], n.by, n.opts)
	case *aggregateNode:
		return r.aggregate(ctx, frames[0], n.keys, n.aggs)
	case *joinNode:
		return r.joinInner(ctx, frames[0], frames[1], n.leftOn, n.rightOn)
	case *unionNode:
		return r.union(frames)
	case *sliceNode:
		return frames[0].Slice(n.offset, n.length), nil
	}
	return nil, errors.NewExecutionError("Execute", fmt.Sprintf("unsupported plan node %T", node))
}

// evaluateAll evaluates exprs against df. On failure nothing is leaked.
func (r *run) evaluateAll(ctx context.Context, df *DataFrame, exprs []expr.Expr) ([]arrow.Array, error) {
	cols := df.arrays()
	if len(exprs) > 1 && r.parallel(df.Len()) {
		results, err := parallel.ProcessIndexed(r.pool, exprs, func(ctx context.Context, _ int, e expr.Expr) (arrow.Array, error) {
			return r.eval.Evaluate(ctx, e, cols)
		})
		if err != nil {
			releaseArrays(results)
			return nil, err
		}
		return results, nil
	}

	results := make([]arrow.Array, 0, len(exprs))
	for _, e := range exprs {
		arr, err := r.eval.Evaluate(ctx, e, cols)
		if err != nil {
			releaseArrays(results)
			return nil, err
		}
		results = append(results, arr)
	}
	return results, nil
}

// fitHeight broadcasts length-1 results to height and rejects any other
// mismatch. It replaces entries of results in place.
func (r *run) fitHeight(op string, names []string, results []arrow.Array, height int) error {
	for i, arr := range results {
		switch {
		case arr.Len() == height:
		case arr.Len() == 1:
			wide, err := series.Broadcast(arr, height, r.mem)
			if err != nil {
				return err
			}
			arr.Release()
			results[i] = wide
		default:
			return &errors.DataFrameError{
				Kind:    errors.KindExecution,
				Op:      op,
				Column:  names[i],
				Message: fmt.Sprintf("expression produced %d rows, expected %d", arr.Len(), height),
			}
		}
	}
	return nil
}

func (r *run) selectColumns(ctx context.Context, df *DataFrame, exprs []expr.Expr) (*DataFrame, error) {
	names := outputNames(exprs)
	if err := checkProjection("Select", df, exprs, names); err != nil {
		return nil, err
	}
	results, err := r.evaluateAll(ctx, df, exprs)
	if err != nil {
		return nil, err
	}

	height := 1
	for _, arr := range results {
		if arr.Len() != 1 {
			height = arr.Len()
			break
		}
	}
	if err := r.fitHeight("Select", names, results, height); err != nil {
		releaseArrays(results)
		return nil, err
	}
	return fromArrays(names, results)
}

func (r *run) withColumns(ctx context.Context, df *DataFrame, exprs []expr.Expr) (*DataFrame, error) {
	if df.Width() == 0 {
		return r.selectColumns(ctx, df, exprs)
	}
	names := outputNames(exprs)
	if err := checkProjection("WithColumns", df, exprs, names); err != nil {
		return nil, err
	}
	results, err := r.evaluateAll(ctx, df, exprs)
	if err != nil {
		return nil, err
	}
	if err := r.fitHeight("WithColumns", names, results, df.Len()); err != nil {
		releaseArrays(results)
		return nil, err
	}

	cols := make([]*series.Series, 0, df.Width()+len(results))
	for _, s := range df.columns {
		cols = append(cols, s.Rename(s.Name()))
	}
	for i, arr := range results {
		s := series.Wrap(names[i], arr)
		if at, ok := df.index[names[i]]; ok {
			cols[at].Release()
			cols[at] = s
			continue
		}
		cols = append(cols, s)
	}
	return newOwned(cols), nil
}

// checkProjection fails with a schema error when exprs read a column df
// lacks or two outputs share a name.
func checkProjection(op string, df *DataFrame, exprs []expr.Expr, names []string) error {
	return validation.NewCompoundValidator(
		validation.NewColumnValidator(df, op, referencedColumns(exprs...)...),
		validation.NewUniqueNamesValidator(op, names...),
	).Validate()
}

func (r *run) filter(ctx context.Context, df *DataFrame, predicate expr.Expr) (*DataFrame, error) {
	if err := validation.ValidateColumns(df, "Filter", referencedColumns(predicate)...); err != nil {
		return nil, err
	}
	mask, err := r.eval.EvaluateBoolean(ctx, predicate, df.arrays())
	if err != nil {
		return nil, err
	}
	defer mask.Release()

	switch mask.Len() {
	case df.Len():
	case 1:
		if mask.IsValid(0) && mask.Value(0) {
			return df.Clone(), nil
		}
		return df.Slice(0, 0), nil
	default:
		return nil, errors.NewExecutionError("Filter",
			fmt.Sprintf("predicate produced %d rows, frame has %d", mask.Len(), df.Len()))
	}

	keep := series.TrueIndices(mask)
	if len(keep) == df.Len() {
		return df.Clone(), nil
	}
	return df.Take(keep, r.mem)
}

func (r *run) union(frames []*DataFrame) (*DataFrame, error) {
	first := frames[0].Schema()
	for i := 1; i < len(frames); i++ {
		if err := compareSchemas(first, frames[i].Schema(), i); err != nil {
			return nil, err
		}
	}

	names := frames[0].Columns()
	arrays := make([]arrow.Array, 0, len(names))
	for c := range names {
		parts := make([]arrow.Array, len(frames))
		for i, f := range frames {
			parts[i] = f.columns[c].Borrow()
		}
		arr, err := array.Concatenate(parts, r.mem)
		if err != nil {
			releaseArrays(arrays)
			return nil, errors.Wrap(errors.KindExecution, "Concat", err)
		}
		arrays = append(arrays, arr)
	}
	return fromArrays(names, arrays)
}
