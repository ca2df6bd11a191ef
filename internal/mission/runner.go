package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/lander/internal/dynamo"
	"github.com/san-kum/lander/internal/estimator"
	"github.com/san-kum/lander/internal/linalg"
	"github.com/san-kum/lander/internal/logging"
	"github.com/san-kum/lander/internal/plant"
	"github.com/san-kum/lander/internal/regulator"
	"gonum.org/v1/gonum/mat"
)

// ErrFinished is returned by Step once the mission has stopped.
var ErrFinished = errors.New("mission: finished")

// StopReason says why a mission ended.
type StopReason string

const (
	Running   StopReason = ""
	Landed    StopReason = "landed"
	TimedOut  StopReason = "duration"
	Cancelled StopReason = "cancelled"
	Failed    StopReason = "failed"
)

// Record is one row of the trajectory log.
type Record struct {
	Step        int     `json:"step"`
	Time        float64 `json:"t"`
	Measurement float64 `json:"y"`
	Height      float64 `json:"h"`
	Velocity    float64 `json:"v"`
	EstHeight   float64 `json:"h_est"`
	EstVelocity float64 `json:"v_est"`
	EstGravity  float64 `json:"g_est"`
	Thrust      float64 `json:"u"`
	Innovation  float64 `json:"innovation"`
	CovTrace    float64 `json:"trace_p"`
}

type Result struct {
	Records []Record
	Reason  StopReason
	Steps   int
	Time    float64
	Metrics map[string]float64
}

// Final returns the last record, or the zero record for an empty run.
func (r *Result) Final() Record {
	if len(r.Records) == 0 {
		return Record{}
	}
	return r.Records[len(r.Records)-1]
}

type Option func(*Runner)

func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

func WithMetrics(ms ...dynamo.Metric) Option {
	return func(r *Runner) { r.metrics = append(r.metrics, ms...) }
}

func WithObserver(o dynamo.Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithoutRecords stops the runner from keeping its trajectory in memory.
func WithoutRecords() Option {
	return func(r *Runner) { r.record = false }
}

// Runner owns one closed-loop mission. It is not safe for concurrent use.
type Runner struct {
	plant    *plant.Plant
	filter   *estimator.Filter
	ctrl     dynamo.Controller
	schedule *regulator.GainSchedule
	duration float64

	log       *slog.Logger
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	record    bool

	y        float64
	u        dynamo.Control
	step     int
	reason   StopReason
	records  []Record
	terminal *Record
}

// New wires a plant, an initialized filter and a controller. schedule is
// the gain schedule behind an LQR controller and may be nil.
func New(p *plant.Plant, f *estimator.Filter, ctrl dynamo.Controller, schedule *regulator.GainSchedule, duration float64, opts ...Option) (*Runner, error) {
	if p == nil || f == nil || ctrl == nil {
		return nil, fmt.Errorf("mission: plant, filter and controller are required")
	}
	if !f.Ready() {
		return nil, fmt.Errorf("mission: %w", estimator.ErrNotInitialized)
	}
	if !(duration > 0) {
		return nil, fmt.Errorf("mission: duration must be positive, got %g", duration)
	}
	r := &Runner{
		plant:    p,
		filter:   f,
		ctrl:     ctrl,
		schedule: schedule,
		duration: duration,
		log:      slog.New(slog.DiscardHandler),
		record:   true,
		// the first height is read without measurement noise
		y: p.Height(),
		u: dynamo.Control{0},
	}
	for _, opt := range opts {
		opt(r)
	}
	if l, ok := ctrl.(interface{ SetLogger(*slog.Logger) }); ok {
		l.SetLogger(r.log)
	}
	for _, m := range r.metrics {
		m.Reset()
	}
	return r, nil
}

// Step runs one estimate-control-propagate-measure cycle and returns the
// record of that step. The step that ends the mission also filters the last
// measurement and emits the terminal sample.
func (r *Runner) Step() (Record, error) {
	if r.reason != Running {
		return Record{}, ErrFinished
	}

	y := mat.NewVecDense(1, []float64{r.y})
	u := mat.NewVecDense(len(r.u), []float64(r.u))
	est, err := r.filter.Update(y, u)
	if err != nil {
		r.reason = Failed
		return Record{}, fmt.Errorf("mission step %d: %w", r.step, err)
	}
	xhat := dynamo.FromVec(est)

	ctrl := r.ctrl.Compute(xhat, r.step)
	if len(ctrl) == 0 {
		ctrl = dynamo.Control{0}
	}

	sample := dynamo.Sample{
		Step:        r.step,
		Time:        r.plant.Time(),
		Measurement: []float64{r.y},
		Truth:       r.plant.Truth(),
		Estimate:    xhat,
		Control:     ctrl,
		Innovation:  dynamo.FromVec(r.filter.Innovation()),
		CovTrace:    mat.Trace(r.filter.Covariance()),
	}
	r.traceFilter()

	if err := r.plant.Step(ctrl[0]); err != nil {
		r.reason = Failed
		return Record{}, fmt.Errorf("mission step %d: %w", r.step, err)
	}
	r.u = ctrl
	r.y = r.plant.Measure()
	r.step++

	rec := r.observe(sample)
	r.log.Debug("step",
		"step", rec.Step, "t", rec.Time, "y", rec.Measurement,
		"h", rec.Height, "h_est", rec.EstHeight, "g_est", rec.EstGravity,
		"u", rec.Thrust, "trace_p", rec.CovTrace)

	switch {
	case r.plant.Landed():
		r.reason = Landed
	case r.plant.Time() >= r.duration-1e-9*r.duration:
		r.reason = TimedOut
	}
	if r.reason != Running {
		if err := r.finish(); err != nil {
			r.reason = Failed
			return rec, err
		}
	}
	return rec, nil
}

// finish filters the measurement taken after the last step and reports the
// state the mission stopped in as the terminal sample.
func (r *Runner) finish() error {
	y := mat.NewVecDense(1, []float64{r.y})
	u := mat.NewVecDense(len(r.u), []float64(r.u))
	est, err := r.filter.Update(y, u)
	if err != nil {
		return fmt.Errorf("mission final update: %w", err)
	}
	rec := r.observe(dynamo.Sample{
		Step:        r.step,
		Time:        r.plant.Time(),
		Measurement: []float64{r.y},
		Truth:       r.plant.Truth(),
		Estimate:    dynamo.FromVec(est),
		Control:     dynamo.Control{0},
		Innovation:  dynamo.FromVec(r.filter.Innovation()),
		CovTrace:    mat.Trace(r.filter.Covariance()),
		Terminal:    true,
	})
	r.terminal = &rec
	return nil
}

func (r *Runner) observe(s dynamo.Sample) Record {
	rec := toRecord(s)
	if r.record {
		r.records = append(r.records, rec)
	}
	for _, m := range r.metrics {
		m.Observe(s)
	}
	for _, o := range r.observers {
		o.OnStep(s)
	}
	return rec
}

func (r *Runner) traceFilter() {
	ctx := context.Background()
	if !r.log.Enabled(ctx, logging.LevelTrace) {
		return
	}
	r.log.Log(ctx, logging.LevelTrace, "filter",
		"step", r.step,
		"P", fmt.Sprintf("%v", mat.Formatted(r.filter.Covariance(), mat.Squeeze())),
		"K", fmt.Sprintf("%v", mat.Formatted(r.filter.Gain(), mat.Squeeze())))
	if r.schedule != nil && r.schedule.Len() > 0 {
		if k, err := r.schedule.Gain(min(r.step, r.schedule.Len()-1)); err == nil {
			r.log.Log(ctx, logging.LevelTrace, "regulator",
				"step", r.step, "K_lqr", fmt.Sprintf("%v", mat.Formatted(k, mat.Squeeze())))
		}
	}
}

// Run steps until the mission stops. A cancelled context ends the run with
// reason Cancelled and returns the partial result together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	for r.reason == Running {
		if err := ctx.Err(); err != nil {
			r.reason = Cancelled
			res := r.Result()
			r.log.Info("mission cancelled", "steps", res.Steps, "t", res.Time)
			return res, err
		}
		if _, err := r.Step(); err != nil {
			r.log.Error("mission failed", "step", r.step, "err", err)
			return r.Result(), err
		}
	}

	res := r.Result()
	final := res.Final()
	r.log.Info("mission finished",
		"reason", res.Reason, "steps", res.Steps, "t", res.Time,
		"h", final.Height, "v", final.Velocity, "g_est", final.EstGravity)
	return res, nil
}

// Result snapshots the mission so far.
func (r *Runner) Result() *Result {
	res := &Result{
		Records: append([]Record(nil), r.records...),
		Reason:  r.reason,
		Steps:   r.step,
		Time:    r.plant.Time(),
		Metrics: make(map[string]float64, len(r.metrics)),
	}
	for _, m := range r.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res
}

func (r *Runner) Done() bool                { return r.reason != Running }
func (r *Runner) Reason() StopReason        { return r.reason }
func (r *Runner) Steps() int                { return r.step }
func (r *Runner) Plant() *plant.Plant       { return r.plant }
func (r *Runner) Filter() *estimator.Filter { return r.filter }

// Terminal returns the record of the state a finished mission stopped in.
// It is false while the mission runs and after cancellation or failure.
func (r *Runner) Terminal() (Record, bool) {
	if r.terminal == nil {
		return Record{}, false
	}
	return *r.terminal, true
}

// Schedule returns the LQR gain schedule, or nil for other controllers.
func (r *Runner) Schedule() *regulator.GainSchedule { return r.schedule }

func toRecord(s dynamo.Sample) Record {
	rec := Record{
		Step:     s.Step,
		Time:     s.Time,
		CovTrace: s.CovTrace,
	}
	if len(s.Measurement) > 0 {
		rec.Measurement = s.Measurement[0]
	}
	if len(s.Truth) >= 2 {
		rec.Height, rec.Velocity = s.Truth[0], s.Truth[1]
	}
	if len(s.Estimate) >= 3 {
		rec.EstHeight, rec.EstVelocity, rec.EstGravity = s.Estimate[0], s.Estimate[1], s.Estimate[2]
	}
	if len(s.Control) > 0 {
		rec.Thrust = s.Control[0]
	}
	if len(s.Innovation) > 0 {
		rec.Innovation = s.Innovation[0]
	}
	return rec
}

// IsSingular reports whether err came from an ill-conditioned matrix in the
// filter or the regulator.
func IsSingular(err error) bool {
	return errors.Is(err, estimator.ErrSingularCovariance) ||
		errors.Is(err, regulator.ErrSingularGainDenominator) ||
		errors.Is(err, linalg.ErrSingular)
}
