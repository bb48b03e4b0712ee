package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kosarica/purchase-optimizer/internal/pkg/cuid2"
	"github.com/kosarica/purchase-optimizer/internal/solver"
)

const tracerName = "github.com/kosarica/purchase-optimizer/internal/optimizer"

// Result is the outcome of one optimization run. Plan, Billing and Surplus
// are set only when Status is optimal.
type Result struct {
	RunID     string             `json:"run_id"`
	Status    solver.Status      `json:"status"`
	SolverID  string             `json:"solver_id"`
	Objective float64            `json:"objective"`
	Plan      *PurchasePlan      `json:"plan,omitempty"`
	Billing   *BillingSummary    `json:"billing,omitempty"`
	Surplus   map[string]float64 `json:"surplus,omitempty"`
	Variables map[string]float64 `json:"variables,omitempty"`
	Nodes     int                `json:"nodes"`
	Duration  time.Duration      `json:"duration_ns"`
}

// IsOptimal returns true if the run produced a plan.
func (r *Result) IsOptimal() bool {
	return r != nil && r.Status == solver.StatusOptimal
}

// Service runs the validate, build, solve and extract pipeline.
type Service struct {
	registry *solver.Registry
	config   *Config
	metrics  *MetricsRecorder
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewService creates a new optimizer service. A nil config uses Defaults.
func NewService(registry *solver.Registry, config *Config) *Service {
	if config == nil {
		config = Defaults()
	}
	return &Service{
		registry: registry,
		config:   config,
		metrics:  NewMetricsRecorder(),
		tracer:   otel.Tracer(tracerName),
		logger:   log.With().Str("component", "purchase_optimizer").Logger(),
	}
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Solvers lists the registered solver ids.
func (s *Service) Solvers() []string {
	return s.registry.Available()
}

// Optimize formulates p, solves it and extracts the plan and billing.
// Non-optimal outcomes are reported through Result.Status with a nil error.
func (s *Service) Optimize(ctx context.Context, p *Problem, solverID string) (*Result, error) {
	startTime := time.Now()
	runID := cuid2.RunID()

	ctx, span := s.tracer.Start(ctx, "optimizer.Optimize", trace.WithAttributes(
		attribute.String("run.id", runID),
	))
	defer span.End()

	if err := s.checkLimits(p); err != nil {
		s.metrics.RecordError("validate")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if solverID == "" {
		solverID = s.config.SolverID
	}

	logger := s.logger.With().Str("run_id", runID).Logger()
	s.metrics.RecordProblemSize(len(p.Items), len(p.Retailers))
	span.SetAttributes(
		attribute.Int("problem.items", len(p.Items)),
		attribute.Int("problem.retailers", len(p.Retailers)),
		attribute.Bool("problem.allow_surplus", p.Options.AllowSurplusForSavings),
	)

	f := BuildModel(p)
	logger.Debug().
		Int("variables", f.Model().NumVars()).
		Int("constraints", len(f.Model().Constraints())).
		Msg("Model built")

	sol, err := s.solve(ctx, f, solverID)
	if err != nil {
		s.metrics.RecordError("solve")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str("solver", solverID).Msg("Solve failed")
		return nil, err
	}

	result := &Result{
		RunID:    runID,
		Status:   sol.Status,
		SolverID: sol.SolverID,
		Nodes:    sol.Nodes,
	}
	span.SetAttributes(
		attribute.String("solver.id", sol.SolverID),
		attribute.String("solve.status", sol.Status.String()),
		attribute.Int("solve.nodes", sol.Nodes),
	)
	s.metrics.RecordNodes(sol.SolverID, sol.Nodes)

	if sol.IsOptimal() {
		if err := s.extract(ctx, f, sol, result, logger); err != nil {
			s.metrics.RecordError("extract")
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	result.Duration = time.Since(startTime)
	s.metrics.RecordOptimization(result.SolverID, result.Status.String(), result.Duration)

	level := zerolog.InfoLevel
	if !result.IsOptimal() {
		level = zerolog.WarnLevel
	}
	logger.WithLevel(level).
		Str("solver", result.SolverID).
		Str("status", result.Status.String()).
		Float64("objective", result.Objective).
		Int("nodes", result.Nodes).
		Dur("duration", result.Duration).
		Msg("Optimization completed")

	return result, nil
}

func (s *Service) checkLimits(p *Problem) error {
	if p == nil {
		return ErrInvalidRequest{Field: "problem", Reason: "cannot be nil"}
	}
	if len(p.Items) > s.config.MaxItems {
		return ErrInvalidRequest{Field: "items", Reason: fmt.Sprintf("exceeds maximum of %d", s.config.MaxItems)}
	}
	if len(p.Retailers) > s.config.MaxRetailers {
		return ErrInvalidRequest{Field: "retailers", Reason: fmt.Sprintf("exceeds maximum of %d", s.config.MaxRetailers)}
	}
	if n := len(p.Items) * len(p.Retailers); n > s.config.MaxQuantities {
		return ErrInvalidRequest{Field: "items", Reason: fmt.Sprintf("%d items × %d retailers exceeds maximum of %d quantities", len(p.Items), len(p.Retailers), s.config.MaxQuantities)}
	}
	return nil
}

func (s *Service) solve(ctx context.Context, f *Formulation, solverID string) (*solver.Solution, error) {
	ctx, span := s.tracer.Start(ctx, "optimizer.Solve")
	defer span.End()

	sol, err := f.Solve(ctx, s.registry, solverID, s.config.Solver)
	if err != nil {
		return nil, err
	}
	if sol.SolverID == "" {
		sol.SolverID = solverID
	}
	return sol, nil
}

func (s *Service) extract(ctx context.Context, f *Formulation, sol *solver.Solution, result *Result, logger zerolog.Logger) error {
	_, span := s.tracer.Start(ctx, "optimizer.Extract")
	defer span.End()

	plan, err := ExtractPlan(f, sol)
	if err != nil {
		return err
	}
	billing, err := ExtractBilling(f, sol)
	if err != nil {
		return err
	}

	result.Objective = sol.Objective
	result.Plan = plan
	result.Billing = billing
	result.Surplus = SurplusReport(plan, f.Problem().Desired())
	result.Variables = make(map[string]float64, f.Model().NumVars())
	for _, v := range f.Model().Vars() {
		result.Variables[v.Name()] = sol.Value(v)
	}

	extra := 0.0
	for _, units := range result.Surplus {
		extra += units
	}
	s.metrics.RecordSurplus(extra)

	if gap := math.Abs(billing.GrandTotal - sol.Objective); gap > 1e-6*math.Max(1, math.Abs(sol.Objective)) {
		logger.Warn().
			Float64("grand_total", billing.GrandTotal).
			Float64("objective", sol.Objective).
			Msg("Billing total differs from objective")
	}
	return nil
}
