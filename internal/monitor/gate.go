// Package monitor decides whether a student may advance past a topic, how
// risky their trajectory looks, and what remediation they get when they may
// not advance.
package monitor

import (
	"context"
	"log/slog"
	"time"
)

// RiskEscalation is the risk score above which a case is always escalated.
const RiskEscalation = 0.85

// Config configures the gate.
type Config struct {
	Policy Policy `envPrefix:"POLICY_"`

	// PlannerTimeout bounds the remediation planner call.
	PlannerTimeout time.Duration `env:"PLANNER_TIMEOUT" envDefault:"8s"`
}

// DefaultConfig returns the standard gate configuration.
func DefaultConfig() Config {
	return Config{
		Policy:         DefaultPolicy(),
		PlannerTimeout: 8 * time.Second,
	}
}

// Gate applies the advancement policy to evaluation results. It is safe
// for concurrent use.
type Gate struct {
	cfg     Config
	planner Planner
	logger  *slog.Logger
}

// NewGate creates a Gate. A nil planner always uses the fallback plan.
func NewGate(cfg Config, planner Planner, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PlannerTimeout <= 0 {
		cfg.PlannerTimeout = 8 * time.Second
	}
	return &Gate{cfg: cfg, planner: planner, logger: logger}
}

// Policy returns the policy the gate applies.
func (g *Gate) Policy() Policy {
	return g.cfg.Policy
}

// Decide produces a decision for one evaluation. It never fails: planner
// errors, timeouts and unusable plans fall back to the fixed plan.
func (g *Gate) Decide(ctx context.Context, in Input) Decision {
	policy := g.cfg.Policy
	score := in.Summary.OverallScore

	recent := Window(in.History, score)
	risk := Risk(recent, in.ConfidenceGap)
	consec := ConsecutiveAbove(recent, policy.MasteryThreshold)

	d := Decision{
		AllowAdvance:       score >= policy.MasteryThreshold && consec >= policy.ConsecRequired,
		Escalate:           score < policy.EscalateThreshold || risk > RiskEscalation,
		RiskScore:          risk,
		ConsecutiveMastery: consec,
	}
	if d.AllowAdvance {
		return d
	}

	req := PlanRequest{
		Input:        in,
		Policy:       policy,
		RiskScore:    risk,
		Consecutive:  consec,
		Escalate:     d.Escalate,
		RecentScores: recent,
	}
	if res := g.plan(ctx, req); res != nil {
		plan := res.Plan
		d.Remediation = &plan
		d.Notes = res.Notes
		d.PlanSource = "llm"
		return d
	}

	d.Remediation = FallbackPlan()
	d.Notes = FallbackNote
	d.PlanSource = "fallback"
	return d
}

// plan runs the planner under the configured timeout and returns nil when
// it yields nothing usable. A planner that ignores its context is abandoned
// when the timeout fires.
func (g *Gate) plan(ctx context.Context, req PlanRequest) *PlanResult {
	if g.planner == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.PlannerTimeout)
	defer cancel()

	type result struct {
		res *PlanResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := g.planner.Plan(ctx, req)
		done <- result{res, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}

	switch {
	case r.err != nil:
		g.logger.Warn("remediation planner failed, using fallback plan",
			"student", req.Input.StudentID, "topic", req.Input.Topic, "error", r.err)
		return nil
	case r.res == nil || !r.res.Plan.Usable():
		g.logger.Warn("remediation planner returned unusable plan, using fallback plan",
			"student", req.Input.StudentID, "topic", req.Input.Topic)
		return nil
	}
	if r.res.Notes == "" {
		r.res.Notes = FallbackNote
	}
	return r.res
}
