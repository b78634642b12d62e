package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Pavansyamala/agenticAItutor/internal/config"
	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
	"github.com/Pavansyamala/agenticAItutor/internal/llm"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
	"github.com/Pavansyamala/agenticAItutor/internal/problemgen"
	"github.com/Pavansyamala/agenticAItutor/internal/retrieval"
	"github.com/Pavansyamala/agenticAItutor/internal/session"
	"github.com/Pavansyamala/agenticAItutor/internal/store"
	"github.com/Pavansyamala/agenticAItutor/internal/symbolic"
)

// buildProvider creates the one provider every agent shares, so the call
// throttle applies process-wide. It returns nil when no key is configured;
// the agents then run on their canned fallbacks.
func buildProvider(ctx context.Context, cfg config.Config, sink llm.EventSink, logger *slog.Logger) llm.Provider {
	llmCfg, ok := llm.DiscoverConfig(cfg.LLM)
	if !ok {
		fmt.Fprintln(os.Stderr, "LLM provider not configured: lessons, questions and plans use built-in fallbacks.")
		return nil
	}
	provider, err := llm.NewProvider(ctx, llmCfg, sink, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider unavailable:", err)
		return nil
	}
	return provider
}

// buildAgents wires the lesson, question, grading, gate and context
// services around provider.
func buildAgents(cfg config.Config, provider llm.Provider, logger *slog.Logger) session.Agents {
	fallback := grading.Chain{grading.HeuristicGrader{}}
	var planner monitor.Planner
	if provider != nil {
		fallback = grading.Chain{grading.NewLLMGrader(provider, cfg.Grading), grading.HeuristicGrader{}}
		planner = monitor.NewLLMPlanner(provider, cfg.LLM.MaxTokens, cfg.LLM.Temperature)
	}
	return session.Agents{
		Teacher:   lessons.NewService(provider, cfg.Lessons, logger),
		Generator: problemgen.New(provider, cfg.Questions, logger),
		Grader:    grading.NewAggregator(symbolic.New(logger), fallback, cfg.Grading, logger),
		Gate:      monitor.NewGate(cfg.Monitor, planner, logger),
		Context:   retrieval.New(cfg.Retrieval, logger),
	}
}

// newCoordinator builds a coordinator over s with answers as the student.
func newCoordinator(ctx context.Context, s *store.Store, cfg config.Config, answers session.AnswerSource, logger *slog.Logger) *session.Coordinator {
	provider := buildProvider(ctx, cfg, s.EventRepo(), logger)
	return session.NewCoordinator(session.ReposFrom(s), buildAgents(cfg, provider, logger), answers, cfg.Session, logger)
}
