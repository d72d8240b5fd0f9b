package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"platewise/internal/llm"
	"platewise/internal/plan"
	"platewise/internal/shared"
)

// promptTokenAlertThreshold is the prompt size past which the admin gets a
// bloat alert.
const promptTokenAlertThreshold = 4000

func (s *Server) handleGenerateMealPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FormData plan.Request `json:"formData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := body.FormData

	prompt, err := plan.BuildPrompt(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	stream, err := s.generator.StreamPlan(r.Context(), prompt)
	if err != nil {
		slog.Error("failed to start generation", "error", err)
		writeError(w, http.StatusBadGateway, "failed to start generation")
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	// Dedup on snapshot shape, not progress: a new day arriving with no
	// meals yet scores the same progress as the previous full day.
	lastDays, lastMeals := -1, -1
	for stream.Next() {
		snapshot := stream.Partial()
		if snapshot == nil {
			continue
		}
		days, meals := snapshotSize(snapshot)
		if days == lastDays && meals == lastMeals {
			continue
		}
		lastDays, lastMeals = days, meals
		progress := plan.Progress(snapshot, req.Days, req.MealsPerDay)
		writeSSE(w, "partial", map[string]any{"progress": progress, "plan": snapshot})
		flusher.Flush()
	}

	obj, genErr := stream.Object()
	usage := stream.Usage()
	s.recordGeneration(r.Context(), usage, time.Since(start))

	if genErr == nil {
		if err := plan.CheckPlan(obj, req.Days, req.MealsPerDay); err != nil {
			genErr = fmt.Errorf("generated plan is malformed: %w", err)
		}
	}

	if genErr != nil {
		if !llm.IsCanceled(genErr) {
			slog.Error("plan generation failed", "error", genErr)
			s.notifier.GenerationFailed("generate_plan", genErr)
		}
		writeSSE(w, "error", map[string]any{"success": false, "error": publicGenerationError(genErr)})
		flusher.Flush()
		return
	}

	if usage.PromptTokens > promptTokenAlertThreshold {
		s.notifier.PromptBloat("generate_plan", usage.PromptTokens)
	}

	writeSSE(w, "complete", map[string]any{"success": true, "progress": 100, "plan": obj})
	flusher.Flush()
}

func (s *Server) recordGeneration(ctx context.Context, usage shared.TokenUsage, latency time.Duration) {
	// The request context may already be canceled when the client went away.
	err := s.metrics.RecordMeta(context.WithoutCancel(ctx), shared.GenerationMeta{
		Operation: "generate_plan",
		Usage:     usage,
		Latency:   latency,
	})
	if err != nil {
		slog.Warn("failed to record generation metric", "error", err)
	}
}

func snapshotSize(p *plan.GeneratedPlan) (days, meals int) {
	for _, d := range p.Days {
		meals += len(d.Meals)
	}
	return len(p.Days), meals
}

// publicGenerationError maps internal failures to messages safe to show users.
func publicGenerationError(err error) string {
	switch {
	case llm.IsCanceled(err):
		return "generation canceled"
	case llm.IsRateLimited(err):
		return "the model is overloaded, try again shortly"
	case llm.IsAuth(err):
		return "generation is temporarily unavailable"
	default:
		return "failed to generate a valid meal plan"
	}
}

func writeSSE(w http.ResponseWriter, event string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to marshal SSE event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
