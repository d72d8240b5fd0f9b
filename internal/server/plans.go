package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"platewise/internal/auth"
	"platewise/internal/plan"
)

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	plans, err := s.plans.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list plans", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []plan.SavedPlan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var body struct {
		Plan plan.GeneratedPlan `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Plan.Days) == 0 {
		writeError(w, http.StatusBadRequest, "plan has no days")
		return
	}

	id, err := s.plans.Save(r.Context(), userID, body.Plan)
	if err != nil {
		slog.Error("failed to save plan", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save plan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var body struct {
		PlanID string `json:"plan_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PlanID == "" {
		writeError(w, http.StatusBadRequest, "plan_id is required")
		return
	}
	planID := body.PlanID

	if err := s.plans.Delete(r.Context(), userID, planID); err != nil {
		slog.Error("failed to delete plan", "user", userID, "plan", planID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete plan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleImportRecipe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	recipe, err := s.importer.ImportURL(r.Context(), body.URL)
	if err != nil {
		slog.Error("failed to import recipe", "url", body.URL, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "recipe": recipe})
}
