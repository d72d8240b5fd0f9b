package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"platewise/internal/auth"
)

func (s *Server) handleSubscriptionPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "priceIds": s.cfg.PriceIDs})
}

func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var body struct {
		PriceID string `json:"priceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PriceID == "" {
		writeError(w, http.StatusBadRequest, "priceId is required")
		return
	}
	if !slices.Contains(s.cfg.PriceIDs, body.PriceID) {
		writeError(w, http.StatusBadRequest, "unknown price")
		return
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	url, err := s.stripe.CreateCheckoutSession(
		userID,
		user.Email,
		body.PriceID,
		s.cfg.AppBaseURL+"/billing/success",
		s.cfg.AppBaseURL+"/billing/cancel",
	)
	if err != nil {
		slog.Error("failed to create checkout session", "user", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (s *Server) handleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	role, err := s.billing.VerifySubscription(r.Context(), userID)
	if err != nil {
		slog.Error("failed to verify subscription", "user", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to look up billing state")
		return
	}
	if role.StripeCustomerID == "" {
		writeError(w, http.StatusBadRequest, "no billing account for this user")
		return
	}

	url, err := s.stripe.CreatePortalSession(role.StripeCustomerID, s.cfg.AppBaseURL+"/account")
	if err != nil {
		slog.Error("failed to create portal session", "user", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to create portal session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (s *Server) handleVerifySubscription(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	role, err := s.billing.VerifySubscription(r.Context(), userID)
	if err != nil {
		slog.Error("failed to verify subscription", "user", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to verify subscription")
		return
	}

	resp := map[string]any{
		"success": true,
		"role":    role.Role,
		"status":  role.SubscriptionStatus,
		"priceId": role.PriceID,
	}
	if role.CurrentPeriodEnd.Valid {
		resp["currentPeriodEnd"] = role.CurrentPeriodEnd.Time.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	event, err := s.stripe.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	if err := s.billing.HandleEvent(r.Context(), event); err != nil {
		slog.Error("failed to handle webhook event", "type", event.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to handle event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
