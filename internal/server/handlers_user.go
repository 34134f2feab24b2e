package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/coinfolio/internal/models"
)

type profileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type joinRequest struct {
	ShareCode string `json:"share_code"`
}

type shareResponse struct {
	ShareCode string            `json:"share_code"`
	OwnerName string            `json:"owner_name"`
	Portfolio *models.Portfolio `json:"portfolio"`
}

// routeUserMe handles /api/users/me.
// POST ensures the caller has a profile (first sign-in hand-off from the auth
// backend); GET returns it.
func (s *Server) routeUserMe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}

	if r.Method == http.MethodGet {
		profile, err := s.app.UserService.Get(r.Context(), uc.UserID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, profile)
		return
	}

	req := profileRequest{Email: uc.Email, DisplayName: uc.DisplayName}
	if r.ContentLength != 0 {
		var body profileRequest
		if !DecodeJSON(w, r, &body) {
			return
		}
		if strings.TrimSpace(body.Email) != "" {
			req.Email = strings.TrimSpace(body.Email)
		}
		if strings.TrimSpace(body.DisplayName) != "" {
			req.DisplayName = strings.TrimSpace(body.DisplayName)
		}
	}

	profile, err := s.app.UserService.EnsureProfile(r.Context(), uc.UserID, req.Email, req.DisplayName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// handleJoinShared handles POST /api/users/me/shared {share_code}.
func (s *Server) handleJoinShared(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}
	var req joinRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	joined, err := s.app.UserService.JoinShared(r.Context(), uc.UserID, req.ShareCode)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !joined {
		WriteErrorWithCode(w, http.StatusNotFound, "Share code not found", "not_found")
		return
	}

	profile, err := s.app.UserService.Get(r.Context(), uc.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// handleShare handles GET /api/share/{code}: the owner's name and a
// read-only valuation of their records. The code itself is the credential.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	code := PathParam(r, "/api/share/", "")

	name, ok, err := s.app.UserService.OwnerNameByShareCode(r.Context(), code)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		WriteErrorWithCode(w, http.StatusNotFound, "Share code not found", "not_found")
		return
	}

	records, err := s.app.InvestmentService.ListShared(r.Context(), []string{code})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	p, err := s.app.PortfolioService.Valuate(r.Context(), records)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, shareResponse{
		ShareCode: strings.ToUpper(strings.TrimSpace(code)),
		OwnerName: name,
		Portfolio: p,
	})
}
