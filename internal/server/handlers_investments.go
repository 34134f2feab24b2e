package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// routeInvestments handles /api/investments (create, list caller's).
func (s *Server) routeInvestments(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}

	if r.Method == http.MethodGet {
		records, err := s.app.InvestmentService.ListByOwner(r.Context(), uc.UserID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"investments": nonNilRecords(records)})
		return
	}

	var in models.NewInvestment
	if !DecodeJSON(w, r, &in) {
		return
	}
	// ownership always comes from the caller, never the body
	in.OwnerID = uc.UserID
	if strings.TrimSpace(in.OwnerName) == "" {
		in.OwnerName = s.ownerName(r, uc)
	}

	record, err := s.app.InvestmentService.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, record)
}

// routeInvestment handles /api/investments/{id}.
func (s *Server) routeInvestment(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}
	id := PathParam(r, "/api/investments/", "")

	switch r.Method {
	case http.MethodGet:
		record, err := s.app.InvestmentService.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if record.OwnerID != uc.UserID {
			WriteErrorWithCode(w, http.StatusForbidden, "investment belongs to another user", "forbidden")
			return
		}
		WriteJSON(w, http.StatusOK, record)

	case http.MethodPatch:
		var patch models.InvestmentPatch
		if !DecodeJSON(w, r, &patch) {
			return
		}
		record, err := s.app.InvestmentService.Update(r.Context(), uc.UserID, id, patch)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, record)

	case http.MethodDelete:
		if err := s.app.InvestmentService.Delete(r.Context(), uc.UserID, id); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ownerName picks the name stamped on new records: token claims first, then
// the stored profile.
func (s *Server) ownerName(r *http.Request, uc *common.UserContext) string {
	if uc.DisplayName != "" {
		return uc.DisplayName
	}
	if uc.Email != "" {
		return uc.Email
	}
	profile, err := s.app.UserService.Get(r.Context(), uc.UserID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", uc.UserID).Msg("Failed to load profile for owner name")
		}
		return ""
	}
	return profile.PublicName()
}

func nonNilRecords(records []models.InvestmentRecord) []models.InvestmentRecord {
	if records == nil {
		return []models.InvestmentRecord{}
	}
	return records
}
