package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
	"github.com/bobmcallan/coinfolio/internal/services/portfolio"
)

// Valuation scopes shared by the portfolio, chart and stream endpoints.
const (
	scopeMine   = "mine"
	scopeShared = "shared"
	scopeAll    = "all"
)

func parseScope(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", scopeMine:
		return scopeMine, nil
	case scopeShared:
		return scopeShared, nil
	case scopeAll:
		return scopeAll, nil
	default:
		return "", common.InvalidArgument("invalid scope: %s (expected mine, shared or all)", raw)
	}
}

// joinedCodes returns the share codes the user follows. A user without a
// profile follows nothing.
func (s *Server) joinedCodes(ctx context.Context, userID string) ([]string, error) {
	profile, err := s.app.UserService.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profile.SharedPortfolios, nil
}

func (s *Server) scopeRecords(ctx context.Context, userID, scope string) ([]models.InvestmentRecord, error) {
	inv := s.app.InvestmentService
	switch scope {
	case scopeShared:
		codes, err := s.joinedCodes(ctx, userID)
		if err != nil {
			return nil, err
		}
		return inv.ListShared(ctx, codes)
	case scopeAll:
		return inv.ListAll(ctx)
	default:
		return inv.ListByOwner(ctx, userID)
	}
}

func (s *Server) subscribeScope(ctx context.Context, userID, scope string) (<-chan []models.InvestmentRecord, func(), error) {
	inv := s.app.InvestmentService
	switch scope {
	case scopeShared:
		codes, err := s.joinedCodes(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		return inv.SubscribeShared(ctx, codes)
	case scopeAll:
		return inv.SubscribeAll(ctx)
	default:
		return inv.SubscribeUser(ctx, userID)
	}
}

func (s *Server) valuateScope(w http.ResponseWriter, r *http.Request, scope string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}
	records, err := s.scopeRecords(r.Context(), uc.UserID, scope)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	p, err := s.app.PortfolioService.Valuate(r.Context(), records)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handlePortfolio handles GET /api/portfolio (the caller's own records).
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.valuateScope(w, r, scopeMine)
}

// handlePortfolioShared handles GET /api/portfolio/shared (every portfolio the caller joined).
func (s *Server) handlePortfolioShared(w http.ResponseWriter, r *http.Request) {
	s.valuateScope(w, r, scopeShared)
}

// handlePortfolioAll handles GET /api/portfolio/all.
func (s *Server) handlePortfolioAll(w http.ResponseWriter, r *http.Request) {
	s.valuateScope(w, r, scopeAll)
}

// handlePortfolioChart handles GET /api/portfolio/chart?scope=mine|shared|all
func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}
	scope, err := parseScope(r.URL.Query().Get("scope"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	records, err := s.scopeRecords(r.Context(), uc.UserID, scope)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	p, err := s.app.PortfolioService.Valuate(r.Context(), records)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	png, err := s.app.PortfolioService.RenderAllocationChart(p)
	if errors.Is(err, portfolio.ErrNothingToChart) {
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "empty_portfolio")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
