package server

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/common"
	"github.com/bobmcallan/coinfolio/internal/models"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/currencies", s.handleCurrencies)

	// Market data
	mux.HandleFunc("/api/market/search", s.handleMarketSearch)
	mux.HandleFunc("/api/market/prices", s.handleMarketPrices)
	mux.HandleFunc("/api/market/price/", s.handleMarketPrice)
	mux.HandleFunc("/api/market/coins/", s.handleMarketCoin)
	mux.HandleFunc("/api/admin/cache/clear", s.handleCacheClear)

	// Investments
	mux.HandleFunc("/api/investments/", s.routeInvestment)
	mux.HandleFunc("/api/investments", s.routeInvestments)

	// Portfolio valuations
	mux.HandleFunc("/api/portfolio", s.handlePortfolio)
	mux.HandleFunc("/api/portfolio/shared", s.handlePortfolioShared)
	mux.HandleFunc("/api/portfolio/all", s.handlePortfolioAll)
	mux.HandleFunc("/api/portfolio/chart", s.handlePortfolioChart)
	mux.HandleFunc("/api/portfolio/stream", s.handlePortfolioStream)

	// Users and sharing
	mux.HandleFunc("/api/users/me/shared", s.handleJoinShared)
	mux.HandleFunc("/api/users/me", s.routeUserMe)
	mux.HandleFunc("/api/share/", s.handleShare)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

var exampleAmount = decimal.RequireFromString("1234.56")

type currencyInfo struct {
	Code     string `json:"code"`
	Grapheme string `json:"grapheme"`
	Fraction int    `json:"fraction"`
	Example  string `json:"example"`
}

// handleCurrencies lists the quote currencies with their display metadata.
func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	currencies := models.SupportedCurrencies()
	out := make([]currencyInfo, 0, len(currencies))
	for _, c := range currencies {
		info := currencyInfo{Code: string(c)}
		if meta := c.Info(); meta != nil {
			info.Grapheme = meta.Grapheme
			info.Fraction = meta.Fraction
		}
		info.Example = c.Format(exampleAmount)
		out = append(out, info)
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"currencies": out})
}
