package server

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/coinfolio/internal/models"
)

// handleMarketSearch handles GET /api/market/search?q=
func (s *Server) handleMarketSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	coins, err := s.app.PriceService.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"coins": coins})
}

// handleMarketPrices handles GET /api/market/prices?ids=a,b&vs=usd,eur
// The result is partial: pairs that could not be resolved are absent.
func (s *Server) handleMarketPrices(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	currencies := splitList(q.Get("vs"))
	if len(currencies) == 0 {
		currencies = []string{models.USD.Lower()}
	}

	prices, err := s.app.PriceService.ResolvePrices(r.Context(), splitList(q.Get("ids")), currencies)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"prices": prices})
}

type priceResponse struct {
	Symbol    string           `json:"symbol"`
	Currency  string           `json:"currency"`
	Price     *decimal.Decimal `json:"price"`
	Available bool             `json:"available"`
}

// handleMarketPrice handles GET /api/market/price/{symbol}
func (s *Server) handleMarketPrice(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	symbol := PathParam(r, "/api/market/price/", "")
	price, ok, err := s.app.PriceService.ResolvePrice(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := priceResponse{Symbol: models.AssetKey(symbol), Currency: models.USD.Lower(), Available: ok}
	if ok {
		resp.Price = &price
	}
	WriteJSON(w, http.StatusOK, resp)
}

// handleMarketCoin handles GET /api/market/coins/{id}?vs=usd
func (s *Server) handleMarketCoin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := PathParam(r, "/api/market/coins/", "")
	detail, err := s.app.PriceService.AssetDetail(r.Context(), id, r.URL.Query().Get("vs"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if detail == nil {
		WriteErrorWithCode(w, http.StatusNotFound, "No market data for "+strings.TrimSpace(id), "not_found")
		return
	}
	WriteJSON(w, http.StatusOK, detail)
}

// handleCacheClear handles POST /api/admin/cache/clear
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	uc := requireUser(w, r)
	if uc == nil {
		return
	}
	s.app.PriceService.ClearCache()
	s.logger.Info().Str("user_id", uc.UserID).Msg("Price cache cleared via API")
	WriteJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}
