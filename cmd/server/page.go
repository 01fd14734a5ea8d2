package main

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"stockdash/internal/dashboard"
	"stockdash/internal/view"
)

type pageData struct {
	dashboard.Snapshot
	SymbolKey view.SortKey
	PriceKey  view.SortKey
	ChangeKey view.SortKey
	HasChart  bool
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.dash.Snapshot()
	data := pageData{
		Snapshot:  snap,
		SymbolKey: view.KeySymbol,
		PriceKey:  view.KeyPrice,
		ChangeKey: view.KeyChangePercent,
		HasChart:  len(snap.Chart.Series.Points) >= 2,
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		log.Error().Err(err).Str("request_id", getRequestID(r)).Msg("Render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// Form posts change state and redirect back to the page. Fetch errors are
// part of the state and shown there.

func (s *server) handleFormTickers(w http.ResponseWriter, r *http.Request) {
	_ = s.dash.UpdateTickers(r.Context(), r.FormValue("tickers"))
	redirectHome(w, r)
}

func (s *server) handleFormRefresh(w http.ResponseWriter, r *http.Request) {
	_ = s.dash.Refresh(r.Context())
	redirectHome(w, r)
}

func (s *server) handleFormSearch(w http.ResponseWriter, r *http.Request) {
	s.dash.SetSearch(r.FormValue("q"))
	redirectHome(w, r)
}

func (s *server) handleFormSort(w http.ResponseWriter, r *http.Request) {
	key, err := view.ParseSortKey(r.FormValue("key"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.dash.ToggleSort(key)
	redirectHome(w, r)
}

func (s *server) handleFormChart(w http.ResponseWriter, r *http.Request) {
	err := s.dash.Select(r.Context(), r.FormValue("symbol"))
	if errors.Is(err, dashboard.ErrUnknownSymbol) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	redirectHome(w, r)
}

// handleChartPNG renders the loaded chart, 404 while there is none.
func (s *server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	s.writePNG(w, r, s.dash.Snapshot().Chart.Series)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
