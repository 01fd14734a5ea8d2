package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/provider"
	"stockdash/internal/view"
)

const (
	errCodeInternal         = "INTERNAL_SERVER_ERROR"
	errCodeInvalidParameter = "INVALID_PARAMETER"
	errCodeForbidden        = "FORBIDDEN"
	errCodeNotFound         = "NOT_FOUND"
	errCodeExternalAPI      = "EXTERNAL_API_ERROR"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type quotesResponse struct {
	Search string           `json:"search"`
	Sort   view.Sort        `json:"sort"`
	Rows   []view.Row       `json:"rows"`
	Quotes []provider.Quote `json:"quotes"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := errorResponse{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: getRequestID(r),
		Timestamp: time.Now().UTC(),
	}}
	log.Warn().
		Str("request_id", resp.Error.RequestID).
		Str("error_code", code).
		Str("message", message).
		Int("status", status).
		Msg("API error response")
	writeJSON(w, status, resp)
}

// writeDomainError maps controller and provider errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *provider.FetchError
	switch {
	case errors.Is(err, view.ErrUnknownSortKey), errors.Is(err, dashboard.ErrUnknownSymbol):
		writeError(w, r, http.StatusBadRequest, errCodeInvalidParameter, err.Error())
	case errors.Is(err, chart.ErrNotEnoughData):
		writeError(w, r, http.StatusNotFound, errCodeNotFound, err.Error())
	case errors.As(err, &fe):
		writeError(w, r, http.StatusBadGateway, errCodeExternalAPI, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, errCodeInternal, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, errCodeInvalidParameter, "invalid JSON body")
		return false
	}
	return true
}

func (s *server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

// handleGetQuotes returns the derived table. search, sort and dir override the
// stored settings for this request only.
func (s *server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	snap := s.dash.Snapshot()
	q := r.URL.Query()

	search := snap.Search
	if q.Has("search") {
		search = q.Get("search")
	}
	sort := snap.Sort
	if v := q.Get("sort"); v != "" {
		key, err := view.ParseSortKey(v)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		sort = view.Sort{Key: key, Dir: view.Asc}
	}
	if v := q.Get("dir"); v != "" {
		dir, err := view.ParseDirection(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, errCodeInvalidParameter, err.Error())
			return
		}
		sort.Dir = dir
	}

	quotes := view.Derive(snap.Quotes, search, sort)
	writeJSON(w, http.StatusOK, quotesResponse{Search: search, Sort: sort, Rows: view.Rows(quotes), Quotes: quotes})
}

type tickersBody struct {
	Tickers string `json:"tickers"`
}

func (s *server) handlePostTickers(w http.ResponseWriter, r *http.Request) {
	var b tickersBody
	if !decodeBody(w, r, &b) {
		return
	}
	if err := s.dash.UpdateTickers(r.Context(), b.Tickers); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

func (s *server) handlePostRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Refresh(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

type searchBody struct {
	Q string `json:"q"`
}

func (s *server) handlePutSearch(w http.ResponseWriter, r *http.Request) {
	var b searchBody
	if !decodeBody(w, r, &b) {
		return
	}
	s.dash.SetSearch(b.Q)
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

type sortBody struct {
	Key string `json:"key"`
}

func (s *server) handlePostSort(w http.ResponseWriter, r *http.Request) {
	var b sortBody
	if !decodeBody(w, r, &b) {
		return
	}
	key, err := view.ParseSortKey(b.Key)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.dash.ToggleSort(key)
	writeJSON(w, http.StatusOK, s.dash.Snapshot())
}

type chartBody struct {
	Symbol string `json:"symbol"`
}

func (s *server) handlePostChart(w http.ResponseWriter, r *http.Request) {
	var b chartBody
	if !decodeBody(w, r, &b) {
		return
	}
	if err := s.dash.Select(r.Context(), b.Symbol); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Snapshot().Chart)
}

func (s *server) handleGetChartHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot().Chart)
}

// handleSymbolChartPNG serves /api/chart/{SYMBOL}.png for any active symbol.
// The selected symbol reuses the loaded series.
func (s *server) handleSymbolChartPNG(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	sym, ok := strings.CutSuffix(file, ".png")
	if !ok || sym == "" {
		writeError(w, r, http.StatusNotFound, errCodeNotFound, "not found")
		return
	}
	sym = strings.ToUpper(sym)

	series := s.dash.Snapshot().Chart.Series
	if series.Symbol != sym || len(series.Points) == 0 {
		var err error
		series, err = s.dash.History(r.Context(), sym)
		if err != nil {
			if errors.Is(err, dashboard.ErrUnknownSymbol) {
				writeError(w, r, http.StatusNotFound, errCodeNotFound, err.Error())
				return
			}
			writeDomainError(w, r, err)
			return
		}
	}
	s.writePNG(w, r, series)
}

func (s *server) writePNG(w http.ResponseWriter, r *http.Request, series provider.HistorySeries) {
	img, err := s.charts.Render(series)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(img)
}
