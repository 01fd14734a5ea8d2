package main

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"stockdash/internal/chart"
	"stockdash/internal/dashboard"
	"stockdash/internal/view"
)

//go:embed templates/index.html
var templatesFS embed.FS

type server struct {
	dash   *dashboard.Controller
	charts *chart.Presenter
	page   *template.Template
}

func newServer(dash *dashboard.Controller, charts *chart.Presenter) *server {
	page := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"indicator": view.SortIndicator,
	}).ParseFS(templatesFS, "templates/index.html"))
	return &server{dash: dash, charts: charts, page: page}
}

// routes builds the handler. allowedOrigins lists the cross-origin callers of
// the API; with none, only same-origin pages may change state.
func (s *server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(recoverPanic)
	r.Use(limitBody)
	r.Use(middleware.Compress(5))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(sameOrigin(allowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// HTML page and its form posts.
	r.Get("/", s.handleIndex)
	r.Post("/tickers", s.handleFormTickers)
	r.Post("/refresh", s.handleFormRefresh)
	r.Post("/search", s.handleFormSearch)
	r.Post("/sort", s.handleFormSort)
	r.Post("/chart", s.handleFormChart)
	r.Get("/chart.png", s.handleChartPNG)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Get("/quotes", s.handleGetQuotes)
		r.Post("/tickers", s.handlePostTickers)
		r.Post("/refresh", s.handlePostRefresh)
		r.Put("/search", s.handlePutSearch)
		r.Post("/sort", s.handlePostSort)
		r.Post("/chart", s.handlePostChart)
		r.Get("/chart/history", s.handleGetChartHistory)
		r.Get("/chart/{file}", s.handleSymbolChartPNG)
	})
	return r
}
