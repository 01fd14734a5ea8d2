package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockdash/internal/provider"
)

// HTTPClient is satisfied by *httpx.Client and *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	Name    string
	BaseURL string
	APIKey  string
	// OutputSize is "compact" (last 100 days) or "full".
	OutputSize string
}

// Provider implements provider.QuoteProvider and provider.HistoryProvider
// against the Financial Modeling Prep v3 API.
type Provider struct {
	cfg    Config
	client HTTPClient
	logger zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, hc HTTPClient) *Provider {
	if cfg.Name == "" {
		cfg.Name = "FMP"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://financialmodelingprep.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.OutputSize == "" {
		cfg.OutputSize = "compact"
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Provider{
		cfg:    cfg,
		client: hc,
		logger: log.With().Str("component", "fmp").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *Provider) Name() string { return p.cfg.Name }

type quoteItem struct {
	Symbol            string `json:"symbol"`
	Name              string `json:"name"`
	Price             any    `json:"price"`
	ChangesPercentage any    `json:"changesPercentage"`
}

type historyBody struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date  string `json:"date"`
		Close any    `json:"close"`
	} `json:"historical"`
}

type errorBody struct {
	ErrorMessage string `json:"Error Message"`
}

// FetchQuote implements provider.QuoteProvider. Only the first element of the
// returned array is used.
func (p *Provider) FetchQuote(ctx context.Context, symbol string) (provider.Quote, bool, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	body, err := p.get(ctx, "quote", sym, "/api/v3/quote/"+url.PathEscape(sym), nil)
	if err != nil {
		return provider.Quote{}, false, err
	}
	if p.notice(body, sym) {
		return provider.Quote{}, false, nil
	}

	var items []quoteItem
	if err := decode(body, &items); err != nil {
		return provider.Quote{}, false, &provider.FetchError{Op: "quote", Symbol: sym, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(items) == 0 || strings.TrimSpace(items[0].Symbol) == "" {
		return provider.Quote{}, false, nil
	}
	it := items[0]
	q := provider.Quote{
		Symbol:            strings.ToUpper(strings.TrimSpace(it.Symbol)),
		Name:              provider.OptionalString(it.Name),
		Price:             numberValue(it.Price),
		ChangesPercentage: numberValue(it.ChangesPercentage),
		Source:            p.cfg.Name,
		ReceivedAt:        p.now(),
	}
	p.logger.Debug().Str("symbol", q.Symbol).Bool("price_valid", q.Price.Valid).Msg("Fetched quote")
	return q, true, nil
}

// FetchHistory implements provider.HistoryProvider. The API lists days newest
// first; the series is returned oldest first.
func (p *Provider) FetchHistory(ctx context.Context, symbol string) (provider.HistorySeries, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	params := url.Values{"serietype": []string{"line"}}
	if p.cfg.OutputSize != "full" {
		params.Set("timeseries", "100")
	}
	body, err := p.get(ctx, "history", sym, "/api/v3/historical-price-full/"+url.PathEscape(sym), params)
	if err != nil {
		return provider.HistorySeries{}, err
	}
	series := provider.HistorySeries{Symbol: sym}
	if p.notice(body, sym) {
		return series, nil
	}

	var hb historyBody
	if err := decode(body, &hb); err != nil {
		return provider.HistorySeries{}, &provider.FetchError{Op: "history", Symbol: sym, Err: fmt.Errorf("decode: %w", err)}
	}
	series.Points = make([]provider.HistoryPoint, 0, len(hb.Historical))
	for i := len(hb.Historical) - 1; i >= 0; i-- {
		h := hb.Historical[i]
		v := numberValue(h.Close)
		if !v.Valid || h.Date == "" {
			continue
		}
		series.Points = append(series.Points, provider.HistoryPoint{Date: h.Date, Close: v.Float64})
	}
	p.logger.Debug().Str("symbol", sym).Int("points", len(series.Points)).Msg("Fetched history")
	return series, nil
}

func (p *Provider) get(ctx context.Context, op, sym, path string, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("apikey", p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, &provider.FetchError{Op: op, Symbol: sym, Err: provider.StripURL(err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &provider.FetchError{Op: op, Symbol: sym, Err: provider.StripURL(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		p.logger.Warn().Str("symbol", sym).Int("status", resp.StatusCode).Str("body", string(b)).Msg("Unexpected status")
		return nil, &provider.FetchError{Op: op, Symbol: sym, StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.FetchError{Op: op, Symbol: sym, Err: fmt.Errorf("read: %w", err)}
	}
	return b, nil
}

// notice reports whether body is an {"Error Message": ...} object sent with a
// 2xx status. It is logged and treated as no data.
func (p *Provider) notice(body []byte, sym string) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var eb errorBody
	if err := json.Unmarshal(trimmed, &eb); err != nil || eb.ErrorMessage == "" {
		return false
	}
	p.logger.Warn().Str("symbol", sym).Str("notice", eb.ErrorMessage).Msg("No data in response")
	return true
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// numberValue accepts a JSON number or a numeric string.
func numberValue(v any) null.Float {
	var s string
	switch x := v.(type) {
	case json.Number:
		s = x.String()
	case string:
		s = strings.TrimSpace(x)
	default:
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return provider.Float(f)
}
