package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"stockdash/internal/provider"
)

// DefaultSeriesFunction is the time-series function used when none is configured.
const DefaultSeriesFunction = "TIME_SERIES_DAILY"

// GlobalQuote is the trimmed GLOBAL_QUOTE payload. Values are kept as the raw strings
// the API sends; parsing is left to the caller.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Price            string `json:"05. price"`
	LatestTradingDay string `json:"07. latest trading day"`
	ChangePercent    string `json:"10. change percent"`
}

// DailyClose is one entry of a daily series.
type DailyClose struct {
	Date  string
	Close string
}

// notice is what the API returns with a 200 status instead of data
// (bad key, throttling, unknown symbol).
type notice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (n notice) message() string {
	switch {
	case n.ErrorMessage != "":
		return n.ErrorMessage
	case n.Note != "":
		return n.Note
	default:
		return n.Information
	}
}

type globalQuoteResponse struct {
	notice
	GlobalQuote *GlobalQuote `json:"Global Quote"`
}

// GlobalQuote fetches the latest quote for symbol.
// ok is false when the response carries no "Global Quote" object.
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (GlobalQuote, bool, error) {
	body, err := c.get(ctx, "quote", symbol, map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
	})
	if err != nil {
		return GlobalQuote{}, false, err
	}

	var resp globalQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GlobalQuote{}, false, &provider.FetchError{Op: "quote", Symbol: symbol, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if msg := resp.message(); msg != "" {
		log.Warn().Str("component", "alphavantage").Str("symbol", symbol).Str("notice", msg).Msg("No quote in response")
	}
	if resp.GlobalQuote == nil || strings.TrimSpace(resp.GlobalQuote.Symbol) == "" {
		return GlobalQuote{}, false, nil
	}
	return *resp.GlobalQuote, true, nil
}

// DailySeries fetches the daily closes for symbol, oldest first.
// function selects the series endpoint (TIME_SERIES_DAILY, TIME_SERIES_DAILY_ADJUSTED, ...)
// and outputSize is "compact" or "full".
func (c *Client) DailySeries(ctx context.Context, symbol, function, outputSize string) ([]DailyClose, error) {
	if function == "" {
		function = DefaultSeriesFunction
	}
	if outputSize == "" {
		outputSize = "compact"
	}
	body, err := c.get(ctx, "history", symbol, map[string]string{
		"function":   function,
		"symbol":     symbol,
		"outputsize": outputSize,
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &provider.FetchError{Op: "history", Symbol: symbol, Err: errors.New("malformed JSON body")}
	}

	// The series object is keyed by date, newest first. Walk it in document
	// order and reverse, as map decoding would lose the ordering.
	var (
		series gjson.Result
		n      notice
	)
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		switch k := key.String(); {
		case strings.Contains(k, "Time Series"):
			series = value
		case k == "Note":
			n.Note = value.String()
		case k == "Information":
			n.Information = value.String()
		case k == "Error Message":
			n.ErrorMessage = value.String()
		}
		return true
	})
	if !series.Exists() {
		if msg := n.message(); msg != "" {
			log.Warn().Str("component", "alphavantage").Str("symbol", symbol).Str("notice", msg).Msg("No series in response")
		}
		return nil, nil
	}

	var out []DailyClose
	series.ForEach(func(date, fields gjson.Result) bool {
		var closeVal string
		fields.ForEach(func(k, v gjson.Result) bool {
			if k.String() == "4. close" {
				closeVal = v.String()
				return false
			}
			return true
		})
		out = append(out, DailyClose{Date: date.String(), Close: closeVal})
		return true
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, op, symbol string, params map[string]string) ([]byte, error) {
	query := maps.Clone(c.query)
	for k, v := range params {
		query.Set(k, v)
	}

	url := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &provider.FetchError{Op: op, Symbol: symbol, Err: fmt.Errorf("creating request: %w", provider.StripURL(err))}
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.FetchError{Op: op, Symbol: symbol, Err: provider.StripURL(err)}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &provider.FetchError{Op: op, Symbol: symbol, StatusCode: res.StatusCode}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &provider.FetchError{Op: op, Symbol: symbol, Err: fmt.Errorf("reading response: %w", err)}
	}
	return body, nil
}
