package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vicanso/go-charts/v2"
	"golang.org/x/sync/singleflight"

	"stockdash/internal/provider"
)

// ErrNotEnoughData is returned for a series with fewer than two points.
var ErrNotEnoughData = errors.New("not enough data points")

// Presenter renders daily series as PNG line charts.
type Presenter struct {
	cache  *Cache
	group  singleflight.Group
	logger zerolog.Logger
}

// NewPresenter returns a presenter backed by cache, which may be nil.
func NewPresenter(cache *Cache) *Presenter {
	return &Presenter{
		cache:  cache,
		logger: log.With().Str("component", "chart").Logger(),
	}
}

// Render draws the closing prices of series. Identical series share one
// cached image and concurrent renders of the same series run once.
func (p *Presenter) Render(series provider.HistorySeries) ([]byte, error) {
	if len(series.Points) < 2 {
		return nil, ErrNotEnoughData
	}
	key := cacheKey(series)
	if img, ok := p.cache.Get(key); ok {
		p.logger.Debug().Str("symbol", series.Symbol).Msg("Chart cache hit")
		return img, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		img, err := draw(series)
		if err != nil {
			return nil, err
		}
		p.cache.Set(key, img)
		return img, nil
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", series.Symbol, err)
	}
	return v.([]byte), nil
}

func draw(series provider.HistorySeries) ([]byte, error) {
	values := series.Values()
	yMin, yMax := values[0], values[0]
	for _, v := range values[1:] {
		yMin = min(yMin, v)
		yMax = max(yMax, v)
	}
	pad := (yMax - yMin) * 0.05
	if pad < yMax*0.002 {
		pad = yMax * 0.002
	}
	yMin -= pad
	if yMin < 0 {
		yMin = 0
	}
	yMax += pad

	painter, err := charts.LineRender([][]float64{values},
		charts.TitleTextOptionFunc(strings.ToUpper(series.Symbol)+" • Daily Close"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: series.Labels(), BoundaryGap: charts.FalseFlag(), SplitNumber: 8}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// cacheKey identifies a series by symbol, length, first and last date and last close.
func cacheKey(s provider.HistorySeries) string {
	first, last := s.Points[0], s.Points[len(s.Points)-1]
	return strings.Join([]string{
		strings.ToUpper(s.Symbol),
		strconv.Itoa(len(s.Points)),
		first.Date,
		last.Date,
		strconv.FormatFloat(last.Close, 'f', -1, 64),
	}, "|")
}
