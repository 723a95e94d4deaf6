package source

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"stocklens/internal/model"
)

const defaultBinanceBaseURL = "https://api.binance.com"

// Binance fetches klines from the public Binance REST API.
type Binance struct {
	BaseURL string
	Client  *http.Client
}

// NewBinance creates a Binance fetcher with optional proxy support.
func NewBinance(proxyURL string) *Binance {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Binance{
		BaseURL: defaultBinanceBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (b *Binance) Name() string { return "binance" }

// FetchBars retrieves up to req.Count klines. Count is mandatory for this
// source.
func (b *Binance) FetchBars(symbol, interval string, req Request) ([]model.Bar, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("binance: count is required for %s", symbol)
	}

	endpoint := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		b.BaseURL, url.QueryEscape(symbol), url.QueryEscape(interval), req.Count)

	httpReq, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("binance fetch: %w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance read body: %w: %w", ErrTransient, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("binance: status %d: %w", resp.StatusCode, ErrTransient)
	default:
		return nil, fmt.Errorf("binance: status %d, body: %s", resp.StatusCode, string(body))
	}

	// Each kline is a positional array:
	// [openTimeMs, open, high, low, close, volume, closeTimeMs, ...]
	var klines [][]any
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, fmt.Errorf("binance decode: %w", err)
	}
	if len(klines) == 0 {
		return nil, ErrNoData
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			return nil, fmt.Errorf("binance: malformed kline with %d fields", len(k))
		}
		openTime, ok := k[0].(float64)
		if !ok {
			return nil, fmt.Errorf("binance: malformed kline open time %v", k[0])
		}
		bar := model.Bar{
			Symbol:   symbol,
			Source:   b.Name(),
			Interval: interval,
			Time:     time.UnixMilli(int64(openTime)).UTC(),
		}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for i, dst := range fields {
			v, err := klineFloat(k[i+1])
			if err != nil {
				return nil, fmt.Errorf("binance: kline field %d: %w", i+1, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// klineFloat parses a kline numeric field; Binance encodes prices as JSON
// strings and timestamps as numbers.
func klineFloat(v any) (float64, error) {
	switch n := v.(type) {
	case string:
		return strconv.ParseFloat(n, 64)
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
