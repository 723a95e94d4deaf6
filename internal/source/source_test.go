package source

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistryLookup(t *testing.T) {
	mock := &Mock{SourceName: "mock"}
	r := NewRegistry(mock)

	got, err := r.Lookup("mock")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != mock {
		t.Error("Lookup returned wrong source")
	}

	if _, err := r.Lookup("kraken"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestBinanceFetchBars(t *testing.T) {
	// Two klines in Binance's positional array format, prices as strings.
	body := `[
		[1717200000000, "68000.0", "68500.5", "67800.0", "68200.0", "1234.5", 1717286399999],
		[1717286400000, "68200.0", "69000.0", "68100.0", "68900.0", "2345.6", 1717372799999]
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1d" || q.Get("limit") != "2" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	b := NewBinance("")
	b.BaseURL = srv.URL

	bars, err := b.FetchBars("BTCUSDT", "1d", Request{Count: 2})
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}

	first := bars[0]
	if !first.Time.Equal(time.UnixMilli(1717200000000).UTC()) {
		t.Errorf("time = %v, want open time of first kline", first.Time)
	}
	if first.Open != 68000 || first.High != 68500.5 || first.Low != 67800 ||
		first.Close != 68200 || first.Volume != 1234.5 {
		t.Errorf("first bar = %+v, parsed wrong", first)
	}
	if first.Symbol != "BTCUSDT" || first.Source != "binance" || first.Interval != "1d" {
		t.Errorf("bar key = %s/%s/%s", first.Symbol, first.Source, first.Interval)
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Error("bars not ascending")
	}
}

func TestBinanceCountRequired(t *testing.T) {
	b := NewBinance("")
	if _, err := b.FetchBars("BTCUSDT", "1d", Request{}); err == nil {
		t.Error("expected error when count is unset")
	}
}

func TestBinanceTransientStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		b := NewBinance("")
		b.BaseURL = srv.URL

		_, err := b.FetchBars("BTCUSDT", "1d", Request{Count: 10})
		if !errors.Is(err, ErrTransient) {
			t.Errorf("status %d: error %v, want a transient error", status, err)
		}
		srv.Close()
	}
}

func TestBinancePermanentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	b := NewBinance("")
	b.BaseURL = srv.URL

	_, err := b.FetchBars("NOPE", "1d", Request{Count: 10})
	if err == nil {
		t.Fatal("expected error for bad symbol")
	}
	if errors.Is(err, ErrTransient) {
		t.Error("bad symbol must not be classified transient")
	}
}

func TestBinanceEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	b := NewBinance("")
	b.BaseURL = srv.URL

	_, err := b.FetchBars("BTCUSDT", "1d", Request{Count: 10})
	if !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want no-data sentinel", err)
	}
}

func TestYahooFetchBars(t *testing.T) {
	body := `{"chart":{"result":[{
		"timestamp":[1717200000,1717286400,1717372800],
		"indicators":{"quote":[{
			"open":[5200.0,null,5220.0],
			"high":[5250.0,null,5260.0],
			"low":[5190.0,null,5210.0],
			"close":[5240.0,null,5255.0],
			"volume":[1000000,null,1100000]
		}]}
	}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Symbol aliases map onto Yahoo tickers.
		if r.URL.Path != "/v8/finance/chart/^GSPC" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("interval") != "1d" || q.Get("range") != "1y" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	y := NewYahoo("")
	y.BaseURL = srv.URL

	bars, err := y.FetchBars("SPX500", "1d", Request{Period: "1y"})
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	// The null middle bar (holiday) is dropped.
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if bars[0].Close != 5240 || bars[1].Close != 5255 {
		t.Errorf("closes = (%v, %v), want (5240, 5255)", bars[0].Close, bars[1].Close)
	}
	if bars[0].Symbol != "SPX500" {
		t.Errorf("symbol = %s, want the internal name, not the Yahoo ticker", bars[0].Symbol)
	}
}

func TestYahooPeriodRequired(t *testing.T) {
	y := NewYahoo("")
	if _, err := y.FetchBars("SPX500", "1d", Request{Count: 100}); err == nil {
		t.Error("expected error when period is unset")
	}
}

func TestYahooUnsupportedInterval(t *testing.T) {
	y := NewYahoo("")
	if _, err := y.FetchBars("SPX500", "3d", Request{Period: "1y"}); err == nil {
		t.Error("expected error for unsupported interval")
	}
}

func TestYahooCountTrimsTail(t *testing.T) {
	body := `{"chart":{"result":[{
		"timestamp":[1717200000,1717286400,1717372800],
		"indicators":{"quote":[{
			"open":[1.0,2.0,3.0],
			"high":[1.0,2.0,3.0],
			"low":[1.0,2.0,3.0],
			"close":[1.0,2.0,3.0],
			"volume":[10,20,30]
		}]}
	}],"error":null}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	y := NewYahoo("")
	y.BaseURL = srv.URL

	bars, err := y.FetchBars("AAPL", "1d", Request{Period: "5d", Count: 2})
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want the 2 most recent", len(bars))
	}
	if bars[0].Close != 2 || bars[1].Close != 3 {
		t.Errorf("trim kept wrong bars: (%v, %v)", bars[0].Close, bars[1].Close)
	}
}

func TestYahooAPIError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	y := NewYahoo("")
	y.BaseURL = srv.URL

	_, err := y.FetchBars("DELISTED", "1d", Request{Period: "1y"})
	if err == nil {
		t.Fatal("expected error from API error payload")
	}
}

func TestMockCountsCalls(t *testing.T) {
	m := &Mock{SourceName: "mock", Bars: GenerateBars("X", "mock", "1d", 10, time.Now())}
	if _, err := m.FetchBars("X", "1d", Request{Count: 5}); err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if m.Calls != 1 {
		t.Errorf("calls = %d, want 1", m.Calls)
	}
	bars, _ := m.FetchBars("X", "1d", Request{Count: 5})
	if len(bars) != 5 {
		t.Errorf("got %d bars, want trimmed 5", len(bars))
	}
	if m.Calls != 2 {
		t.Errorf("calls = %d, want 2", m.Calls)
	}
}
