package agent

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"stocklens/internal/model"
)

type fakeRunStore struct {
	runs   []model.AgentRun
	recs   []model.RecommendationRecord
	recErr error
}

func (f *fakeRunStore) CreateAgentRun(run model.AgentRun) (int64, error) {
	f.runs = append(f.runs, run)
	return int64(len(f.runs)), nil
}

func (f *fakeRunStore) AddRecommendation(rec model.RecommendationRecord) (int64, error) {
	if f.recErr != nil {
		return 0, f.recErr
	}
	f.recs = append(f.recs, rec)
	return int64(len(f.recs)), nil
}

func result(symbol string, rec model.Recommendation, close float64) Result {
	return Result{
		Symbol: symbol,
		Signal: model.SignalRow{Close: close, Recommendation: rec},
	}
}

func TestRecordSuccess(t *testing.T) {
	fs := &fakeRunStore{}
	a := NewLocal(fs)

	run, err := a.Record([]Result{
		result("BTCUSDT", model.RecEnter, 65000),
		result("ETHUSDT", model.RecHold, 3500),
	}, 0, 2*time.Second)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.Status != model.RunSuccess {
		t.Errorf("status = %s, want success", run.Status)
	}
	if run.AssetsProcessed != 2 || run.AssetsFailed != 0 {
		t.Errorf("counts = (%d, %d), want (2, 0)", run.AssetsProcessed, run.AssetsFailed)
	}
	if run.ID == 0 {
		t.Error("run id not assigned")
	}

	if len(fs.recs) != 2 {
		t.Fatalf("recorded %d recommendations, want 2", len(fs.recs))
	}
	// Trace vocabulary is normalized for the recommendation history.
	if fs.recs[0].Recommendation != model.RecBuy {
		t.Errorf("enter normalized to %s, want buy", fs.recs[0].Recommendation)
	}
	if fs.recs[0].Price == nil || *fs.recs[0].Price != 65000 {
		t.Errorf("price = %v, want 65000", fs.recs[0].Price)
	}
	if fs.recs[0].RunID != run.ID {
		t.Errorf("recommendation run id = %d, want %d", fs.recs[0].RunID, run.ID)
	}
}

func TestRecordPartialAndFailed(t *testing.T) {
	fs := &fakeRunStore{}
	a := NewLocal(fs)

	run, err := a.Record([]Result{result("BTCUSDT", model.RecHold, 65000)}, 1, time.Second)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.Status != model.RunPartial {
		t.Errorf("status = %s, want partial", run.Status)
	}

	run, err = a.Record(nil, 3, time.Second)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.Status != model.RunFailed {
		t.Errorf("status = %s, want failed", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Error("failed run carries no error message")
	}
}

func TestRecordRecommendationErrorDoesNotAbort(t *testing.T) {
	fs := &fakeRunStore{recErr: fmt.Errorf("disk full")}
	a := NewLocal(fs)

	run, err := a.Record([]Result{result("BTCUSDT", model.RecHold, 65000)}, 0, time.Second)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if run.Status != model.RunSuccess {
		t.Errorf("status = %s, want success despite insert failure", run.Status)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want model.Recommendation
	}{
		{model.RecEnter, model.RecBuy},
		{model.RecExit, model.RecSell},
		{model.RecBuy, model.RecBuy},
		{model.RecSell, model.RecSell},
		{model.RecHold, model.RecHold},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestExplain(t *testing.T) {
	sig := model.SignalRow{
		Recommendation:  model.RecEnter,
		InPosition:      true,
		StopLevel:       60000,
		TakeProfitLevel: 70000,
	}
	ind := model.IndicatorRow{
		MACD:       model.Float(120),
		MACDSignal: model.Float(80),
		RSI14:      model.Float(28),
		ADX:        model.Float(30),
	}

	got := Explain(sig, ind)
	for _, want := range []string{
		"buy signal",
		"MACD above signal",
		"oversold",
		"strong trend",
		"stop 60000.00",
		"target 70000.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rationale %q missing %q", got, want)
		}
	}
}

func TestExplainHandlesUndefinedIndicators(t *testing.T) {
	got := Explain(model.SignalRow{Recommendation: model.RecHold}, model.IndicatorRow{})
	if !strings.Contains(got, "hold") {
		t.Errorf("rationale = %q, want a hold note", got)
	}
}
