package model

import "time"

// Bar is a single OHLCV observation for a (symbol, source, interval) key.
// The tuple (Symbol, Source, Interval, Time) uniquely identifies a bar;
// bars are append-only and never mutated after ingest.
type Bar struct {
	Symbol   string
	Source   string
	Interval string
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
