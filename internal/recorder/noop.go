package recorder

import "StockAnalyzer/internal/scanner"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignal(_ *SignalEvent) error                    { return nil }
func (n *NoopRecorder) RecordArbitrage(_ *ArbitrageEvent) error              { return nil }
func (n *NoopRecorder) RecordScan(_ *scanner.Report) error                   { return nil }
func (n *NoopRecorder) RecentSignals(_ string, _ int) ([]SignalEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                         { return nil }
