// Package testing provides simulated frame sources, sinks, players and
// displays for deterministic testing of the transition drivers.
//
// # Overview
//
// Every simulation produces solid-color frames with exact timestamps and
// records what happened to it in an optional shared EventLog, so tests can
// assert on cross-stream ordering (for example, that the second stream was
// not pulled before the first stream entered its transition window).
//
// # Usage
//
//	log := testing.NewEventLog()
//	first := testing.NewSimulatedSource(testing.StreamConfig{
//	    Name: "first", Frames: 100, Interval: 1,
//	    Size: video.Size{Width: 16, Height: 16}, Log: log,
//	})
//	sink := testing.NewSimulatedSink(testing.SinkConfig{Name: "sink", Log: log})
//
// Failures are injected with the FailAt fields, which name the 1-based frame
// or submission that fails with ErrSimulatedFailure.
//
// SimulatedPlayer has a purely arithmetic clock: frame i is due from item
// time i*Interval, so preview tests drive it with synthetic host times and
// never sleep.
//
// Package name note: import this package under an alias (for example
// testsim) to avoid clashing with the standard library testing package.
package testing
