// Package factory provides a factory pattern implementation for creating the
// frame sources, players and sinks used by crossfade sessions.
//
// The factory abstracts the choice of concrete media implementation, allowing
// seamless switching between simulation (for testing) and on-disk media
// without changing consuming code.
//
// # Source Selection
//
// Sources are chosen from the path:
//   - "sim:<seconds>[:<gray level>]": a synthetic solid-color stream
//   - a directory: a PNG sequence
//   - a ".cfs" file: a frame stream
//   - any other file: the container decoder (requires -tags gst)
//
// # Configuration
//
// The factory supports configuration via environment variables:
//   - CROSSFADE_USE_SIMULATION: "true" or "false" to force simulated media
//   - CROSSFADE_FRAME_RATE: frames per second for untimed sources and sinks
//   - CROSSFADE_QUEUE_DEPTH: frames buffered by asynchronous sinks and players
//
// # Usage
//
//	factory := NewMediaFactory()
//
//	src, err := factory.OpenSource("clips/intro.cfs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sink, err := factory.CreateSink("out/export.cfs", FormatStream)
//
// # Mode Switching
//
// The factory supports runtime mode switching for integration testing:
//
//	factory := NewMediaFactory()
//	factory.SwitchToSimulation()  // Every source and sink is simulated
//	factory.SwitchToReal()        // Back to on-disk media
package factory
