// Package interfaces defines the collaborator contracts of the transition
// pipeline: decoders, encoders, real-time players and displays.
//
// This package lets the drivers work against simulated implementations in
// tests and against file or GStreamer backed implementations in production.
//
// # Core Interfaces
//
// [FrameSource] is a pull-based sequential decoder. It returns
// [ErrEndOfStream] once drained; no seeking is required:
//
//	for {
//	    frame, err := src.NextFrame(ctx)
//	    if errors.Is(err, interfaces.ErrEndOfStream) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // use frame
//	}
//
// [FrameSink] is a sequential encoder. Callers wait for readiness before each
// submission, submit frames with strictly increasing presentation timestamps
// and call Finish exactly once:
//
//	if err := sink.WaitReady(ctx); err != nil {
//	    return err
//	}
//	if err := sink.Submit(frame, pts); err != nil {
//	    return err
//	}
//
// [Player] and [Display] are the real-time counterparts used by the preview
// loop. A Player is polled once per display refresh and must never block.
//
// # Configuration
//
// [MediaConfig] holds settings shared by source and sink implementations:
//
//	config := &interfaces.MediaConfig{
//	    FrameSize:  video.Size{Width: 1280, Height: 720},
//	    FrameRate:  60,
//	    QueueDepth: 4,
//	}
//	if err := config.Validate(); err != nil {
//	    log.Fatalf("invalid config: %v", err)
//	}
//
// # Thread Safety
//
// Sources and sinks are driven by a single goroutine. Players and displays may
// be polled from the preview loop while background goroutines decode, so
// implementations synchronize internally.
package interfaces
