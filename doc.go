// Package crossfade composites two sequential video streams into one, with a
// blurred cross-fade across the window where the first stream ends and the
// second begins.
//
// The package provides the facade that ties the subsystems together: the
// blur kernel table (kernel), canvas scaling and effects (video), the
// transition compositor (transition), the render context (render), the
// preview and export drivers (driver) and the media sources and sinks
// chosen by the factory (factory, media).
//
// # Getting Started
//
// Load a configuration and create a Studio. The blur kernel table is loaded
// from its cache file, or generated and persisted on first use:
//
//	v := config.NewViper()
//	cfg, err := config.Load(v, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	studio, err := crossfade.New(&crossfade.Options{Config: cfg})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer studio.Close()
//
// # Preview
//
// Preview plays both streams against the host clock and presents composited
// frames to a display. It returns when the second stream ends or ctx is done:
//
//	stats, err := studio.Preview(ctx, crossfade.PreviewRequest{
//	    First:  "intro.cfs",
//	    Second: "clips/",
//	})
//
// # Export
//
// Export reads both streams as fast as the sink accepts frames and writes a
// deterministic result into the configured output directory:
//
//	result, err := studio.Export(ctx, crossfade.ExportRequest{
//	    First:  "intro.cfs",
//	    Second: "outro.cfs",
//	})
//	fmt.Println("saved", result.Path)
//
// Previous exports are listed newest first by ListExports.
//
// # Errors
//
// A session fails at most once, with a *driver.SessionError naming the stage
// and stream. Use errors.Is with driver.ErrDecode, driver.ErrEncode,
// driver.ErrRender or driver.ErrCancelled to classify it.
package crossfade
