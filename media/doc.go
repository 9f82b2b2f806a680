// Package media provides the concrete frame sources, sinks, players and
// displays used by the crossfade drivers.
//
// # Sources and sinks
//
// Two on-disk formats are always available:
//
//   - PNG sequence: a directory of numbered PNG files, optionally with a
//     manifest.yaml recording each frame's presentation timestamp.
//   - Frame stream (.cfs): length-prefixed msgpack records holding raw BGRA
//     frames, written by a background goroutine behind a bounded queue.
//
// Building with -tags gst adds a GStreamer decoder for arbitrary video files;
// OpenDecoder reports ErrUnsupported otherwise.
//
// # Preview
//
// ClockedPlayer turns any FrameSource into an interfaces.Player: frames are
// decoded ahead on a goroutine and polled without blocking against a host
// clock. SnapshotDisplay records presented frames and can save the latest
// one as a PNG.
//
//	src, _ := media.OpenPNGSequence("clips/a", media.DefaultConfig())
//	player := media.NewClockedPlayer(src, media.DefaultConfig())
//	defer player.Close()
package media
