// Package transition implements the two-stream cross-fade compositor.
//
// The compositor is a pure function of two optional canvas-sized frames and a
// State. The phase depends only on which frames are present and on the first
// stream's remaining time:
//
//	both absent                          blank (opaque black)
//	second absent                        first passed through
//	first absent, outside the window     second passed through
//	both present, outside the window     first passed through
//	inside the window                    cross-fade, then blur
//
// Inside the window the blend weight is clamp(1 - firstRemaining/overlap, 0, 1)
// and the blur kernel index is round(weight*(tableSize-1)). Once the first
// stream is gone with a known remaining time of zero, the weight stays at 1
// and the maximum blur persists.
package transition
