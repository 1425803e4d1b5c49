// ABOUTME: OP-1 kit time base conversion
// ABOUTME: Maps frame offsets to the OP-1's fixed-point start/end positions
package op1

// Time units per frame. The OP-1 spreads 0x7FFFFFFE across 12 seconds of
// 16-bit mono audio at 44.1kHz.
const timeUnitsPerFrame = (0x7FFFFFFE / (NativeRate * 2 * MaxSeconds)) * 2

// MaxFrames is the number of frames (including separators) a kit may hold
const MaxFrames = NativeRate * MaxSeconds

// FrameToTime converts a frame offset to OP-1 time units
func FrameToTime(frame int) int64 {
	return int64(frame) * timeUnitsPerFrame
}

// TimeToFrame converts OP-1 time units back to a frame offset
func TimeToFrame(t int64) int {
	return int(t / timeUnitsPerFrame)
}
