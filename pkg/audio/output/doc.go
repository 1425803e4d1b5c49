// ABOUTME: Audio output package for sample previews
// ABOUTME: Provides the Device interface, an oto backend and the playback manager
// Package output plays sample previews.
//
// A Manager counts playing voices on one Device: the first voice resumes
// the device, the last one to finish suspends it again.
//
// Example:
//
//	mgr := output.NewManager(output.NewOto(), 44100)
//	voice, err := mgr.Play(ctx, sample)
//	voice.Wait()
package output
