// ABOUTME: Buffer bridge package
// ABOUTME: Marshals audio files into the native drum module and drum files out of it
// Package bridge is the only way into the native drum module. It copies
// caller buffers into module memory, calls status-returning entry points,
// reads results back through out-parameters and frees every scratch
// allocation on every path.
//
// Handles are tagged: a Sample carries a bridge serial next to its module
// address so released or foreign handles are rejected with ErrState
// instead of reaching the module. Banks move Open -> Serialized -> Closed.
//
// Example:
//
//	b := bridge.NewDefault()
//	kit, err := b.Export([]bridge.File{{Name: "kick.wav", Data: kick}}, bridge.KitOptions{})
//	os.WriteFile("drum.aif", kit, 0o644)
package bridge
