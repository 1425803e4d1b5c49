// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for mono 16-bit sample encoders
package encode

// Encoder encodes mono 16-bit samples
type Encoder interface {
	// Encode converts samples to encoded audio data
	Encode(samples []int16) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
