// Package facematch provides face descriptor matching shared between the CLI and web handlers.
package facematch

// DescriptorDim is the length of a face descriptor produced by the browser face model.
const DescriptorDim = 128

// DefaultThreshold is the Euclidean distance below which two descriptors
// are treated as the same person. Smaller is stricter.
const DefaultThreshold = 0.6

// Descriptor is a face embedding vector.
type Descriptor []float32

// Candidate is a registered descriptor and the user it belongs to.
type Candidate struct {
	UserID     string
	Descriptor Descriptor
}

// Match is the result of comparing a query descriptor against candidates.
type Match struct {
	UserID   string  `json:"user_id"`
	Distance float64 `json:"distance"`
	IsMatch  bool    `json:"is_match"`
}
