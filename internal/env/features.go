package env

// FeatureExtractor builds network input vectors from the physics state
type FeatureExtractor struct {
	mode   string
	buffer []float64
}

// ObsDim is the width of every observation vector
const ObsDim = 4

// NewFeatureExtractor creates an extractor for "raw" or "scaled" observations
func NewFeatureExtractor(mode string) *FeatureExtractor {
	return &FeatureExtractor{
		mode:   mode,
		buffer: make([]float64, ObsDim),
	}
}

// Extract fills the observation vector for s.
// Returns the internal buffer; it is overwritten by the next call.
func (f *FeatureExtractor) Extract(s State) []float64 {
	f.buffer[0] = s.Position
	f.buffer[1] = s.Velocity
	f.buffer[2] = s.Angle
	f.buffer[3] = s.AngularVelocity

	if f.mode == "scaled" {
		f.buffer[0] /= PositionThreshold
		f.buffer[2] /= AngleThreshold
	}
	return f.buffer
}
