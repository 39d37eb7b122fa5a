package audio

// MeanAmplitude returns the mean absolute sample amplitude of a float32 PCM
// buffer on the [-1, 1] scale. Returns 0 for an empty buffer.
//
// The pipeline treats a block as silent — and skips classification entirely —
// when this value falls below the configured activity threshold.
func MeanAmplitude(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		if s < 0 {
			sum -= float64(s)
		} else {
			sum += float64(s)
		}
	}
	return sum / float64(len(samples))
}
