package embeddings

// FitDimensions zero-pads or truncates vec to target so vectors from
// fallback providers stay comparable with the stored corpus. A truncated
// vector is no longer unit length; Service renormalizes everything it returns.
func FitDimensions(vec []float32, target int) []float32 {
	if target <= 0 || len(vec) == target {
		return vec
	}

	out := make([]float32, target)
	copy(out, vec)

	return out
}
