package pose

// Normalize converts a raw landmark sequence into a canonical pose frame.
//
// For each entry of the static index map, if raw has a landmark at that
// index it is emitted as a Keypoint; indices beyond len(raw) are skipped.
// Landmarks without a visibility field get DefaultScore. The function is
// pure: undersized or empty input yields an empty keypoint list, never an
// error.
func Normalize(raw []RawLandmark, timestampMs int64) PoseData {
	keypoints := make([]Keypoint, 0, len(landmarkIndexMap))
	for _, m := range landmarkIndexMap {
		if m.index >= len(raw) {
			continue
		}
		lm := raw[m.index]
		score := DefaultScore
		if lm.Visibility != nil {
			score = *lm.Visibility
		}
		keypoints = append(keypoints, Keypoint{
			Name:  m.name,
			X:     lm.X,
			Y:     lm.Y,
			Score: score,
		})
	}
	return PoseData{Keypoints: keypoints, Timestamp: timestampMs}
}

// FilterByConfidence returns a copy of p holding only keypoints whose score
// meets min. The input is not modified.
func FilterByConfidence(p PoseData, min float64) PoseData {
	kept := make([]Keypoint, 0, len(p.Keypoints))
	for _, kp := range p.Keypoints {
		if kp.Score >= min {
			kept = append(kept, kp)
		}
	}
	return PoseData{Keypoints: kept, Timestamp: p.Timestamp}
}
