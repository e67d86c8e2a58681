package pose

// External pose libraries deliver landmarks in a handful of envelope
// shapes. ExtractLandmarks probes them in a fixed priority order; anything
// unrecognized is treated as "no landmarks", not an error.

// SolutionResult is the full-solution envelope ({"poseLandmarks": [...]}).
type SolutionResult struct {
	PoseLandmarks []RawLandmark `json:"poseLandmarks"`
}

// TaskResult is the tasks-API envelope ({"landmarks": [...]}).
type TaskResult struct {
	Landmarks []RawLandmark `json:"landmarks"`
}

// LegacyResult is the legacy envelope ({"pose": [...]}).
type LegacyResult struct {
	Pose []RawLandmark `json:"pose"`
}

// envelopeKeys is the probe order for generically decoded JSON objects.
var envelopeKeys = []string{"poseLandmarks", "landmarks", "pose"}

// ExtractLandmarks pulls the raw landmark array out of an estimator result.
//
// Priority order: poseLandmarks envelope, landmarks envelope, bare array,
// pose envelope. Generic map results (JSON decoded into map[string]any)
// are probed with the same key priority. Returns ok=false for anything
// unrecognized.
func ExtractLandmarks(result any) ([]RawLandmark, bool) {
	switch v := result.(type) {
	case nil:
		return nil, false
	case SolutionResult:
		return v.PoseLandmarks, true
	case *SolutionResult:
		return v.PoseLandmarks, true
	case TaskResult:
		return v.Landmarks, true
	case *TaskResult:
		return v.Landmarks, true
	case []RawLandmark:
		return v, true
	case LegacyResult:
		return v.Pose, true
	case *LegacyResult:
		return v.Pose, true
	case map[string]any:
		for _, key := range envelopeKeys {
			if entry, ok := v[key]; ok {
				if arr, ok := entry.([]any); ok {
					return decodeLandmarks(arr), true
				}
			}
		}
		return nil, false
	case []any:
		return decodeLandmarks(v), true
	default:
		return nil, false
	}
}

// decodeLandmarks converts generically decoded JSON landmark objects.
// Entries that are not objects are skipped.
func decodeLandmarks(arr []any) []RawLandmark {
	landmarks := make([]RawLandmark, 0, len(arr))
	for _, entry := range arr {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		lm := RawLandmark{
			X: floatField(obj, "x"),
			Y: floatField(obj, "y"),
			Z: floatField(obj, "z"),
		}
		if vis, ok := obj["visibility"]; ok {
			if f, ok := vis.(float64); ok {
				lm.Visibility = &f
			}
		}
		landmarks = append(landmarks, lm)
	}
	return landmarks
}

func floatField(obj map[string]any, key string) float64 {
	if f, ok := obj[key].(float64); ok {
		return f
	}
	return 0
}
