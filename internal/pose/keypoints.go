// Package pose defines the canonical keypoint schema for the VBT pipeline
// and the normalization from raw estimator landmarks into it.
package pose

// KeypointName identifies one of the canonical body keypoints.
type KeypointName string

// Canonical keypoint names, COCO skeleton convention.
// The set is closed; renaming any entry is a breaking schema change.
const (
	Nose          KeypointName = "nose"
	LeftEye       KeypointName = "left_eye"
	RightEye      KeypointName = "right_eye"
	LeftEar       KeypointName = "left_ear"
	RightEar      KeypointName = "right_ear"
	LeftShoulder  KeypointName = "left_shoulder"
	RightShoulder KeypointName = "right_shoulder"
	LeftElbow     KeypointName = "left_elbow"
	RightElbow    KeypointName = "right_elbow"
	LeftWrist     KeypointName = "left_wrist"
	RightWrist    KeypointName = "right_wrist"
	LeftHip       KeypointName = "left_hip"
	RightHip      KeypointName = "right_hip"
	LeftKnee      KeypointName = "left_knee"
	RightKnee     KeypointName = "right_knee"
	LeftAnkle     KeypointName = "left_ankle"
	RightAnkle    KeypointName = "right_ankle"

	NumKeypoints = 17
)

// CanonicalOrder lists the canonical keypoints in schema order.
var CanonicalOrder = [NumKeypoints]KeypointName{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftHip, RightHip,
	LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// IsCanonical reports whether name belongs to the canonical keypoint set.
func IsCanonical(name KeypointName) bool {
	for _, n := range CanonicalOrder {
		if n == name {
			return true
		}
	}
	return false
}

// indexMapping binds one source-model landmark index to a canonical name.
type indexMapping struct {
	index int
	name  KeypointName
}

// landmarkIndexMap maps the 33-point full-body source model onto the
// canonical 17-point set. Iteration order is the emission order of
// Normalize; indices not listed here are discarded.
var landmarkIndexMap = []indexMapping{
	{0, Nose},
	{2, LeftEye},
	{5, RightEye},
	{7, LeftEar},
	{8, RightEar},
	{11, LeftShoulder},
	{12, RightShoulder},
	{13, LeftElbow},
	{14, RightElbow},
	{15, LeftWrist},
	{16, RightWrist},
	{23, LeftHip},
	{24, RightHip},
	{25, LeftKnee},
	{26, RightKnee},
	{27, LeftAnkle},
	{28, RightAnkle},
}

// SourceModelPoints is the landmark count of the full-body source model.
const SourceModelPoints = 33

// RawLandmark is a single landmark as delivered by an estimator.
// X and Y are normalized image-space coordinates in [0,1]; Z is relative
// depth whose sign is only meaningful for ordering. Visibility is nil when
// the source model provides no confidence field.
type RawLandmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

// DefaultScore is assumed for landmarks without a visibility field.
const DefaultScore = 0.5

// Keypoint is a named, confidence-scored landmark in the canonical schema.
type Keypoint struct {
	Name  KeypointName `json:"name"`
	X     float64      `json:"x"`
	Y     float64      `json:"y"`
	Score float64      `json:"score"`
}

// PoseData is one normalized pose frame. Keypoints may hold fewer than
// NumKeypoints entries; missing landmarks are omitted, never padded.
// Timestamp is monotonic milliseconds, non-decreasing per detector instance.
type PoseData struct {
	Keypoints []Keypoint `json:"keypoints"`
	Timestamp int64      `json:"timestamp"`
}

// Find returns the keypoint with the given name, or false if absent.
func (p PoseData) Find(name KeypointName) (Keypoint, bool) {
	for _, kp := range p.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}
