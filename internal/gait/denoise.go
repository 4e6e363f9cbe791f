package gait

import "math"

// jointFilter is one constant-velocity Kalman filter. State is
// [x, y, vx, vy]; the measurement is the observed (x, y) of a single
// joint. One fixed-size filter lives at each joint index so per-joint
// independence and resettability are explicit.
type jointFilter struct {
	x [4]float64  // State: position and velocity
	p [16]float64 // Covariance, 4x4 row-major
}

// reset zeroes the state and restores the high initial covariance. Run
// at the start of every sequence: filters carry no cross-sequence memory.
func (f *jointFilter) reset(initialCovariance float64) {
	f.x = [4]float64{}
	f.p = [16]float64{}
	for i := 0; i < 4; i++ {
		f.p[i*4+i] = initialCovariance
	}
}

// predict applies the constant-velocity transition with unit frame step:
//
//	F = [1 0 1 0]
//	    [0 1 0 1]
//	    [0 0 1 0]
//	    [0 0 0 1]
//
// x' = F*x, P' = F*P*F^T + Q with Q = q*I.
func (f *jointFilter) predict(q float64) {
	f.x[0] += f.x[2]
	f.x[1] += f.x[3]

	// FP: rows 0 and 1 absorb the velocity rows, 2 and 3 are unchanged.
	var fp [16]float64
	for j := 0; j < 4; j++ {
		fp[0*4+j] = f.p[0*4+j] + f.p[2*4+j]
		fp[1*4+j] = f.p[1*4+j] + f.p[3*4+j]
		fp[2*4+j] = f.p[2*4+j]
		fp[3*4+j] = f.p[3*4+j]
	}
	// (FP)F^T: columns 0 and 1 absorb columns 2 and 3.
	for i := 0; i < 4; i++ {
		f.p[i*4+0] = fp[i*4+0] + fp[i*4+2]
		f.p[i*4+1] = fp[i*4+1] + fp[i*4+3]
		f.p[i*4+2] = fp[i*4+2]
		f.p[i*4+3] = fp[i*4+3]
	}
	for i := 0; i < 4; i++ {
		f.p[i*4+i] += q
	}
}

// update folds in a position measurement with measurement noise R = r*I.
// H extracts position, so the innovation covariance is the top-left 2x2
// of P plus R, inverted directly.
func (f *jointFilter) update(zx, zy, r float64) {
	yX := zx - f.x[0]
	yY := zy - f.x[1]

	s00 := f.p[0*4+0] + r
	s01 := f.p[0*4+1]
	s10 := f.p[1*4+0]
	s11 := f.p[1*4+1] + r

	det := s00*s11 - s01*s10
	if math.Abs(det) < 1e-12 {
		return // singular innovation covariance, skip the update
	}
	invS00 := s11 / det
	invS01 := -s01 / det
	invS10 := -s10 / det
	invS11 := s00 / det

	// Kalman gain K = P*H^T*S^-1 (4x2).
	var k [8]float64
	for i := 0; i < 4; i++ {
		k[i*2+0] = f.p[i*4+0]*invS00 + f.p[i*4+1]*invS10
		k[i*2+1] = f.p[i*4+0]*invS01 + f.p[i*4+1]*invS11
	}

	for i := 0; i < 4; i++ {
		f.x[i] += k[i*2+0]*yX + k[i*2+1]*yY
	}

	// P' = (I - K*H) * P. K*H only populates columns 0 and 1.
	var ikh [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v := 0.0
			if i == j {
				v = 1
			}
			switch j {
			case 0:
				v -= k[i*2+0]
			case 1:
				v -= k[i*2+1]
			}
			ikh[i*4+j] = v
		}
	}
	var newP [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for m := 0; m < 4; m++ {
				sum += ikh[i*4+m] * f.p[m*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	f.p = newP
}

// KalmanDenoiser smooths the planar (x, y) trajectory of every joint
// with an independent constant-velocity Kalman filter. The z (depth)
// coordinate passes through unfiltered. Output is deterministic for a
// fixed input and confidence sequence.
type KalmanDenoiser struct {
	processNoise      float64
	measurementNoise  float64
	initialCovariance float64
	filters           [NumJoints]jointFilter
}

// NewKalmanDenoiser builds a denoiser with the given process-noise
// coefficient and base measurement noise; non-positive values fall back
// to the defaults.
func NewKalmanDenoiser(processNoise, measurementNoise float64) *KalmanDenoiser {
	if processNoise <= 0 {
		processNoise = DefaultProcessNoise
	}
	if measurementNoise <= 0 {
		measurementNoise = DefaultMeasurementNoise
	}
	return &KalmanDenoiser{
		processNoise:      processNoise,
		measurementNoise:  measurementNoise,
		initialCovariance: DefaultInitialCovariance,
	}
}

// Denoise runs predict-then-update for every joint in every frame and
// returns a new sequence of identical shape. Per-frame confidence
// inflates the measurement noise (R = I * base / max(confidence, 0.1))
// so low-confidence detections pull the state less. A nil confidence
// sequence leaves R at its base value.
func (d *KalmanDenoiser) Denoise(keypoints KeypointSequence, confidence ConfidenceSequence) (KeypointSequence, error) {
	if err := ValidateShape(keypoints, confidence); err != nil {
		return nil, err
	}
	for j := range d.filters {
		d.filters[j].reset(d.initialCovariance)
	}

	out := make(KeypointSequence, len(keypoints))
	for i := range keypoints {
		for j := 0; j < NumJoints; j++ {
			r := d.measurementNoise
			if confidence != nil {
				r = d.measurementNoise / math.Max(confidence[i][j], 0.1)
			}
			f := &d.filters[j]
			f.predict(d.processNoise)
			f.update(keypoints[i][j].X, keypoints[i][j].Y, r)
			out[i][j] = Vec3{X: f.x[0], Y: f.x[1], Z: keypoints[i][j].Z}
		}
	}
	return out, nil
}
