// Package kmeter implements a dual-ballistics K-meter: an RMS-like value
// smoothed by two cascaded one-pole filters and a peak-with-hold-and-fall value, recomputed once
// per audio period.
package kmeter

import "math"

// KMeter holds one channel's worth of ballistics state. Zero value is not
// usable; call Init before Process.
type KMeter struct {
	z1, z2 float64
	rms    float64
	dpk    float64
	cnt    int
	flag   bool

	omega float64
	hold  int
	fall  float64
}

// New returns a KMeter initialized for the given host period (in samples)
// and sample rate.
func New(period int, sampleRate float64) *KMeter {
	k := &KMeter{}
	k.Init(period, sampleRate)
	return k
}

// Init (re)derives the period-dependent constants. Buffer-size changes on
// the host must call this again.
func (k *KMeter) Init(period int, sampleRate float64) {
	k.omega = 9.72 / sampleRate
	k.hold = int(math.Round(0.5 * sampleRate / float64(period)))
	k.fall = math.Pow(10, -0.0525*float64(period)/sampleRate)
	k.z1, k.z2, k.rms, k.dpk = 0, 0, 0, 0
	k.cnt = 0
	k.flag = false
}

// Process runs one period's worth of samples through the ballistics
// filters. If a reader set the flag since the last call, the RMS
// accumulator is zeroed first.
func (k *KMeter) Process(samples []float32) {
	if k.flag {
		k.rms = 0
		k.flag = false
	}

	var peakSq float64
	for _, s := range samples {
		v := float64(s)
		sq := v * v
		if sq > peakSq {
			peakSq = sq
		}
		k.z1 += k.omega * (sq - k.z1)
		k.z2 += k.omega * (k.z1 - k.z2)
	}

	// Anti-denormal nudge, preserved from the reference ballistics.
	k.z1 += 1e-20
	k.z2 += 1e-20

	if rms := math.Sqrt(2 * k.z2); rms > k.rms {
		k.rms = rms
	}

	peak := math.Sqrt(peakSq)
	if peak > k.dpk {
		k.dpk = peak
		k.cnt = k.hold
	} else if k.cnt > 0 {
		k.cnt--
	} else {
		k.dpk *= k.fall
		k.dpk += 1e-10
	}
}

// Read returns the current (peak, rms) pair and sets the flag so the next
// Process call resets the RMS accumulator. Read is single-reader: a
// second concurrent reader would race the flag.
func (k *KMeter) Read() (peak, rms float64) {
	peak, rms = k.dpk, k.rms
	k.flag = true
	return peak, rms
}

// DBFS converts a linear value to dBFS, returning -Inf for non-positive
// input.
func DBFS(value float64) float64 {
	if value <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(value)
}

// ReadDB is Read with both values already converted to dBFS.
func (k *KMeter) ReadDB() (peakDB, rmsDB float64) {
	peak, rms := k.Read()
	return DBFS(peak), DBFS(rms)
}

// Stereo bundles the left/right meters a channel keeps per fader stage.
type Stereo struct {
	Left, Right *KMeter
}

func NewStereo(period int, sampleRate float64) Stereo {
	return Stereo{Left: New(period, sampleRate), Right: New(period, sampleRate)}
}

func (s Stereo) Init(period int, sampleRate float64) {
	s.Left.Init(period, sampleRate)
	s.Right.Init(period, sampleRate)
}
