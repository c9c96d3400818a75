// Package ecg assembles the single-lead ECG analysis pipeline.
//
// Two entry points are provided: a standalone QRS detector, and the full
// beat detection and classification analyzer. Both accept one signed integer
// sample per call and carry all state privately; to analyze another record,
// construct a fresh instance.
package ecg

import (
	"github.com/cwbudde/algo-ecg/ecg/bdac"
	"github.com/cwbudde/algo-ecg/ecg/qrs"
)

// NewQRSDetector returns a QRS detector for the given sample rate
// (150–400 Hz). Detect returns 0, or, once per QRS complex, the number of
// samples since the estimated R-wave location.
func NewQRSDetector(sampleRate int) (*qrs.Detector, error) {
	return qrs.NewDetector(sampleRate)
}

// NewAnalyzer returns a beat detection and classification analyzer. The
// detection rate must be within 150–400 Hz; the beat-analysis rate must be
// half the detection rate.
func NewAnalyzer(sampleRate, beatSampleRate int) (*bdac.Analyzer, error) {
	return bdac.New(sampleRate, beatSampleRate)
}
