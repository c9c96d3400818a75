// Package bdac couples the QRS detector to the beat classifier.
//
// ECG samples are passed in one at a time. When a beat is detected the
// analyzer waits until enough trailing samples have arrived, extracts the
// beat into a buffer at the beat-analysis rate, and hands it to the
// classifier along with its RR interval and a noise estimate.
package bdac

import (
	"fmt"

	"github.com/cwbudde/algo-ecg/ecg/classify"
	"github.com/cwbudde/algo-ecg/ecg/ecgcodes"
	"github.com/cwbudde/algo-ecg/ecg/qrs"
)

const (
	// ecgBufferLength is sized for a beat plus the maximum detection delay.
	ecgBufferLength = 2000

	// beatQueueLength bounds beats awaiting classification. Detection
	// delays mean multiple beats can occur before there is enough data to
	// classify the first.
	beatQueueLength = 10
)

// discardClass marks a detection the classifier decided was the trailing
// edge of a PVC; the detection is suppressed and its interval folded into
// the next beat's RR.
const discardClass = 100

// Result reports one call's outcome. SamplesSinceRWave is 0 when no beat was
// classified at this sample; otherwise it is the number of samples since the
// approximate R-wave location, BeatType is the beat classification, and
// BeatMatch the index of the matched template.
type Result struct {
	SamplesSinceRWave int
	BeatType          int
	BeatMatch         int
}

// Analyzer is the top-level beat detection and classification pipeline.
// Its state adapts to the signal; analyze a new record with a new Analyzer.
type Analyzer struct {
	p  qrs.Params
	bp classify.Params

	detector   *qrs.Detector
	noise      *classify.NoiseChecker
	classifier *classify.Classifier

	ecgBuffer      [ecgBufferLength]int
	ecgBufferIndex int
	beatBuffer     []int
	tempBeat       []int
	beatQueue      [beatQueueLength]int
	beatQueueCount int
	rrCount        int
	initBeat       bool
}

// New returns an analyzer for the given detection and beat-analysis rates.
// The beat rate must be half the detection rate: beats are downsampled by
// averaging sample pairs.
func New(sampleRate, beatSampleRate int) (*Analyzer, error) {
	p, err := qrs.NewParams(sampleRate)
	if err != nil {
		return nil, err
	}
	bp, err := classify.NewParams(beatSampleRate)
	if err != nil {
		return nil, err
	}
	if beatSampleRate > sampleRate {
		return nil, fmt.Errorf("beat sample rate %d exceeds sample rate %d", beatSampleRate, sampleRate)
	}
	if sampleRate != 2*beatSampleRate {
		return nil, fmt.Errorf("sample rate %d must be twice the beat sample rate %d", sampleRate, beatSampleRate)
	}

	return &Analyzer{
		p:          p,
		bp:         bp,
		detector:   qrs.NewDetectorWithParams(p),
		noise:      classify.NewNoiseChecker(p),
		classifier: classify.New(bp, p),
		beatBuffer: make([]int, bp.BeatLength),
		tempBeat:   make([]int, (sampleRate/beatSampleRate)*bp.BeatLength),
		initBeat:   true,
	}, nil
}

// Classifier exposes the beat classifier for inspection.
func (a *Analyzer) Classifier() *classify.Classifier { return a.classifier }

// Analyze accepts one ECG sample. When a beat has been detected and
// classified, the result carries the number of samples since the approximate
// R-wave location along with the beat classification; otherwise
// SamplesSinceRWave is 0.
func (a *Analyzer) Analyze(ecgSample int) Result {
	var result Result
	rate := a.p.SampleRate / a.bp.BeatSampleRate

	a.ecgBuffer[a.ecgBufferIndex] = ecgSample
	if a.ecgBufferIndex++; a.ecgBufferIndex == ecgBufferLength {
		a.ecgBufferIndex = 0
	}

	a.rrCount++

	// Age the detection delays of any queued beats.
	for i := 0; i < a.beatQueueCount; i++ {
		a.beatQueue[i]++
	}

	if detectDelay := a.detector.Detect(ecgSample); detectDelay != 0 {
		a.beatQueue[a.beatQueueCount] = detectDelay
		a.beatQueueCount++
	}

	// Return if no beat is ready for classification yet.
	if a.beatQueue[0] < (a.bp.BeatLength-a.bp.FIDMark)*rate || a.beatQueueCount == 0 {
		a.noise.NoiseCheck(ecgSample, 0, 0, 0, 0)
		return result
	}

	// Classify the beat at the head of the queue.
	rr := a.rrCount - a.beatQueue[0]
	detectDelay := a.beatQueue[0]
	a.rrCount = detectDelay

	// Estimate the low frequency noise in the beat, using the dominant
	// type's beat boundaries when one exists.
	var beatBegin, beatEnd int
	if domType := a.classifier.Matcher().DominantType(); domType == -1 {
		beatBegin = a.p.MS250
		beatEnd = a.p.MS300
	} else {
		beatBegin = rate * (a.bp.FIDMark - a.classifier.Matcher().BeatBegin(domType))
		beatEnd = rate * (a.classifier.Matcher().BeatEnd(domType) - a.bp.FIDMark)
	}
	noiseEst := a.noise.NoiseCheck(ecgSample, detectDelay, rr, beatBegin, beatEnd)

	// Copy the beat from the circular buffer and halve the sample rate by
	// averaging pairs of data points.
	j := a.ecgBufferIndex - detectDelay - rate*a.bp.FIDMark
	if j < 0 {
		j += ecgBufferLength
	}
	for i := range a.tempBeat {
		a.tempBeat[i] = a.ecgBuffer[j]
		if j++; j == ecgBufferLength {
			j = 0
		}
	}
	a.downSampleBeat(a.beatBuffer, a.tempBeat)

	for i := 0; i < a.beatQueueCount-1; i++ {
		a.beatQueue[i] = a.beatQueue[i+1]
	}
	a.beatQueueCount--

	// The first beat is never classifiable.
	fidAdj := 0
	if a.initBeat {
		a.initBeat = false
		result.BeatType = ecgcodes.Unknown
		result.BeatMatch = 0
	} else {
		cr := a.classifier.Classify(a.beatBuffer, rr, noiseEst)
		result.BeatMatch = cr.BeatMatch
		result.BeatType = cr.Class
		fidAdj = cr.FidAdj * rate
	}

	// Ignore the detection if the classifier decided this was the trailing
	// edge of a PVC.
	if result.BeatType == discardClass {
		a.rrCount += rr
		result.SamplesSinceRWave = 0
		return result
	}

	// Limit the fiducial mark adjustment in case of problems with beat
	// onset and offset estimation.
	if fidAdj > a.p.MS80 {
		fidAdj = a.p.MS80
	} else if fidAdj < -a.p.MS80 {
		fidAdj = -a.p.MS80
	}

	result.SamplesSinceRWave = detectDelay - fidAdj
	return result
}

func (a *Analyzer) downSampleBeat(beatOut, beatIn []int) {
	for i := 0; i < a.bp.BeatLength; i++ {
		beatOut[i] = (beatIn[i<<1] + beatIn[(i<<1)+1]) >> 1
	}
}
