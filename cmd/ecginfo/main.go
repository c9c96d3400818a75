// Command ecginfo streams an ECG record through the beat detector and
// classifier and prints the detected beats.
//
// Usage:
//
//	ecginfo [flags] [file]
//
// The input is whitespace-separated integer samples; with no file, samples
// are read from standard input. With -demo, a synthetic record of 40 sinus
// beats followed by a run of ventricular bigeminy is analyzed instead.
//
// Examples:
//
//	ecginfo -rate 200 record.txt
//	ecginfo -demo -hrv
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/cwbudde/algo-ecg/ecg"
	"github.com/cwbudde/algo-ecg/ecg/ecgcodes"
	"github.com/cwbudde/algo-ecg/internal/ecgsim"
	"github.com/cwbudde/algo-ecg/measure/hrv"
)

func main() {
	rate := flag.Int("rate", 200, "sample rate in Hz (150-400)")
	beatRate := flag.Int("beat-rate", 0, "beat analysis rate in Hz (default rate/2)")
	demo := flag.Bool("demo", false, "analyze a synthetic demo rhythm instead of a file")
	withHRV := flag.Bool("hrv", false, "print RR variability measures")
	flag.Parse()

	if *beatRate == 0 {
		*beatRate = *rate / 2
	}

	samples, err := loadSamples(*demo, *rate, flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ecginfo:", err)
		os.Exit(1)
	}

	analyzer, err := ecg.NewAnalyzer(*rate, *beatRate)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ecginfo:", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SAMPLE\tTIME\tTYPE\tMATCH\tRR(ms)")

	var rrSamples []int
	lastBeat := -1
	for i, s := range samples {
		r := analyzer.Analyze(s)
		if r.SamplesSinceRWave == 0 {
			continue
		}

		at := i - r.SamplesSinceRWave
		if lastBeat >= 0 {
			rrSamples = append(rrSamples, at-lastBeat)
		}
		rrMS := 0
		if lastBeat >= 0 {
			rrMS = (at - lastBeat) * 1000 / *rate
		}
		lastBeat = at

		fmt.Fprintf(w, "%d\t%.2fs\t%s\t%d\t%d\n",
			at, float64(at)/float64(*rate), typeName(r.BeatType), r.BeatMatch, rrMS)
	}
	w.Flush()

	fmt.Printf("\n%d beats in %d samples (%.1f s)\n",
		len(rrSamples)+1, len(samples), float64(len(samples))/float64(*rate))

	if *withHRV && len(rrSamples) > 0 {
		printHRV(rrSamples, *rate)
	}
}

func loadSamples(demo bool, rate int, path string) ([]int, error) {
	if demo {
		g := ecgsim.New(rate, 1)
		stream := g.Rhythm(ecgsim.Normal, 800, 40)
		pvc := g.Bigeminy(ecgsim.Normal, ecgsim.Wide, 550, 1050, 8)
		return append(stream, pvc...), nil
	}

	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var samples []int
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<16), 1<<24)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("bad sample %q: %w", sc.Text(), err)
		}
		samples = append(samples, v)
	}
	return samples, sc.Err()
}

func typeName(code int) string {
	switch code {
	case ecgcodes.Normal:
		return "NORMAL"
	case ecgcodes.PVC:
		return "PVC"
	case ecgcodes.Unknown:
		return "UNKNOWN"
	default:
		return strconv.Itoa(code)
	}
}

func printHRV(rrSamples []int, rate int) {
	rrMS := hrv.IntervalsToMS(rrSamples, rate)
	td := hrv.AnalyzeTimeDomain(rrMS)

	fmt.Printf("\nHRV (time domain, %d intervals)\n", td.Count)
	fmt.Printf("  mean RR  %.1f ms (%.1f bpm)\n", td.MeanRR, td.MeanHR)
	fmt.Printf("  SDNN     %.1f ms\n", td.SDNN)
	fmt.Printf("  RMSSD    %.1f ms\n", td.RMSSD)
	fmt.Printf("  pNN50    %.1f%%\n", td.PNN50*100)

	bp, err := hrv.AnalyzeSpectrum(rrMS, hrv.Config{})
	if err != nil {
		fmt.Printf("  spectrum: %v\n", err)
		return
	}
	fmt.Printf("HRV (frequency domain)\n")
	fmt.Printf("  LF       %.1f ms²\n", bp.LF)
	fmt.Printf("  HF       %.1f ms²\n", bp.HF)
	fmt.Printf("  LF/HF    %.2f\n", bp.LFHFRatio)
}
