// Command afqn runs the online Qn estimator over a stream read from a file or
// drawn from a synthetic distribution, classifying the middle element of the
// sliding window as inlier or outlier on every admission and writing the
// results to CSV files.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cafaro/afqn"
	"github.com/cafaro/afqn/internal/reference"
	"github.com/cafaro/afqn/internal/report"
	"github.com/cafaro/afqn/stream"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "afqn:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if opts.Files == "" {
		src, err := stream.NewGenerator(opts.Dist, opts.X, opts.Y, time.Now().UnixNano())
		if err != nil {
			return err
		}
		return runStream(opts, src, logger)
	}

	paths := strings.Split(opts.Files, ",")
	if len(paths) == 1 {
		src, err := stream.OpenFile(paths[0])
		if err != nil {
			return err
		}
		defer src.Close()
		return runStream(opts, src, logger)
	}

	// Streams are independent, one synopsis each; run them concurrently.
	var g errgroup.Group
	for _, path := range paths {
		path := path
		g.Go(func() error {
			src, err := stream.OpenFile(path)
			if err != nil {
				return err
			}
			defer src.Close()
			return runStream(opts, src, logger)
		})
	}
	return g.Wait()
}

func runStream(opts *options, src stream.Source, logger *slog.Logger) error {
	estimator, err := afqn.NewBuilder(opts.WindowSize).
		WithInitialAlpha(opts.Alpha).
		WithSketchBound(opts.Bound).
		WithUpdatePolicy(opts.updatePolicy()).
		WithSampleFraction(opts.Fraction).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	detector := afqn.NewDetector(estimator)

	prefix := report.Prefix(src.Name())
	s, bound := opts.WindowSize, opts.bound()

	outliers, err := report.NewResultWriter(report.OutlierPath(prefix, s, bound))
	if err != nil {
		return err
	}
	defer outliers.Close()
	inliers, err := report.NewResultWriter(report.InlierPath(prefix, s, bound))
	if err != nil {
		return err
	}
	defer inliers.Close()

	var (
		diffs      *reference.Diffs
		quantiles  *report.QuantileWriter
		exactOut   *report.ExactWriter
		exactIn    *report.ExactWriter
		exactScale = detector.Scale()
	)
	if opts.Diagnostics {
		diffs = reference.NewDiffs(s)
		if quantiles, err = report.NewQuantileWriter(report.QuantilesPath(prefix, s, opts.Fraction)); err != nil {
			return err
		}
		defer quantiles.Close()
		if exactOut, err = report.NewExactWriter(report.ExactOutlierPath(prefix, s, bound)); err != nil {
			return err
		}
		defer exactOut.Close()
		if exactIn, err = report.NewExactWriter(report.ExactInlierPath(prefix, s, bound)); err != nil {
			return err
		}
		defer exactIn.Close()
	}

	res := estimator.Resolution()
	logger.Info("starting",
		"version", afqn.Version,
		"stream", src.Name(),
		"windowSize", s,
		"streamLen", opts.StreamLen,
		"pairs", estimator.Pairs(),
		"k", estimator.K(),
		"q", estimator.Quantile(),
		"sketchBound", bound,
		"alpha", res.Alpha,
		"gamma", res.Gamma,
		"qnScale", detector.Scale(),
		"policy", opts.updatePolicy())

	start := time.Now()
	total := int64(s) + opts.StreamLen
	for i := int64(0); i < total; i++ {
		x, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		verdict, err := detector.Process(x)
		if err != nil {
			return err
		}
		if diffs != nil {
			diffs.Admit(x)
		}
		if verdict == nil {
			continue
		}

		w := inliers
		if verdict.Outlier {
			w = outliers
		}
		if err := w.Write(verdict); err != nil {
			return err
		}

		if diffs != nil {
			if err := logDiagnostics(estimator, verdict, diffs, quantiles, exactOut, exactIn, exactScale); err != nil {
				return err
			}
		}
	}

	elapsed := time.Since(start)
	m := estimator.Metrics()
	processed := outliers.Count() + inliers.Count()
	logger.Info("finished",
		"stream", src.Name(),
		"outliers", outliers.Count(),
		"inliers", inliers.Count(),
		"collapses", m.Collapses,
		"alpha", m.Alpha,
		"bins", m.Bins,
		"misses", m.Misses,
		"elapsed", elapsed,
		"itemsPerSec", float64(processed)/elapsed.Seconds())
	return nil
}

// logDiagnostics writes the per-step quantile comparison and the
// exact-reference classification of the current middle element.
func logDiagnostics(estimator *afqn.Estimator, verdict *afqn.Verdict,
	diffs *reference.Diffs, quantiles *report.QuantileWriter, exactOut, exactIn *report.ExactWriter, scale float64) error {

	qs := []float64{0, 0.25, 0.5, 0.75, 1}
	exact, indexes := diffs.Quantiles()
	var approx [5]float64
	for i, q := range qs {
		v, err := estimator.EstimateQuantile(q)
		if err != nil {
			return err
		}
		approx[i] = v
	}
	var digest [5]float64
	copy(digest[:], reference.DigestQuantiles(diffs.Values(), qs...))

	m := estimator.Metrics()
	if err := quantiles.Write(m.Population, m.Bins, m.Collapses, exact, approx, digest, indexes); err != nil {
		return err
	}

	exactKth := diffs.Kth(estimator.K() - 1)
	relErr := 0.0
	if exactKth != 0 {
		relErr = math.Abs((verdict.Estimate - exactKth) / exactKth)
	}
	row := &report.ExactRow{
		Seq:       verdict.Seq,
		Value:     verdict.Value,
		Median:    verdict.Median,
		ExactKth:  exactKth,
		Estimate:  verdict.Estimate,
		RelErr:    relErr,
		Qn:        scale * exactKth,
		Collapses: verdict.Collapses,
		Bins:      verdict.Bins,
		Alpha:     verdict.Alpha,
	}
	row.Score = math.Abs(verdict.Value-verdict.Median) - 3*row.Qn
	if row.Score > 0 {
		return exactOut.Write(row)
	}
	return exactIn.Write(row)
}
