// Package report writes the CSV result files: outlier and inlier logs, their
// exact-reference counterparts, and the per-step quantile diagnostics.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cafaro/afqn"
)

// Prefix derives the result-file prefix from a source name: the first four
// characters of its basename.
func Prefix(name string) string {
	base := filepath.Base(name)
	if len(base) > 4 {
		return base[:4]
	}
	return base
}

// OutlierPath and friends name the result files after the stream prefix, the
// window size, and the sketch bound.
func OutlierPath(prefix string, s, bound int) string {
	return fmt.Sprintf("%s-Outlier-%d-%d.csv", prefix, s, bound)
}

func InlierPath(prefix string, s, bound int) string {
	return fmt.Sprintf("%s-Inlier-%d-%d.csv", prefix, s, bound)
}

func ExactOutlierPath(prefix string, s, bound int) string {
	return fmt.Sprintf("%s-ExactOutlier-%d-%d.csv", prefix, s, bound)
}

func ExactInlierPath(prefix string, s, bound int) string {
	return fmt.Sprintf("%s-ExactInlier-%d-%d.csv", prefix, s, bound)
}

func QuantilesPath(prefix string, s, fraction int) string {
	return fmt.Sprintf("Quantiles-%s-%d-%d.csv", prefix, s, fraction)
}

// ResultWriter streams classified admissions to a CSV file.
type ResultWriter struct {
	f *os.File
	w *csv.Writer
	n int64
}

var resultHeader = []string{"seqNo", "item", "median", "qn", "zscore", "collapses", "bins", "alpha"}

func NewResultWriter(path string) (*ResultWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening result log: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(resultHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &ResultWriter{f: f, w: w}, nil
}

func (r *ResultWriter) Write(v *afqn.Verdict) error {
	r.n++
	return r.w.Write([]string{
		strconv.FormatInt(v.Seq, 10),
		ffmt(v.Value),
		ffmt(v.Median),
		ffmt(v.Qn),
		ffmt(v.Score),
		strconv.Itoa(v.Collapses),
		strconv.Itoa(v.Bins),
		ffmt(v.Alpha),
	})
}

// Count returns the number of rows written.
func (r *ResultWriter) Count() int64 {
	return r.n
}

func (r *ResultWriter) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// ExactRow is one admission classified against the exact k-th order
// statistic instead of the sketch estimate.
type ExactRow struct {
	Seq       int64
	Value     float64
	Median    float64
	ExactKth  float64
	Estimate  float64
	RelErr    float64
	Qn        float64
	Score     float64
	Collapses int
	Bins      int
	Alpha     float64
}

// ExactWriter streams exact-reference classifications to a CSV file.
type ExactWriter struct {
	f *os.File
	w *csv.Writer
	n int64
}

var exactHeader = []string{"seqNo", "item", "median", "kth", "estimate", "relErr", "qn", "zscore", "collapses", "bins", "alpha"}

func NewExactWriter(path string) (*ExactWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening exact result log: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(exactHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &ExactWriter{f: f, w: w}, nil
}

func (e *ExactWriter) Write(row *ExactRow) error {
	e.n++
	return e.w.Write([]string{
		strconv.FormatInt(row.Seq, 10),
		ffmt(row.Value),
		ffmt(row.Median),
		ffmt(row.ExactKth),
		ffmt(row.Estimate),
		ffmt(row.RelErr),
		ffmt(row.Qn),
		ffmt(row.Score),
		strconv.Itoa(row.Collapses),
		strconv.Itoa(row.Bins),
		ffmt(row.Alpha),
	})
}

func (e *ExactWriter) Count() int64 {
	return e.n
}

func (e *ExactWriter) Close() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		e.f.Close()
		return err
	}
	return e.f.Close()
}

// QuantileWriter streams the per-step comparison of the sketch against the
// exact order statistics and a t-digest, at the minimum, the quartiles, and
// the maximum.
type QuantileWriter struct {
	f *os.File
	w *csv.Writer
}

func NewQuantileWriter(path string) (*QuantileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening quantile log: %w", err)
	}
	w := csv.NewWriter(f)
	header := []string{"population", "bins", "collapses"}
	for _, q := range []string{"Min", "Q1", "Q2", "Q3", "Max"} {
		header = append(header, "E"+q, "A"+q, "T"+q, "err", "index")
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &QuantileWriter{f: f, w: w}, nil
}

// Write logs one step: exact, sketch, and digest values per quantile, plus
// the sketch's relative error against the exact value.
func (q *QuantileWriter) Write(population, bins, collapses int, exact, approx, digest [5]float64, indexes [5]int) error {
	row := []string{
		strconv.Itoa(population),
		strconv.Itoa(bins),
		strconv.Itoa(collapses),
	}
	for i := range exact {
		relErr := 0.0
		if exact[i] != 0 {
			relErr = abs((approx[i] - exact[i]) / exact[i])
		}
		row = append(row,
			ffmt(exact[i]),
			ffmt(approx[i]),
			ffmt(digest[i]),
			ffmt(relErr),
			strconv.Itoa(indexes[i]),
		)
	}
	return q.w.Write(row)
}

func (q *QuantileWriter) Close() error {
	q.w.Flush()
	if err := q.w.Error(); err != nil {
		q.f.Close()
		return err
	}
	return q.f.Close()
}

func ffmt(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
