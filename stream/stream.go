// Package stream provides the input sources an estimator can be fed from: a
// newline-separated file of decimal values, read strictly in order, or a
// synthetic generator for one of three distributions.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source yields the observations of a data stream in order. Next returns
// io.EOF when the stream is exhausted.
type Source interface {
	Next() (float64, error)
	Name() string
}

// File reads a newline-separated text file of decimal floating-point values.
type File struct {
	name    string
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

// OpenFile opens a stream file.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	return &File{
		name:    filepath.Base(path),
		f:       f,
		scanner: bufio.NewScanner(f),
	}, nil
}

func (f *File) Next() (float64, error) {
	for f.scanner.Scan() {
		f.line++
		text := strings.TrimSpace(f.scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("%s:%d: %w", f.name, f.line, err)
		}
		return v, nil
	}
	if err := f.scanner.Err(); err != nil {
		return 0, err
	}
	return 0, io.EOF
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Close() error {
	return f.f.Close()
}

// Distribution kinds accepted by NewGenerator.
const (
	KindUniform     = 1
	KindExponential = 2
	KindNormal      = 3
)

// Generator yields synthetic observations drawn from a distribution.
type Generator struct {
	name string
	draw func() float64
}

// NewGenerator returns a generator for the given distribution kind:
// uniform on [x, y), exponential with rate x, or normal with mean x and
// standard deviation y. The seed fixes the sequence.
func NewGenerator(kind int, x, y float64, seed int64) (*Generator, error) {
	rng := rand.New(rand.NewSource(seed))
	switch kind {
	case KindUniform:
		if (x == 0 && y == 0) || x >= y {
			return nil, fmt.Errorf("uniform distribution needs a range [a, b) with a < b, got [%v, %v)", x, y)
		}
		return &Generator{name: "Uniform", draw: func() float64 {
			return x + rng.Float64()*(y-x)
		}}, nil
	case KindExponential:
		if x == 0 {
			return nil, fmt.Errorf("exponential distribution needs a nonzero rate")
		}
		return &Generator{name: "Exponential", draw: func() float64 {
			return rng.ExpFloat64() / x
		}}, nil
	case KindNormal:
		if x == 0 && y == 0 {
			return nil, fmt.Errorf("normal distribution needs a mean or standard deviation")
		}
		return &Generator{name: "Normal", draw: func() float64 {
			return x + rng.NormFloat64()*y
		}}, nil
	}
	return nil, fmt.Errorf("unknown distribution type %d (can be 1, 2 or 3)", kind)
}

func (g *Generator) Next() (float64, error) {
	return g.draw(), nil
}

func (g *Generator) Name() string {
	return g.name
}
