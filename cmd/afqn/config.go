package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cafaro/afqn"
)

// options carries the run configuration. Flags override values loaded from a
// YAML configuration file, which overrides the defaults.
type options struct {
	Config      string  `yaml:"-"`
	Files       string  `yaml:"file"`
	Dist        int     `yaml:"distribution"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	WindowSize  int     `yaml:"window_size"`
	StreamLen   int64   `yaml:"stream_len"`
	Alpha       float64 `yaml:"alpha"`
	Bound       int     `yaml:"sketch_bound"`
	Fraction    int     `yaml:"sample_fraction"`
	Policy      string  `yaml:"update_policy"`
	Diagnostics bool    `yaml:"diagnostics"`
	Verbose     bool    `yaml:"verbose"`
}

func defaults() *options {
	return &options{
		WindowSize: afqn.DefaultWindowSize,
		Alpha:      afqn.DefaultAlpha,
		Fraction:   1,
	}
}

func (o *options) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.Config, "c", o.Config, "YAML configuration file")
	fs.StringVar(&o.Files, "f", o.Files, "input stream file; comma-separated files run concurrently")
	fs.IntVar(&o.Dist, "d", o.Dist, "synthetic distribution: 1 uniform [a,b), 2 exponential, 3 normal")
	fs.Float64Var(&o.X, "x", o.X, "first distribution parameter")
	fs.Float64Var(&o.Y, "y", o.Y, "second distribution parameter")
	fs.IntVar(&o.WindowSize, "s", o.WindowSize, "window size")
	fs.Int64Var(&o.StreamLen, "n", o.StreamLen, "online items after warm-up; s+n items are processed in total")
	fs.Float64Var(&o.Alpha, "a", o.Alpha, "initial relative-error target")
	fs.IntVar(&o.Bound, "b", o.Bound, "sketch bucket bound (0 means 2*s)")
	fs.IntVar(&o.Fraction, "t", o.Fraction, "sampling denominator: rework ceil((s-1)/t) differences per admission")
	fs.StringVar(&o.Policy, "p", o.Policy, "sampled update policy for t > 1: nearest or uniform")
	fs.BoolVar(&o.Diagnostics, "q", o.Diagnostics, "write per-step quantile diagnostics and exact-reference logs")
	fs.BoolVar(&o.Verbose, "v", o.Verbose, "debug logging")
}

// parseOptions resolves defaults, the optional configuration file, and flags,
// in that precedence order.
func parseOptions(args []string) (*options, error) {
	o := defaults()
	fs := flag.NewFlagSet("afqn", flag.ContinueOnError)
	o.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.Config == "" {
		return o, nil
	}

	loaded := defaults()
	if err := loaded.loadFile(o.Config); err != nil {
		return nil, err
	}
	loaded.Config = o.Config
	fs = flag.NewFlagSet("afqn", flag.ContinueOnError)
	loaded.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return loaded, nil
}

func (o *options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}
	return nil
}

func (o *options) validate() error {
	if o.Alpha <= 0 {
		return errors.New("the initial alpha must be positive (-a)")
	}
	if o.WindowSize < 3 {
		return fmt.Errorf("the window size must be at least 3, got %d (-s)", o.WindowSize)
	}
	if o.StreamLen <= 0 {
		return errors.New("the online stream length must be given (-n); s+n items are processed in total")
	}
	if o.Files == "" && o.Dist == 0 {
		return errors.New("an input must be given: a stream file (-f) or a distribution (-d)")
	}
	if o.Files != "" && o.Dist != 0 {
		return errors.New("a stream file (-f) and a distribution (-d) cannot both be given")
	}
	if o.Fraction < 1 {
		return fmt.Errorf("the sampling denominator must be at least 1, got %d (-t)", o.Fraction)
	}
	switch o.Policy {
	case "", "nearest", "uniform":
	default:
		return fmt.Errorf("unknown update policy %q (-p); can be nearest or uniform", o.Policy)
	}
	return nil
}

// updatePolicy maps the configured sampling mode onto an update policy. Full
// synchronized updates apply unless a coarser sampling denominator was asked
// for.
func (o *options) updatePolicy() afqn.UpdatePolicy {
	if o.Fraction == 1 {
		return afqn.UpdateFull
	}
	if o.Policy == "uniform" {
		return afqn.UpdateUniform
	}
	return afqn.UpdateNearest
}

// bound resolves the effective sketch bound.
func (o *options) bound() int {
	if o.Bound == 0 {
		return 2 * o.WindowSize
	}
	return o.Bound
}
