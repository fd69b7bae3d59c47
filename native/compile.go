package native

import (
	"bytes"
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ezachrisen/mamdani"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnsupported is returned by Compile when native evaluation is not
// available in this build or on this platform.
var ErrUnsupported = errors.New("native evaluation is not supported in this build")

const (
	defaultCC      = "cc"
	defaultTimeout = time.Minute
)

// Options controls compilation. The zero value compiles with the system
// default C compiler into the system temporary directory.
type Options struct {
	// CC is the C compiler executable.
	CC string

	// Dir is where the source and shared-library artifacts are written.
	Dir string

	// Timeout bounds the toolchain invocation; the external process is
	// killed when it expires, so a missing or wedged toolchain surfaces
	// as a compilation error, not a stall.
	Timeout time.Duration

	// FunctionName overrides the generated entry-point name.
	FunctionName string

	// KeepSource leaves the generated .c file next to the library
	// instead of removing it after the build.
	KeepSource bool
}

// Option is a functional option for Compile.
type Option func(*Options)

// WithCC selects the C compiler executable.
func WithCC(cc string) Option { return func(o *Options) { o.CC = cc } }

// WithDir selects the directory for the generated artifacts.
func WithDir(dir string) Option { return func(o *Options) { o.Dir = dir } }

// WithTimeout bounds the toolchain invocation.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithFunctionName overrides the generated entry-point name.
func WithFunctionName(name string) Option { return func(o *Options) { o.FunctionName = name } }

// KeepSource leaves the generated C file on disk for inspection.
func KeepSource() Option { return func(o *Options) { o.KeepSource = true } }

// Supported reports whether this build can load and call compiled models.
func Supported() bool { return libSupported }

// CompiledFIS is a fuzzy inference system compiled to a native routine.
//
// It is a snapshot: mutating the FIS it was compiled from does not change
// the compiled behavior. A CompiledFIS is safe for concurrent evaluation;
// Close must not run concurrently with Eval or Raw, and the caller must
// keep the CompiledFIS alive while calls may still occur.
type CompiledFIS struct {
	source  string
	inputs  []string
	domain  mamdani.Domain
	lib     *library
	libPath string
}

// Compile generates C source for the model, builds it into a shared
// library and binds the raw and crisp entry points. Each invocation uses
// distinct artifact names, so concurrent compilations of the same FIS do
// not collide.
//
// Failure leaves no artifacts behind and never affects the interpreted
// evaluator.
func Compile(ctx context.Context, f *mamdani.FIS, opts ...Option) (*CompiledFIS, error) {
	if !libSupported {
		return nil, ErrUnsupported
	}

	o := Options{CC: defaultCC, Timeout: defaultTimeout, FunctionName: DefaultFunctionName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Dir == "" {
		o.Dir = os.TempDir()
	}
	if len(f.Inputs) > maxInputs {
		return nil, errors.Errorf("model has %d inputs; the native bridge supports at most %d", len(f.Inputs), maxInputs)
	}

	src, err := Generate(f, o.FunctionName)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	cPath := filepath.Join(o.Dir, "mamdani_"+id+".c")
	libPath := filepath.Join(o.Dir, "mamdani_"+id+".so")

	if err := os.WriteFile(cPath, []byte(src), 0o600); err != nil {
		return nil, errors.Wrap(err, "writing model source")
	}
	if !o.KeepSource {
		defer os.Remove(cPath)
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.CC,
		"-Wall", "-O3", "-std=c99", "-fPIC", "-shared",
		"-o", libPath, cPath, "-lm")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(libPath)
		return nil, errors.Wrapf(err, "compiling model (%s of C source): %s",
			humanize.Bytes(uint64(len(src))), stderr.String())
	}

	lib, err := open(libPath, o.FunctionName, len(f.Inputs))
	if err != nil {
		os.Remove(libPath)
		return nil, err
	}

	c := &CompiledFIS{
		source:  src,
		inputs:  make([]string, len(f.Inputs)),
		domain:  f.Target.Domain,
		lib:     lib,
		libPath: libPath,
	}
	for i, v := range f.Inputs {
		c.inputs[i] = v.Name
	}
	return c, nil
}

// Source returns the C source the library was built from.
func (c *CompiledFIS) Source() string { return c.source }

// Eval returns the crisp output for the inputs through the compiled crisp
// entry point. The semantics match FIS.Eval: a missing input is an error
// and zero total activation returns mamdani.ErrNoActivation.
func (c *CompiledFIS) Eval(inputs map[string]float64) (float64, error) {
	args, err := c.ordered(inputs)
	if err != nil {
		return 0, err
	}
	v := c.lib.callCrisp(c.domain.Min, c.domain.Max, c.domain.Steps, args)
	if math.IsNaN(v) {
		return 0, mamdani.ErrNoActivation
	}
	return v, nil
}

// Raw evaluates the aggregated output membership at the probe point x
// through the compiled raw entry point.
func (c *CompiledFIS) Raw(x float64, inputs map[string]float64) (float64, error) {
	args, err := c.ordered(inputs)
	if err != nil {
		return 0, err
	}
	return c.lib.callRaw(x, args), nil
}

// Close unloads the native module and removes the library artifact.
// No Eval or Raw call may be in flight or made afterwards.
func (c *CompiledFIS) Close() error {
	if c.lib == nil {
		return nil
	}
	err := c.lib.close()
	c.lib = nil
	if rmErr := os.Remove(c.libPath); err == nil {
		err = rmErr
	}
	return err
}

// ordered binds the input map positionally, in variable declaration
// order.
func (c *CompiledFIS) ordered(inputs map[string]float64) ([]float64, error) {
	args := make([]float64, len(c.inputs))
	for i, name := range c.inputs {
		v, ok := inputs[name]
		if !ok {
			return nil, errors.Wrap(mamdani.ErrMissingInput, name)
		}
		args[i] = v
	}
	return args, nil
}
