//go:build cgo && !windows

package native

// The bridge follows the same FFI conventions as the rest of our native
// bindings: the shared library is opened with dlopen, the entry points
// are resolved with dlsym, and calls go through fixed-arity C trampolines
// because the generated functions take positional double arguments, not
// an array.

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <math.h>

static double call_raw(void *fp, double x, const double *in, int k) {
	switch (k) {
	case 1:
		return ((double (*)(double, double))fp)(x, in[0]);
	case 2:
		return ((double (*)(double, double, double))fp)(x, in[0], in[1]);
	case 3:
		return ((double (*)(double, double, double, double))fp)(x, in[0], in[1], in[2]);
	case 4:
		return ((double (*)(double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3]);
	case 5:
		return ((double (*)(double, double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3], in[4]);
	case 6:
		return ((double (*)(double, double, double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3], in[4], in[5]);
	case 7:
		return ((double (*)(double, double, double, double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3], in[4], in[5], in[6]);
	case 8:
		return ((double (*)(double, double, double, double, double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3], in[4], in[5], in[6], in[7]);
	case 9:
		return ((double (*)(double, double, double, double, double, double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3], in[4], in[5], in[6], in[7], in[8]);
	case 10:
		return ((double (*)(double, double, double, double, double, double, double, double, double, double, double))fp)(x, in[0], in[1], in[2], in[3], in[4], in[5], in[6], in[7], in[8], in[9]);
	}
	return NAN;
}

static double call_crisp(void *fp, double mn, double mx, int n, const double *in, int k) {
	switch (k) {
	case 1:
		return ((double (*)(double, double, int, double))fp)(mn, mx, n, in[0]);
	case 2:
		return ((double (*)(double, double, int, double, double))fp)(mn, mx, n, in[0], in[1]);
	case 3:
		return ((double (*)(double, double, int, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2]);
	case 4:
		return ((double (*)(double, double, int, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3]);
	case 5:
		return ((double (*)(double, double, int, double, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3], in[4]);
	case 6:
		return ((double (*)(double, double, int, double, double, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3], in[4], in[5]);
	case 7:
		return ((double (*)(double, double, int, double, double, double, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3], in[4], in[5], in[6]);
	case 8:
		return ((double (*)(double, double, int, double, double, double, double, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3], in[4], in[5], in[6], in[7]);
	case 9:
		return ((double (*)(double, double, int, double, double, double, double, double, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3], in[4], in[5], in[6], in[7], in[8]);
	case 10:
		return ((double (*)(double, double, int, double, double, double, double, double, double, double, double, double, double))fp)(mn, mx, n, in[0], in[1], in[2], in[3], in[4], in[5], in[6], in[7], in[8], in[9]);
	}
	return NAN;
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

const libSupported = true

// maxInputs is the largest input arity the trampolines above cover.
const maxInputs = 10

// library is a loaded native module with its two resolved entry points.
type library struct {
	handle unsafe.Pointer
	raw    unsafe.Pointer
	crisp  unsafe.Pointer
	arity  int
}

func open(path, name string, inputs int) (*library, error) {
	if inputs < 1 || inputs > maxInputs {
		return nil, errors.Errorf("unsupported input arity %d", inputs)
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW)
	if handle == nil {
		return nil, errors.Errorf("dlopen %s: %s", path, C.GoString(C.dlerror()))
	}

	lib := &library{handle: handle, arity: inputs}

	var err error
	if lib.raw, err = symbol(handle, name); err != nil {
		C.dlclose(handle)
		return nil, err
	}
	if lib.crisp, err = symbol(handle, name+"_crisp"); err != nil {
		C.dlclose(handle)
		return nil, err
	}
	return lib, nil
}

func symbol(handle unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any previous error
	sym := C.dlsym(handle, cname)
	if sym == nil {
		return nil, errors.Errorf("dlsym %s: %s", name, C.GoString(C.dlerror()))
	}
	return sym, nil
}

func (l *library) callRaw(x float64, args []float64) float64 {
	return float64(C.call_raw(l.raw, C.double(x), (*C.double)(unsafe.Pointer(&args[0])), C.int(len(args))))
}

func (l *library) callCrisp(min, max float64, n int, args []float64) float64 {
	return float64(C.call_crisp(l.crisp, C.double(min), C.double(max), C.int(n),
		(*C.double)(unsafe.Pointer(&args[0])), C.int(len(args))))
}

func (l *library) close() error {
	if l.handle == nil {
		return nil
	}
	if C.dlclose(l.handle) != 0 {
		l.handle = nil
		return errors.Errorf("dlclose: %s", C.GoString(C.dlerror()))
	}
	l.handle = nil
	return nil
}
