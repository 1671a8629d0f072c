package blackhole

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Error categories. Every fatal failure wraps exactly one of these so the
// entry point can tell them apart with errors.Is.
var (
	ErrSetup          = errors.New("setup failure")
	ErrDeviceNotFound = errors.New("no suitable GPU device found")
	ErrTransfer       = errors.New("geometry transfer failure")
	ErrNoMemoryType   = errors.New("no suitable memory type")
)

// resultError carries a raw vk.Result.
type resultError struct {
	ret vk.Result
}

func (e resultError) Error() string {
	if err := vk.Error(e.ret); err != nil {
		return fmt.Sprintf("vulkan error: %s (%d)", err.Error(), e.ret)
	}
	return fmt.Sprintf("vulkan error: result %d", e.ret)
}

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError converts a failing vk.Result into an error, nil on vk.Success.
func NewError(ret vk.Result) error {
	if !isError(ret) {
		return nil
	}
	return resultError{ret: ret}
}

// setupErr wraps a failing vk.Result as a SetupFailure.
func setupErr(ret vk.Result, what string) error {
	if !isError(ret) {
		return nil
	}
	return errors.Wrap(categorized{cause: resultError{ret: ret}, kind: ErrSetup}, what)
}

// categorized attaches a sentinel to an underlying cause.
type categorized struct {
	cause error
	kind  error
}

func (c categorized) Error() string {
	return c.kind.Error() + ": " + c.cause.Error()
}

func (c categorized) Is(target error) bool {
	return target == c.kind
}

func (c categorized) Unwrap() error {
	return c.cause
}

// classify marks err as belonging to kind without losing its message.
func classify(err error, kind error) error {
	if err == nil || errors.Is(err, kind) {
		return err
	}
	return categorized{cause: err, kind: kind}
}

// Fatal runs the finalizers, reports err on stderr and exits with status 1.
func Fatal(err error, finalizers ...func()) {
	if err == nil {
		return
	}
	for _, fn := range finalizers {
		fn()
	}
	fmt.Fprintf(os.Stderr, "fatal: %+v\n", err)
	os.Exit(1)
}
