// Package hubctx carries per-call settings through context.
package hubctx

import "context"

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexDevice
)

// IsVerbose reports whether raw bus traffic should be dumped.
func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxIndexVerbose).(bool)
	return ok && val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Device returns the index of the USB device selected for the call, if any.
func Device(ctx context.Context) (int, bool) {
	val, ok := ctx.Value(ctxIndexDevice).(int)
	return val, ok
}

func SetDevice(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, ctxIndexDevice, index)
}
