package storage

import "context"

type opNameKey struct{}

// WithOpName tags ctx with the logical operation ("deposit", "recover", ...)
// a transaction runs on behalf of. Versioned backends use it as the commit
// message; instrumentation uses it as a span attribute.
func WithOpName(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opNameKey{}, op)
}

// OpName returns the operation tagged by WithOpName, or "".
func OpName(ctx context.Context) string {
	op, _ := ctx.Value(opNameKey{}).(string)
	return op
}
