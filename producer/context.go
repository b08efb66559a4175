package producer

import "context"

// contextKey is the key under which a recorder is attached to a context.
type contextKey struct{}

// WithRecorder returns a child of ctx with r attached to it.
//
// It is intended for use in middleware, so that request handlers that have
// no direct access to the messenger can record invalidation items.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, contextKey{}, r)
}

// FromContext returns the recorder attached to ctx.
//
// ok is false if there is no recorder attached.
func FromContext(ctx context.Context) (r *Recorder, ok bool) {
	r, ok = ctx.Value(contextKey{}).(*Recorder)
	return r, ok
}
