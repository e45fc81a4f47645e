package fn

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/WessleyAI/wessley-marketplace/pkg/fn"

// Stage is a function that transforms In to Out within a context.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Then composes two stages, short-circuiting on error.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, a A) Result[C] {
		r := first(ctx, a)
		if r.IsErr() {
			return Err[C](r.err)
		}
		return second(ctx, r.val)
	}
}

// MapStage wraps a pure function as a Stage.
func MapStage[In, Out any](f func(In) Out) Stage[In, Out] {
	return func(_ context.Context, in In) Result[Out] {
		return Ok(f(in))
	}
}

// TracedStage wraps a stage with OTel span creation. When size is non-nil the
// span is annotated with the size of the stage output.
func TracedStage[In, Out any](name string, stage Stage[In, Out], size func(Out) int) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := otel.Tracer(tracerName).Start(ctx, name)
		defer span.End()
		result := stage(ctx, in)
		if result.IsErr() {
			span.RecordError(result.err)
			span.SetStatus(codes.Error, result.err.Error())
			return result
		}
		if size != nil {
			span.SetAttributes(attribute.Int("output.size", size(result.val)))
		}
		return result
	}
}
