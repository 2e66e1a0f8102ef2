// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package publish

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("cardsmith/publish")

// startRunSpan opens the span covering a whole session. The returned func
// ends it with the session's outcome and err.
func startRunSpan(ctx context.Context, s *Session) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, "publish.run",
		trace.WithAttributes(
			attribute.String("session.id", s.ID.String()),
			attribute.String("package.name", s.Identity.String()),
		),
	)
	return ctx, func(err error) {
		span.SetAttributes(
			attribute.String("session.outcome", string(s.Outcome)),
			attribute.Int("session.publish_attempts", s.PublishAttempts),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// startAttemptSpan opens the span covering one pass from LocalTest onward.
func startAttemptSpan(ctx context.Context, s *Session) (context.Context, trace.Span) {
	return tracer.Start(ctx, "publish.attempt",
		trace.WithAttributes(
			attribute.String("package.name", s.Identity.String()),
			attribute.Int("publish.attempt", s.PublishAttempts+1),
		),
	)
}
