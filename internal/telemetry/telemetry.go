// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry holds small helpers shared by the instrumented subsystems
package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/bazaar/domain"
)

const InstrumentationName = "github.com/blinklabs-io/bazaar"

// Tracer returns t, or the tracer of the global provider when t is nil
func Tracer(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return otel.Tracer(InstrumentationName)
}

// End finishes span, recording err. Domain rejections are tagged with their
// code but do not mark the span as failed.
func End(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != nil {
		span.SetAttributes(
			attribute.String("bazaar.error.kind", de.Kind.Error()),
			attribute.Int64("bazaar.error.code", int64(de.Code)),
		)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
