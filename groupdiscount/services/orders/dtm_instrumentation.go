package main

import (
	"context"
	"fmt"

	"github.com/dtm-labs/client/dtmcli"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const dtmTracerName = "orders-dtm"

// StartStatusMessageSpan abre o span da mensagem que leva a mudança de status ao serviço de preços
func StartStatusMessageSpan(ctx context.Context, gid, branchURL string, event StatusChangedEvent) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(dtmTracerName).Start(ctx, "dtm.msg.status_changed",
		trace.WithSpanKind(trace.SpanKindProducer))

	span.SetAttributes(
		attribute.String("dtm.gid", gid),
		attribute.String("dtm.trans_type", "msg"),
		attribute.String("dtm.branch.url", branchURL),
		attribute.Int64("order_id", event.OrderID),
		attribute.String("order_status", event.Status),
		attribute.Int64Slice("product_ids", event.ProductIDs),
	)
	return ctx, span
}

// StartQueryPreparedSpan abre o span da consulta de barreira feita pelo DTM
func StartQueryPreparedSpan(ctx context.Context, bb *dtmcli.BranchBarrier) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(dtmTracerName).Start(ctx, "dtm.query_prepared",
		trace.WithSpanKind(trace.SpanKindServer))

	span.SetAttributes(
		attribute.String("dtm.gid", bb.Gid),
		attribute.String("dtm.trans_type", bb.TransType),
		attribute.String("dtm.branch_id", bb.BranchID),
		attribute.String("dtm.op", bb.Op),
	)
	return ctx, span
}

// traceparent monta o header W3C do span atual; DTM não propaga o contexto sozinho
func traceparent(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return fmt.Sprintf("00-%s-%s-01", sc.TraceID(), sc.SpanID())
}
