package handler

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("checkout.handler")

// ordersPlaced counts successfully created orders by payment method.
var ordersPlaced, _ = meter.Int64Counter("checkout.orders.placed",
	metric.WithDescription("Number of orders created"),
	metric.WithUnit("{order}"),
)

func recordOrderPlaced(ctx context.Context, paymentMethod string) {
	ordersPlaced.Add(ctx, 1,
		metric.WithAttributes(attribute.String("payment_method", paymentMethod)))
}
