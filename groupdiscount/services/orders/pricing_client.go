package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	internalTokenHeader = "X-Internal-Token"

	statusChangedPath = "/internal/orders/status-changed"
	cartsChangedPath  = "/internal/carts/changed"
)

// PricingClient chama as rotas internas do serviço de preços
type PricingClient struct {
	client *resty.Client
}

// NewPricingClient cria uma nova instância de PricingClient
func NewPricingClient(baseURL, internalToken string, timeout time.Duration) *PricingClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	if internalToken != "" {
		client.SetHeader(internalTokenHeader, internalToken)
	}
	return &PricingClient{client: client}
}

func (p *PricingClient) post(ctx context.Context, path string, body any) error {
	req := p.client.R().SetContext(ctx).SetBody(body)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("pricing request %s failed: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("pricing request %s failed: %s", path, resp.Status())
	}
	return nil
}

// OrderStatusChanged avisa o serviço de preços de uma mudança de status
func (p *PricingClient) OrderStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	return p.post(ctx, statusChangedPath, event)
}

// CartsChanged pede ao serviço de preços para limpar os caches
func (p *PricingClient) CartsChanged(ctx context.Context) error {
	return p.post(ctx, cartsChangedPath, map[string]string{})
}
