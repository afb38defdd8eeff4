package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/dtm-labs/client/dtmcli"
	"go.opentelemetry.io/otel/codes"
)

// InvalidationPublisher grava a mudança local e avisa o serviço de preços
type InvalidationPublisher interface {
	// PublishStatusChange roda local numa transação e entrega o evento;
	// devolve o gid da mensagem DTM quando houver
	PublishStatusChange(ctx context.Context, event StatusChangedEvent, local func(tx *sql.Tx) error) (string, error)

	// PublishCartChange avisa que um carrinho mudou
	PublishCartChange(ctx context.Context, sessionID string) error
}

// DTMInvalidationPublisher entrega o evento como mensagem de duas fases do DTM:
// a transação local e o envio são atômicos e a entrega é ao menos uma vez
type DTMInvalidationPublisher struct {
	db            *sql.DB
	dtmServer     string
	serviceURL    string
	pricingURL    string
	internalToken string
	pricing       *PricingClient
}

// NewDTMInvalidationPublisher cria uma nova instância de DTMInvalidationPublisher
func NewDTMInvalidationPublisher(db *sql.DB, dtmServer, serviceURL, pricingURL, internalToken string, pricing *PricingClient) *DTMInvalidationPublisher {
	dtmcli.SetCurrentDBType("postgres")
	return &DTMInvalidationPublisher{
		db:            db,
		dtmServer:     dtmServer,
		serviceURL:    serviceURL,
		pricingURL:    pricingURL,
		internalToken: internalToken,
		pricing:       pricing,
	}
}

func (p *DTMInvalidationPublisher) genGid() (gid string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to generate gid, dtm unavailable: %v", r)
		}
	}()
	gid = dtmcli.MustGenGid(p.dtmServer)
	if gid == "" {
		return "", fmt.Errorf("internal error: failed to generate GID")
	}
	return gid, nil
}

// PublishStatusChange submete a mensagem com DoAndSubmitDB; o DTM consulta
// /api/orders/query-prepared se o serviço cair entre o commit e o submit
func (p *DTMInvalidationPublisher) PublishStatusChange(ctx context.Context, event StatusChangedEvent, local func(tx *sql.Tx) error) (string, error) {
	gid, err := p.genGid()
	if err != nil {
		return "", err
	}

	branchURL := p.pricingURL + statusChangedPath
	ctx, span := StartStatusMessageSpan(ctx, gid, branchURL, event)
	defer span.End()

	msg := dtmcli.NewMsg(p.dtmServer, gid).Add(branchURL, &event)
	msg.BranchHeaders = map[string]string{internalTokenHeader: p.internalToken}
	if tp := traceparent(ctx); tp != "" {
		msg.BranchHeaders["traceparent"] = tp
	}

	log.Printf("🚀 Submitting status change message | GID: %s | OrderID: %d | Status: %s", gid, event.OrderID, event.Status)

	err = msg.DoAndSubmitDB(p.serviceURL+"/api/orders/query-prepared", p.db, local)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("❌ Status change message failed: %v", err)
		return gid, fmt.Errorf("failed to submit status change: %w", err)
	}

	log.Printf("✅ Status change message submitted - GID: %s", gid)
	return gid, nil
}

// PublishCartChange avisa o serviço de preços diretamente; não há transação local para acompanhar
func (p *DTMInvalidationPublisher) PublishCartChange(ctx context.Context, sessionID string) error {
	return p.pricing.CartsChanged(ctx)
}

// DirectInvalidationPublisher grava a transação local e avisa o serviço de preços
// depois do commit, sem coordenador
type DirectInvalidationPublisher struct {
	db      *sql.DB
	pricing *PricingClient
}

// NewDirectInvalidationPublisher cria uma nova instância de DirectInvalidationPublisher
func NewDirectInvalidationPublisher(db *sql.DB, pricing *PricingClient) *DirectInvalidationPublisher {
	return &DirectInvalidationPublisher{db: db, pricing: pricing}
}

// PublishStatusChange grava e avisa; uma falha no aviso é registrada mas não desfaz a gravação
func (p *DirectInvalidationPublisher) PublishStatusChange(ctx context.Context, event StatusChangedEvent, local func(tx *sql.Tx) error) (string, error) {
	if err := runInTx(ctx, p.db, local); err != nil {
		return "", err
	}

	if err := p.pricing.OrderStatusChanged(ctx, event); err != nil {
		log.Printf("⚠️  Pricing notification failed for order %d: %v", event.OrderID, err)
	}
	return "", nil
}

// PublishCartChange avisa o serviço de preços diretamente
func (p *DirectInvalidationPublisher) PublishCartChange(ctx context.Context, sessionID string) error {
	return p.pricing.CartsChanged(ctx)
}
