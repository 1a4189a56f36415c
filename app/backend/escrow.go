package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
)

const (
	pathEscrowTransactions = "/escrow_transactions"
	routeFavorEscrow       = "/favors/:id/escrow"
)

type ListMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

type Page struct {
	Page    int
	PerPage int
}

func (p Page) apply(q url.Values) {
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
}

type EscrowFilter struct {
	Status          entity.EscrowStatus
	TransactionType string
	Page
}

type EscrowList struct {
	Transactions []entity.EscrowTransaction `json:"escrow_transactions"`
	Meta         ListMeta                   `json:"meta"`
}

type escrowEnvelope struct {
	Transaction entity.EscrowTransaction `json:"escrow_transaction"`
}

type ResolveDisputeRequest struct {
	Resolution      entity.DisputeResolution `json:"resolution"`
	ResolutionNotes string                   `json:"resolution_notes,omitempty"`
	ProviderAmount  *decimal.Decimal         `json:"provider_amount,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

func favorEscrowPath(favorID string) string {
	return "/favors/" + url.PathEscape(favorID) + "/escrow"
}

func (c *Client) GetEscrow(ctx context.Context, favorID string) (*entity.EscrowTransaction, error) {
	var out escrowEnvelope
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   favorEscrowPath(favorID),
		route:  routeFavorEscrow,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Transaction, nil
}

func (c *Client) ListEscrowTransactions(ctx context.Context, filter EscrowFilter) (*EscrowList, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.TransactionType != "" {
		q.Set("transaction_type", filter.TransactionType)
	}
	filter.Page.apply(q)

	var out EscrowList
	if err := c.do(ctx, request{method: http.MethodGet, path: pathEscrowTransactions, query: q}, &out); err != nil {
		return nil, err
	}
	if out.Transactions == nil {
		out.Transactions = []entity.EscrowTransaction{}
	}
	return &out, nil
}

func (c *Client) DisputeEscrow(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error) {
	return c.escrowAction(ctx, favorID, "dispute", reasonRequest{Reason: reason})
}

func (c *Client) ResolveEscrowDispute(ctx context.Context, favorID string, req ResolveDisputeRequest) (*entity.EscrowTransaction, error) {
	return c.escrowAction(ctx, favorID, "resolve", req)
}

func (c *Client) ManualReleaseEscrow(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error) {
	return c.escrowAction(ctx, favorID, "manual_release", reasonRequest{Reason: reason})
}

func (c *Client) CancelEscrow(ctx context.Context, favorID, reason string) (*entity.EscrowTransaction, error) {
	return c.escrowAction(ctx, favorID, "cancel", reasonRequest{Reason: reason})
}

func (c *Client) escrowAction(ctx context.Context, favorID, action string, body any) (*entity.EscrowTransaction, error) {
	var out escrowEnvelope
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   favorEscrowPath(favorID) + "/" + action,
		route:  routeFavorEscrow + "/" + action,
		body:   body,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Transaction, nil
}
