package service

import (
	"context"
	"fmt"

	"github.com/vibast-solutions/ms-go-favorpay/app/backend"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

type supportAPI interface {
	CreateSupportTicket(ctx context.Context, req backend.SupportTicketRequest) (*backend.SupportTicket, error)
}

type SupportService struct {
	api supportAPI
}

func NewSupportService(api supportAPI) *SupportService {
	return &SupportService{api: api}
}

func (s *SupportService) CreateTicket(ctx context.Context, req *types.SupportTicketRequest) (*backend.SupportTicket, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return s.api.CreateSupportTicket(ctx, backend.SupportTicketRequest{
		Subject:  req.Subject,
		Message:  req.Message,
		Category: req.Category,
	})
}
