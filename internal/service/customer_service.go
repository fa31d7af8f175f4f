package service

import (
	"context"
	"errors"
	"fmt"

	"paintpos/internal/model"
	"paintpos/internal/repository"
	"paintpos/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, userID string, req CreateCustomerRequest) (*model.Customer, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	ListCustomers(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
}

func NewCustomerService(customerRepo repository.CustomerRepository, auditRepo repository.AuditRepository) CustomerService {
	return &customerService{customerRepo: customerRepo, auditRepo: auditRepo}
}

func (s *customerService) CreateCustomer(ctx context.Context, userID string, req CreateCustomerRequest) (*model.Customer, error) {
	customer := &model.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Status:  model.ProductStatusActive,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	_ = s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     model.ActionCreateCustomer,
		EntityID:   customer.ID.String(),
		EntityName: customer.Name,
		Details:    "{}",
	})

	return customer, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid customer id").WithDetail("field", "id")
	}

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("customer", id)
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.customerRepo.List(ctx, page, limit, search)
}
