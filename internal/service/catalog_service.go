package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/neurovault/vault/internal/domain"
)

// CreateProduct adds a product to the catalog. Products are active unless the
// input says otherwise.
func (s *VaultService) CreateProduct(ctx context.Context, admin uuid.UUID, in domain.ProductInput) (domain.Product, error) {
	if err := in.Validate(); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return domain.Product{}, err
	}

	now := s.clock.Now()
	p := domain.Product{
		ID:          domain.ProductID(s.state.Seq.Product + 1),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Durations:   append(domain.Durations(nil), in.Durations...),
		IsActive:    in.IsActive == nil || *in.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.persist(ctx, "catalog.CreateProduct", &domain.Changeset{Products: []domain.Product{p}}); err != nil {
		return domain.Product{}, err
	}

	s.log.Info(ctx, "product created", "product_id", p.ID, "name", p.Name, "admin", admin)
	return p.Clone(), nil
}

// UpdateProduct applies the present fields of u. While a Locked entry
// references the product only the active flag may change.
func (s *VaultService) UpdateProduct(ctx context.Context, admin uuid.UUID, id domain.ProductID, u domain.ProductUpdate) (domain.Product, error) {
	if err := u.Validate(); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return domain.Product{}, err
	}
	cur, ok := s.state.Products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if u.ChangesTerms() && s.state.ProductInUse(id) {
		return domain.Product{}, fmt.Errorf("%w: product %d", domain.ErrProductInUse, id)
	}

	p := cur.Clone()
	p.Apply(u, s.clock.Now())
	if err := s.persist(ctx, "catalog.UpdateProduct", &domain.Changeset{Products: []domain.Product{p}}); err != nil {
		return domain.Product{}, err
	}

	s.log.Info(ctx, "product updated", "product_id", id, "active", p.IsActive, "admin", admin)
	return p.Clone(), nil
}

// DeleteProduct removes a product no Locked entry references.
func (s *VaultService) DeleteProduct(ctx context.Context, admin uuid.UUID, id domain.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(admin); err != nil {
		return err
	}
	if _, ok := s.state.Products[id]; !ok {
		return domain.ErrProductNotFound
	}
	if s.state.ProductInUse(id) {
		return fmt.Errorf("%w: product %d", domain.ErrProductInUse, id)
	}
	if err := s.persist(ctx, "catalog.DeleteProduct", &domain.Changeset{DeletedProducts: []domain.ProductID{id}}); err != nil {
		return err
	}

	s.log.Info(ctx, "product deleted", "product_id", id, "admin", admin)
	return nil
}

// ActiveProducts lists the products open for new locks.
func (s *VaultService) ActiveProducts(ctx context.Context) []domain.Product {
	return s.products(func(p *domain.Product) bool { return p.IsActive })
}

// AllProducts lists the whole catalog.
func (s *VaultService) AllProducts(ctx context.Context) []domain.Product {
	return s.products(func(*domain.Product) bool { return true })
}

func (s *VaultService) products(keep func(*domain.Product) bool) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.state.Products))
	for _, p := range s.state.Products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
