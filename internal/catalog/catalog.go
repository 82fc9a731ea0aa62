package catalog

import (
	"context"
	"errors"

	"github.com/studio-lm/booooks/internal/domain"
)

// Reader is the read-only view of the product catalog. The storefront looks
// products up at computation time — totals and checkout exports always see
// the catalog's current price and name.
type Reader interface {
	Product(ctx context.Context, id string) (*domain.Product, error)
	Products(ctx context.Context) ([]*domain.Product, error)
}

var ErrProductNotFound = errors.New("product not found")

// Static is an in-memory Reader. It backs tests and any page that carries
// its catalog inline.
type Static struct {
	products map[string]*domain.Product
	order    []string
}

func NewStatic(products ...*domain.Product) *Static {
	s := &Static{products: make(map[string]*domain.Product, len(products))}
	for _, p := range products {
		if _, ok := s.products[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = p
	}
	return s
}

func (s *Static) Product(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *Static) Products(_ context.Context) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out, nil
}
