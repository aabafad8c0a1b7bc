package service

import (
	"context"
	"fmt"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	carts       cart.Store
	wishlist    cart.Wishlist
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	carts cart.Store,
	wishlist cart.Wishlist,
	productRepo repository.ProductRepository,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		carts:       carts,
		wishlist:    wishlist,
		productRepo: productRepo,
		logger:      logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) Get(ctx context.Context, owner string) (*cart.Cart, error) {
	return s.carts.Get(ctx, owner)
}

// AddItem snapshots the product's current name, price and image into the cart.
func (s *cartService) AddItem(ctx context.Context, owner, productID string, quantity int) (*cart.Cart, error) {
	if quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := c.Add(cart.Line{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Image:     product.Image,
	}); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("owner", owner).
		Str("product_id", productID).
		Int("quantity", quantity).
		Msg("item added to cart")

	return c, nil
}

func (s *cartService) UpdateItem(ctx context.Context, owner, productID string, quantity int) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := c.UpdateQuantity(productID, quantity); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *cartService) RemoveItem(ctx context.Context, owner, productID string) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := c.Remove(productID); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *cartService) Clear(ctx context.Context, owner string) error {
	return s.carts.Delete(ctx, owner)
}

// Merge folds the guest cart into the user cart. Prices already in the
// user cart win over the guest's snapshot.
func (s *cartService) Merge(ctx context.Context, guestOwner, userOwner string) (*cart.Cart, error) {
	userCart, err := s.carts.Get(ctx, userOwner)
	if err != nil {
		return nil, err
	}
	if guestOwner == "" || guestOwner == userOwner {
		return userCart, nil
	}

	guestCart, err := s.carts.Get(ctx, guestOwner)
	if err != nil {
		return nil, err
	}
	if guestCart.IsEmpty() {
		return userCart, nil
	}

	userCart.Merge(guestCart)
	if err := s.carts.Save(ctx, userCart); err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, guestOwner); err != nil {
		s.logger.Warn().Err(err).Str("owner", guestOwner).Msg("failed to delete merged guest cart")
	}

	s.logger.Info().
		Str("guest", guestOwner).
		Str("user", userOwner).
		Int("lines", len(guestCart.Lines)).
		Msg("guest cart merged")

	return userCart, nil
}

// Wishlist returns the wishlisted products that still exist in the catalogue.
func (s *cartService) Wishlist(ctx context.Context, owner string) ([]model.Product, error) {
	ids, err := s.wishlist.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Msg("failed to load wishlist products")
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	return products, nil
}

func (s *cartService) AddToWishlist(ctx context.Context, owner, productID string) error {
	if _, err := s.product(ctx, productID); err != nil {
		return err
	}
	return s.wishlist.Add(ctx, owner, productID)
}

func (s *cartService) RemoveFromWishlist(ctx context.Context, owner, productID string) error {
	return s.wishlist.Remove(ctx, owner, productID)
}

func (s *cartService) product(ctx context.Context, productID string) (*model.Product, error) {
	if productID == "" {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", productID).Msg("failed to get product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	return product, nil
}
