package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const (
	defaultListingLimit = 12
	maxListingLimit     = 50
)

// CatalogService implements listing use cases.
type CatalogService struct {
	products ports.ProductRepository
	users    ports.UserRepository
	media    ports.MediaStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewCatalogService(products ports.ProductRepository, users ports.UserRepository, media ports.MediaStore, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		users:    users,
		media:    media,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateListing uploads the images and persists a new active listing owned by seller.
func (s *CatalogService) CreateListing(ctx context.Context, seller *domain.User, in ports.ListingInput, images []ports.ImageUpload) (*ports.ListingView, error) {
	if len(images) == 0 {
		return nil, domain.NewValidationError("images", "at least one product image is required")
	}

	uploaded, err := s.uploadImages(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	uploaded[0].IsPrimary = true

	availability := domain.Availability{IsAvailable: true, DeliveryOptions: []domain.DeliveryOption{domain.DeliveryPickup}}
	if in.Availability != nil {
		availability = *in.Availability
	}

	now := s.now()
	p := &domain.Product{
		ID:           s.products.NewID(),
		Name:         strings.TrimSpace(in.Name),
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		Subcategory:  strings.TrimSpace(in.Subcategory),
		Price:        in.Price,
		Unit:         in.Unit,
		Stock:        in.Stock,
		Images:       uploaded,
		SellerID:     seller.ID,
		Status:       domain.ProductActive,
		Details:      in.Details,
		Nutrition:    in.Nutrition,
		Tags:         in.Tags,
		Reviews:      map[string]domain.Review{},
		Availability: availability,
		CreatedAt:    now,
	}
	p.Normalize(now, true)

	if err := s.products.Create(ctx, p); err != nil {
		s.releaseImages(ctx, uploaded)
		return nil, fmt.Errorf("create listing: %w", err)
	}

	s.logger.Info().Str("product_id", p.ID).Str("seller_id", seller.ID).Msg("listing created")
	return &ports.ListingView{Product: p, Seller: seller.Summary()}, nil
}

// UpdateListing merges patch into product, appends new images and drops removed
// ones. A stale product is reloaded and the patch re-applied; removed images are
// released only after the save succeeds.
func (s *CatalogService) UpdateListing(ctx context.Context, product *domain.Product, patch ports.ListingPatch, newImages []ports.ImageUpload, removeImageIDs []string) (*ports.ListingView, error) {
	removeIDs := uniqueIDs(removeImageIDs...)
	if remainingImages(product, len(newImages), removeIDs) <= 0 {
		return nil, errNoImagesLeft()
	}

	uploaded, err := s.uploadImages(ctx, newImages)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}

	current := product
	var removed []string
	err = retryOnConflict(ctx, func() error {
		if current == nil {
			reloaded, err := s.products.FindByID(ctx, product.ID)
			if err != nil {
				return err
			}
			current = reloaded
		}
		if remainingImages(current, len(uploaded), removeIDs) <= 0 {
			return errNoImagesLeft()
		}

		nameChanged := applyListingPatch(current, patch)
		removed = removed[:0]
		for _, id := range removeIDs {
			if _, ok := current.RemoveImage(id); ok {
				removed = append(removed, id)
			}
		}
		current.Images = append(current.Images, uploaded...)
		current.Normalize(s.now(), nameChanged)

		if err := s.products.Save(ctx, current); err != nil {
			current = nil
			return err
		}
		return nil
	})
	if err != nil {
		s.releaseImages(ctx, uploaded)
		return nil, fmt.Errorf("update listing: %w", err)
	}

	for _, id := range removed {
		if err := s.media.Delete(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("product_id", current.ID).Str("public_id", id).Msg("failed to release listing image")
		}
	}

	view := &ports.ListingView{Product: current}
	if seller, err := s.users.FindByID(ctx, current.SellerID); err == nil {
		view.Seller = seller.Summary()
	}
	return view, nil
}

// remainingImages counts the images a listing keeps after removing ids and adding added.
func remainingImages(p *domain.Product, added int, removeIDs []string) int {
	n := len(p.Images) + added
	for _, id := range removeIDs {
		for _, img := range p.Images {
			if img.PublicID == id {
				n--
				break
			}
		}
	}
	return n
}

func errNoImagesLeft() error {
	return domain.NewValidationError("images", "product must have at least one image")
}

// DeleteListing releases every stored image and then removes the listing.
// When any release fails the listing is kept and the failure is returned;
// images released before the failure stay released.
func (s *CatalogService) DeleteListing(ctx context.Context, product *domain.Product) error {
	var errs []error
	for _, img := range product.Images {
		if err := s.media.Delete(ctx, img.PublicID); err != nil {
			s.logger.Error().Err(err).Str("product_id", product.ID).Str("public_id", img.PublicID).Msg("failed to release listing image")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete listing: release images: %w", errors.Join(errs...))
	}

	if err := s.products.Delete(ctx, product.ID); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	s.logger.Info().Str("product_id", product.ID).Msg("listing deleted")
	return nil
}

// AddReview upserts reviewerID's review on the listing.
func (s *CatalogService) AddReview(ctx context.Context, productID, reviewerID string, rating int, comment string) (*domain.Product, error) {
	var saved *domain.Product
	err := retryOnConflict(ctx, func() error {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := p.UpsertReview(reviewerID, rating, strings.TrimSpace(comment), now); err != nil {
			return err
		}
		p.Normalize(now, false)
		if err := s.products.Save(ctx, p); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// AdjustStock applies op to the listing's stock quantity.
func (s *CatalogService) AdjustStock(ctx context.Context, product *domain.Product, amount int, op domain.StockOperation) (*domain.Product, error) {
	current := product
	err := retryOnConflict(ctx, func() error {
		if current == nil {
			reloaded, err := s.products.FindByID(ctx, product.ID)
			if err != nil {
				return err
			}
			current = reloaded
		}
		current.AdjustStock(op, amount)
		current.Normalize(s.now(), false)
		if err := s.products.Save(ctx, current); err != nil {
			current = nil
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// CommitStock subtracts a paid quantity from a listing.
func (s *CatalogService) CommitStock(ctx context.Context, productID string, quantity int) error {
	return retryOnConflict(ctx, func() error {
		p, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		p.AdjustStock(domain.StockSubtract, quantity)
		p.Normalize(s.now(), false)
		return s.products.Save(ctx, p)
	})
}

// Search returns a page of active listings matching filter.
func (s *CatalogService) Search(ctx context.Context, filter ports.ProductFilter) (*ports.ListingPage, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit, defaultListingLimit, maxListingLimit)
	filter.Status = domain.ProductActive
	if filter.Sort == "" {
		filter.Sort = ports.SortNewest
	}
	return s.page(ctx, filter)
}

// GetByID returns a listing and counts the view.
func (s *CatalogService) GetByID(ctx context.Context, id string, viewer *domain.User) (*ports.ListingView, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProductActive && (viewer == nil || !p.OwnedBy(viewer.ID)) {
		return nil, domain.ErrProductNotFound
	}

	if err := s.products.IncrementViews(ctx, p.ID); err != nil {
		s.logger.Warn().Err(err).Str("product_id", p.ID).Msg("failed to count view")
	} else {
		p.Views++
	}

	ids := []string{p.SellerID}
	for uid := range p.Reviews {
		ids = append(ids, uid)
	}
	users, err := s.users.FindByIDs(ctx, uniqueIDs(ids...))
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}

	reviewers := make(map[string]*domain.UserSummary, len(p.Reviews))
	for uid := range p.Reviews {
		if sum := summaryOf(users, uid); sum != nil {
			reviewers[uid] = sum
		}
	}
	return &ports.ListingView{Product: p, Seller: summaryOf(users, p.SellerID), Reviewers: reviewers}, nil
}

func (s *CatalogService) FindProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.products.Categories(ctx)
}

// page runs a normalized filter and attaches seller summaries.
func (s *CatalogService) page(ctx context.Context, filter ports.ProductFilter) (*ports.ListingPage, error) {
	items, total, err := s.products.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	sellerIDs := make([]string, 0, len(items))
	for _, p := range items {
		sellerIDs = append(sellerIDs, p.SellerID)
	}
	sellers, err := s.users.FindByIDs(ctx, uniqueIDs(sellerIDs...))
	if err != nil {
		return nil, fmt.Errorf("search listings: %w", err)
	}

	views := make([]ports.ListingView, 0, len(items))
	for _, p := range items {
		views = append(views, ports.ListingView{Product: p, Seller: summaryOf(sellers, p.SellerID)})
	}
	return &ports.ListingPage{
		Items:    views,
		PageInfo: ports.NewPageInfo(filter.Page, filter.Limit, total),
	}, nil
}

func (s *CatalogService) uploadImages(ctx context.Context, images []ports.ImageUpload) ([]domain.ProductImage, error) {
	out := make([]domain.ProductImage, 0, len(images))
	for _, img := range images {
		stored, err := s.media.Upload(ctx, ports.MediaFolderProducts, img)
		if err != nil {
			s.releaseImages(ctx, out)
			return nil, fmt.Errorf("upload image %q: %w", img.Filename, err)
		}
		out = append(out, domain.ProductImage{URL: stored.URL, PublicID: stored.PublicID})
	}
	return out, nil
}

func (s *CatalogService) releaseImages(ctx context.Context, images []domain.ProductImage) {
	for _, img := range images {
		if err := s.media.Delete(ctx, img.PublicID); err != nil {
			s.logger.Warn().Err(err).Str("public_id", img.PublicID).Msg("failed to release image")
		}
	}
}

// applyListingPatch merges non-nil patch fields and reports whether the name changed.
func applyListingPatch(p *domain.Product, patch ports.ListingPatch) bool {
	nameChanged := false
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		nameChanged = name != p.Name
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Subcategory != nil {
		p.Subcategory = strings.TrimSpace(*patch.Subcategory)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.StockQuantity != nil {
		p.AdjustStock(domain.StockSet, *patch.StockQuantity)
	}
	if patch.StockUnit != nil {
		p.Stock.Unit = *patch.StockUnit
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Details != nil {
		p.Details = *patch.Details
	}
	if patch.Nutrition != nil {
		p.Nutrition = patch.Nutrition
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.Availability != nil {
		p.Availability = *patch.Availability
	}
	return nameChanged
}
