package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	seq       int
	updateErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.BusinessInfo != nil {
		bi := *u.BusinessInfo
		clone.BusinessInfo = &bi
	}
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		clone.ProfileImage = &img
	}
	return &clone
}

func (r *stubUserRepo) put(u *domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.seq++
		u.ID = fmt.Sprintf("u%d", r.seq)
	}
	r.users[u.ID] = cloneUser(u)
	return u
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.seq++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u%d", r.seq)
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = cloneUser(u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, ch ports.UserChanges) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u = cloneUser(u)
	if ch.FirstName != nil {
		u.FirstName = *ch.FirstName
	}
	if ch.LastName != nil {
		u.LastName = *ch.LastName
	}
	if ch.Phone != nil {
		u.Phone = *ch.Phone
	}
	if ch.Address != nil {
		u.Address = *ch.Address
	}
	if ch.BusinessInfo != nil {
		bi := *ch.BusinessInfo
		u.BusinessInfo = &bi
	}
	if ch.ProfileImage != nil {
		img := *ch.ProfileImage
		u.ProfileImage = &img
	}
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}
	if ch.IsActive != nil {
		u.IsActive = *ch.IsActive
	}
	if ch.LastLogin != nil {
		at := *ch.LastLogin
		u.LastLogin = &at
	}
	if !ch.UpdatedAt.IsZero() {
		u.UpdatedAt = ch.UpdatedAt
	}
	r.users[id] = u
	return nil
}

func (r *stubUserRepo) AddRating(_ context.Context, id string, value int) (domain.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return domain.Rating{}, r.updateErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.Rating{}, domain.ErrUserNotFound
	}
	u.Rating = u.Rating.Add(value)
	return u.Rating, nil
}

func (r *stubUserRepo) ListVendors(_ context.Context, q ports.VendorQuery) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.User
	for _, u := range r.users {
		if u.Role != domain.RoleSeller || !u.IsActive {
			continue
		}
		if q.VerifiedOnly && !u.IsVerified {
			continue
		}
		if q.MinRating > 0 && u.Rating.Average < q.MinRating {
			continue
		}
		if q.Search != "" {
			hay := strings.ToLower(u.FirstName + " " + u.LastName)
			if u.BusinessInfo != nil {
				hay += " " + strings.ToLower(u.BusinessInfo.BusinessName)
			}
			if !strings.Contains(hay, strings.ToLower(q.Search)) {
				continue
			}
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, q.Page, q.Limit), int64(len(matched)), nil
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

type stubProductRepo struct {
	mu      sync.Mutex
	items   map[string]*domain.Product
	seq     int
	saves   int
	saveErr error
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{items: make(map[string]*domain.Product)}
}

func cloneProduct(p *domain.Product) *domain.Product {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Images = append([]domain.ProductImage(nil), p.Images...)
	clone.Tags = append([]string(nil), p.Tags...)
	if p.Reviews != nil {
		clone.Reviews = make(map[string]domain.Review, len(p.Reviews))
		for k, v := range p.Reviews {
			clone.Reviews[k] = v
		}
	}
	return &clone
}

func (r *stubProductRepo) NewID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("p%d", r.seq)
}

func (r *stubProductRepo) put(p *domain.Product) *domain.Product {
	if p.ID == "" {
		p.ID = r.NewID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = cloneProduct(p)
	return p
}

func (r *stubProductRepo) get(id string) *domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneProduct(r.items[id])
}

func (r *stubProductRepo) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = cloneProduct(p)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *stubProductRepo) FindByIDs(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.items[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Save(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	stored, ok := r.items[p.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if stored.Version != p.Version {
		return domain.ErrConcurrentUpdate
	}
	p.Version++
	next := cloneProduct(p)
	next.Views = stored.Views
	r.items[p.ID] = next
	r.saves++
	return nil
}

func (r *stubProductRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *stubProductRepo) IncrementViews(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Views++
	return nil
}

func (r *stubProductRepo) Search(_ context.Context, f ports.ProductFilter) ([]*domain.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Product
	for _, p := range r.items {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.SellerID != "" && p.SellerID != f.SellerID {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *stubProductRepo) Categories(_ context.Context) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[domain.Category]struct{}{}
	var out []domain.Category
	for _, p := range r.items {
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			out = append(out, p.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *stubProductRepo) CountActiveBySeller(_ context.Context, sellerIDs []string) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64)
	for _, id := range sellerIDs {
		for _, p := range r.items {
			if p.SellerID == id && p.Status == domain.ProductActive {
				out[id]++
			}
		}
	}
	return out, nil
}

func (r *stubProductRepo) Stats(_ context.Context, sellerID string, status domain.ProductStatus) (ports.ProductStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var st ports.ProductStats
	var priceSum float64
	seen := map[domain.Category]struct{}{}
	for _, p := range r.items {
		if p.SellerID != sellerID || (status != "" && p.Status != status) {
			continue
		}
		st.TotalProducts++
		if p.Status == domain.ProductActive {
			st.ActiveProducts++
		}
		st.TotalStock += int64(p.Stock.Quantity)
		st.TotalViews += p.Views
		priceSum += p.Price
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			st.Categories = append(st.Categories, p.Category)
		}
	}
	if st.TotalProducts > 0 {
		st.AveragePrice = priceSum / float64(st.TotalProducts)
	}
	return st, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

type stubOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	numbers   map[string]struct{}
	seq       int
	createErr error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[string]*domain.Order), numbers: make(map[string]struct{})}
}

func cloneOrder(o *domain.Order) *domain.Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.DeliveryAddress != nil {
		a := *o.DeliveryAddress
		clone.DeliveryAddress = &a
	}
	if o.ActualDeliveryTime != nil {
		t := *o.ActualDeliveryTime
		clone.ActualDeliveryTime = &t
	}
	if o.Rating != nil {
		rt := *o.Rating
		clone.Rating = &rt
	}
	return &clone
}

func (r *stubOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, dup := r.numbers[o.OrderNumber]; dup {
		return domain.ErrDuplicateOrderNumber
	}
	r.seq++
	o.ID = fmt.Sprintf("o%d", r.seq)
	r.numbers[o.OrderNumber] = struct{}{}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *stubOrderRepo) Save(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return domain.ErrConcurrentUpdate
	}
	o.Version++
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *stubOrderRepo) List(_ context.Context, f ports.OrderFilter) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Order
	for _, o := range r.orders {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		if f.SellerID != "" && o.SellerID != f.SellerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

// ---------------------------------------------------------------------------
// Infrastructure doubles
// ---------------------------------------------------------------------------

type stubTokens struct{}

func (stubTokens) Issue(u *domain.User) (string, error) {
	return "token-" + u.ID, nil
}

func (stubTokens) Verify(token string) (*ports.TokenClaims, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok {
		return nil, errors.New("bad signature")
	}
	return &ports.TokenClaims{UserID: id}, nil
}

type stubMedia struct {
	mu        sync.Mutex
	seq       int
	stored    map[string]bool
	deleted   []string
	deleteErr error
	uploadErr error
}

func newStubMedia() *stubMedia {
	return &stubMedia{stored: make(map[string]bool)}
}

func (m *stubMedia) Upload(_ context.Context, folder string, img ports.ImageUpload) (domain.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return domain.Image{}, m.uploadErr
	}
	m.seq++
	id := fmt.Sprintf("%s/img%d", folder, m.seq)
	m.stored[id] = true
	return domain.Image{URL: "https://media.test/" + id, PublicID: id}, nil
}

func (m *stubMedia) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.stored, publicID)
	m.deleted = append(m.deleted, publicID)
	return nil
}

type stubDispatcher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (d *stubDispatcher) Enqueue(e domain.OrderEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *stubDispatcher) types() []domain.OrderEventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.OrderEventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start < 0 || start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func image(name string) ports.ImageUpload {
	return ports.ImageUpload{Filename: name, ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
}

func seller(repo *stubUserRepo, business string) *domain.User {
	return repo.put(&domain.User{
		FirstName:    "Sam",
		LastName:     "Seller",
		Email:        strings.ToLower(strings.ReplaceAll(business, " ", "")) + "@example.com",
		Role:         domain.RoleSeller,
		IsActive:     true,
		IsVerified:   true,
		BusinessInfo: &domain.BusinessInfo{BusinessName: business, BusinessType: domain.BusinessRestaurant},
	})
}

func buyer(repo *stubUserRepo, name string) *domain.User {
	return repo.put(&domain.User{
		FirstName: name,
		LastName:  "Buyer",
		Email:     strings.ToLower(name) + "@example.com",
		Role:      domain.RoleBuyer,
		IsActive:  true,
	})
}
