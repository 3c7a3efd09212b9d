package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"produce-market/internal/delivery"
	"produce-market/internal/domain"
	"produce-market/internal/payment"
	"produce-market/internal/realtime"
	"produce-market/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; !exists {
		return repository.ErrUserNotFound
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.Role = role
	return nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, token := range m.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	for key, token := range m.tokens {
		if token.ExpiresAt.Before(before) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	variants map[uuid.UUID]*domain.ProductVariant
	ordered  map[uuid.UUID]bool
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		variants: make(map[uuid.UUID]*domain.ProductVariant),
		ordered:  make(map[uuid.UUID]bool),
	}
}

func (m *mockProductRepository) add(name string, price, mrp int64, stock int) *domain.Product {
	now := time.Now()
	p := &domain.Product{
		ID:          uuid.New(),
		Name:        name,
		Slug:        domain.Slugify(name),
		Unit:        "kg",
		Price:       decimal.NewFromInt(price),
		MRP:         decimal.NewFromInt(mrp),
		Stock:       stock,
		IsActive:    true,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepository) addVariant(product *domain.Product, name string, price int64, stock int) *domain.ProductVariant {
	v := &domain.ProductVariant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      name,
		SKU:       product.Slug + "-" + name,
		Price:     decimal.NewFromInt(price),
		MRP:       decimal.NewFromInt(price),
		Stock:     stock,
		IsActive:  true,
	}
	m.variants[v.ID] = v
	return v
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	for _, p := range m.products {
		if p.Slug == product.Slug {
			return repository.ErrProductAlreadyExists
		}
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.IsActive = false
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	var out []*domain.Product
	for _, p := range m.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.FeaturedOnly && !p.IsFeatured {
			continue
		}
		if filter.InStockOnly && p.Stock <= 0 {
			continue
		}
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *mockProductRepository) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.IsFeatured = featured
	return nil
}

func (m *mockProductRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	p, ok := m.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return 0, repository.ErrInsufficientStock
	}
	p.Stock += delta
	return p.Stock, nil
}

func (m *mockProductRepository) HasOrders(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.ordered[id], nil
}

func (m *mockProductRepository) CreateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	for _, v := range m.variants {
		if v.SKU == variant.SKU {
			return repository.ErrVariantAlreadyExists
		}
	}
	m.variants[variant.ID] = variant
	return nil
}

func (m *mockProductRepository) UpdateVariant(ctx context.Context, variant *domain.ProductVariant) error {
	if _, ok := m.variants[variant.ID]; !ok {
		return repository.ErrVariantNotFound
	}
	m.variants[variant.ID] = variant
	return nil
}

func (m *mockProductRepository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.variants[id]; !ok {
		return repository.ErrVariantNotFound
	}
	delete(m.variants, id)
	return nil
}

func (m *mockProductRepository) FindVariantByID(ctx context.Context, id uuid.UUID) (*domain.ProductVariant, error) {
	v, ok := m.variants[id]
	if !ok {
		return nil, repository.ErrVariantNotFound
	}
	return v, nil
}

func (m *mockProductRepository) ListVariants(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]*domain.ProductVariant, error) {
	var out []*domain.ProductVariant
	for _, v := range m.variants {
		if v.ProductID == productID && (!activeOnly || v.IsActive) {
			out = append(out, v)
		}
	}
	return out, nil
}

type mockCategoryRepository struct {
	categories    map[uuid.UUID]*domain.Category
	subcategories map[uuid.UUID]*domain.Subcategory
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories:    make(map[uuid.UUID]*domain.Category),
		subcategories: make(map[uuid.UUID]*domain.Subcategory),
	}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.Slug == category.Slug {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range m.categories {
		if !activeOnly || c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	m.subcategories[sub.ID] = sub
	return nil
}

func (m *mockCategoryRepository) UpdateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	if _, ok := m.subcategories[sub.ID]; !ok {
		return repository.ErrSubcategoryNotFound
	}
	m.subcategories[sub.ID] = sub
	return nil
}

func (m *mockCategoryRepository) DeleteSubcategory(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.subcategories[id]; !ok {
		return repository.ErrSubcategoryNotFound
	}
	delete(m.subcategories, id)
	return nil
}

func (m *mockCategoryRepository) FindSubcategoryByID(ctx context.Context, id uuid.UUID) (*domain.Subcategory, error) {
	s, ok := m.subcategories[id]
	if !ok {
		return nil, repository.ErrSubcategoryNotFound
	}
	return s, nil
}

type mockCartRepository struct {
	items map[uuid.UUID]*domain.CartItem
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{items: make(map[uuid.UUID]*domain.CartItem)}
}

func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *mockCartRepository) ListItems(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	var out []*domain.CartItem
	for _, item := range m.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (m *mockCartRepository) FindItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartItem, error) {
	item, ok := m.items[itemID]
	if !ok || item.UserID != userID {
		return nil, repository.ErrCartItemNotFound
	}
	return item, nil
}

func (m *mockCartRepository) FindLine(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) (*domain.CartItem, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID && sameVariant(item.VariantID, variantID) {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int, now time.Time) error {
	item, err := m.FindItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	item.Quantity = quantity
	item.UpdatedAt = now
	return nil
}

func (m *mockCartRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	if _, err := m.FindItem(ctx, userID, itemID); err != nil {
		return err
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	for id, item := range m.items {
		if item.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

type mockAddressRepository struct {
	addresses map[uuid.UUID]*domain.Address
}

func newMockAddressRepository() *mockAddressRepository {
	return &mockAddressRepository{addresses: make(map[uuid.UUID]*domain.Address)}
}

func (m *mockAddressRepository) List(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	var out []*domain.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAddressRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*domain.Address, error) {
	a, ok := m.addresses[id]
	if !ok || a.UserID != userID {
		return nil, repository.ErrAddressNotFound
	}
	return a, nil
}

func (m *mockAddressRepository) Create(ctx context.Context, address *domain.Address) error {
	existing, _ := m.List(ctx, address.UserID)
	if len(existing) == 0 {
		address.IsDefault = true
	}
	if address.IsDefault {
		for _, a := range existing {
			a.IsDefault = false
		}
	}
	m.addresses[address.ID] = address
	return nil
}

func (m *mockAddressRepository) Update(ctx context.Context, address *domain.Address) error {
	if _, err := m.FindByID(ctx, address.UserID, address.ID); err != nil {
		return err
	}
	m.addresses[address.ID] = address
	return nil
}

func (m *mockAddressRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	a, err := m.FindByID(ctx, userID, id)
	if err != nil {
		return err
	}
	delete(m.addresses, id)
	if a.IsDefault {
		for _, other := range m.addresses {
			if other.UserID == userID {
				other.IsDefault = true
				break
			}
		}
	}
	return nil
}

func (m *mockAddressRepository) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := m.FindByID(ctx, userID, id); err != nil {
		return err
	}
	for _, a := range m.addresses {
		if a.UserID == userID {
			a.IsDefault = a.ID == id
		}
	}
	return nil
}

// mockOrderRepository applies stock movements to the product mock so
// checkout and cancellation can be observed end to end.
type mockOrderRepository struct {
	orders   map[uuid.UUID]*domain.Order
	products *mockProductRepository
	cart     *mockCartRepository
	placeErr error
	// takenNumbers makes that many Place calls fail with a number clash.
	takenNumbers int
	attempted    []string
	// beforePaymentWrite runs ahead of UpdatePayment to interleave writes.
	beforePaymentWrite func(id uuid.UUID)
}

func newMockOrderRepository(products *mockProductRepository, cart *mockCartRepository) *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order), products: products, cart: cart}
}

func (m *mockOrderRepository) stockOf(item *domain.OrderItem) *int {
	if item.VariantID != nil {
		if v, ok := m.products.variants[*item.VariantID]; ok {
			return &v.Stock
		}
		return nil
	}
	if p, ok := m.products.products[item.ProductID]; ok {
		return &p.Stock
	}
	return nil
}

func (m *mockOrderRepository) Place(ctx context.Context, order *domain.Order) error {
	if m.placeErr != nil {
		return m.placeErr
	}
	m.attempted = append(m.attempted, order.OrderNumber)
	if m.takenNumbers > 0 {
		m.takenNumbers--
		return repository.ErrOrderNumberTaken
	}
	for _, item := range order.Items {
		stock := m.stockOf(item)
		if stock == nil || *stock < item.Quantity {
			return repository.ErrInsufficientStock
		}
	}
	for _, item := range order.Items {
		*m.stockOf(item) -= item.Quantity
	}
	m.orders[order.ID] = order
	return m.cart.Clear(ctx, order.UserID)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	for _, o := range m.orders {
		if o.GatewayOrderID == gatewayOrderID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	var out []*domain.Order
	for _, o := range m.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if filter.PageSize > 0 {
		start := (filter.Page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus, restoreStock bool) error {
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if stored.Status != from {
		return repository.ErrOrderStatusChanged
	}
	if restoreStock {
		for _, item := range order.Items {
			if stock := m.stockOf(item); stock != nil {
				*stock += item.Quantity
			}
		}
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) UpdatePayment(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	if m.beforePaymentWrite != nil {
		m.beforePaymentWrite(order.ID)
	}
	stored, ok := m.orders[order.ID]
	if !ok || stored.Status != from {
		return repository.ErrOrderStatusChanged
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.GatewayOrderID = gatewayOrderID
	return nil
}

type mockPreOrderRepository struct {
	preorders    map[uuid.UUID]*domain.PreOrder
	beforeUpdate func(id uuid.UUID)
}

func newMockPreOrderRepository() *mockPreOrderRepository {
	return &mockPreOrderRepository{preorders: make(map[uuid.UUID]*domain.PreOrder)}
}

func (m *mockPreOrderRepository) Create(ctx context.Context, preorder *domain.PreOrder) error {
	copied := *preorder
	m.preorders[preorder.ID] = &copied
	return nil
}

func (m *mockPreOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PreOrder, error) {
	p, ok := m.preorders[id]
	if !ok {
		return nil, repository.ErrPreOrderNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockPreOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PreOrder, error) {
	for _, p := range m.preorders {
		if p.GatewayOrderID == gatewayOrderID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repository.ErrPreOrderNotFound
}

func (m *mockPreOrderRepository) List(ctx context.Context, filter domain.PreOrderFilter) ([]*domain.PreOrder, int, error) {
	var out []*domain.PreOrder
	for _, p := range m.preorders {
		if filter.UserID != nil && (p.UserID == nil || *p.UserID != *filter.UserID) {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.ProductID != nil && p.ProductID != *filter.ProductID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPreOrderRepository) Update(ctx context.Context, preorder *domain.PreOrder, from domain.PreOrderStatus) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(preorder.ID)
	}
	stored, ok := m.preorders[preorder.ID]
	if !ok || stored.Status != from {
		return repository.ErrPreOrderStatusChanged
	}
	copied := *preorder
	m.preorders[preorder.ID] = &copied
	return nil
}

type mockBannerRepository struct {
	banners map[uuid.UUID]*domain.Banner
}

func newMockBannerRepository() *mockBannerRepository {
	return &mockBannerRepository{banners: make(map[uuid.UUID]*domain.Banner)}
}

func (m *mockBannerRepository) Create(ctx context.Context, banner *domain.Banner) error {
	m.banners[banner.ID] = banner
	return nil
}

func (m *mockBannerRepository) Update(ctx context.Context, banner *domain.Banner) error {
	if _, ok := m.banners[banner.ID]; !ok {
		return repository.ErrBannerNotFound
	}
	m.banners[banner.ID] = banner
	return nil
}

func (m *mockBannerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.banners[id]; !ok {
		return repository.ErrBannerNotFound
	}
	delete(m.banners, id)
	return nil
}

func (m *mockBannerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Banner, error) {
	b, ok := m.banners[id]
	if !ok {
		return nil, repository.ErrBannerNotFound
	}
	return b, nil
}

func (m *mockBannerRepository) List(ctx context.Context) ([]*domain.Banner, error) {
	out := make([]*domain.Banner, 0, len(m.banners))
	for _, b := range m.banners {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *mockBannerRepository) ListLive(ctx context.Context, now time.Time) ([]*domain.Banner, error) {
	all, _ := m.List(ctx)
	var out []*domain.Banner
	for _, b := range all {
		if b.LiveAt(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBannerRepository) Reorder(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := m.banners[id]; !ok {
			return repository.ErrBannerNotFound
		}
	}
	for position, id := range ids {
		m.banners[id].SortOrder = position
	}
	return nil
}

type mockActivityRepository struct {
	mu       sync.Mutex
	entries  []*domain.ActivityLog
	daily    []*domain.DailyVisits
	sessions int
	err      error
}

func (m *mockActivityRepository) Create(ctx context.Context, entry *domain.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivityRepository) List(ctx context.Context, kind *domain.ActivityKind, page, pageSize int) ([]*domain.ActivityLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ActivityLog
	for _, e := range m.entries {
		if kind == nil || e.Kind == *kind {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *mockActivityRepository) DailyVisits(ctx context.Context, since time.Time) ([]*domain.DailyVisits, error) {
	return m.daily, m.err
}

func (m *mockActivityRepository) UniqueSessions(ctx context.Context, from, to time.Time) (int, error) {
	return m.sessions, m.err
}

type mockAnalyticsRepository struct {
	totals   *repository.RevenueTotals
	byStatus map[domain.OrderStatus]int
	byMethod map[domain.PaymentMethod]int
	newUsers int
	top      []*domain.ProductSales
	daily    []*domain.DailyRevenue
	low      []*domain.StockAlert
	lowArg   int
	err      error
}

func (m *mockAnalyticsRepository) Revenue(ctx context.Context, from, to time.Time) (*repository.RevenueTotals, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.totals, nil
}

func (m *mockAnalyticsRepository) OrdersByStatus(ctx context.Context, from, to time.Time) (map[domain.OrderStatus]int, error) {
	return m.byStatus, nil
}

func (m *mockAnalyticsRepository) OrdersByPaymentMethod(ctx context.Context, from, to time.Time) (map[domain.PaymentMethod]int, error) {
	return m.byMethod, nil
}

func (m *mockAnalyticsRepository) NewCustomers(ctx context.Context, from, to time.Time) (int, error) {
	return m.newUsers, nil
}

func (m *mockAnalyticsRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]*domain.ProductSales, error) {
	return m.top, nil
}

func (m *mockAnalyticsRepository) RevenueByDay(ctx context.Context, from, to time.Time) ([]*domain.DailyRevenue, error) {
	return m.daily, nil
}

func (m *mockAnalyticsRepository) LowStock(ctx context.Context, threshold int) ([]*domain.StockAlert, error) {
	m.lowArg = threshold
	return m.low, nil
}

type mockCustomerRepository struct {
	stats []*domain.CustomerStats
}

func (m *mockCustomerRepository) ListStats(ctx context.Context, search string) ([]*domain.CustomerStats, error) {
	out := make([]*domain.CustomerStats, len(m.stats))
	for i, s := range m.stats {
		copied := *s
		out[i] = &copied
	}
	return out, nil
}

type mockSettingsRepository struct {
	settings *domain.SiteSettings
	reads    int
}

func (m *mockSettingsRepository) Get(ctx context.Context) (*domain.SiteSettings, error) {
	m.reads++
	if m.settings == nil {
		return nil, repository.ErrSettingsNotFound
	}
	copied := *m.settings
	return &copied, nil
}

func (m *mockSettingsRepository) Update(ctx context.Context, settings *domain.SiteSettings) error {
	copied := *settings
	m.settings = &copied
	return nil
}

// staticSettings serves fixed settings without caching.
type staticSettings struct {
	settings *domain.SiteSettings
}

func (s staticSettings) Current(ctx context.Context) (*domain.SiteSettings, error) {
	copied := *s.settings
	return &copied, nil
}

func (s staticSettings) Update(ctx context.Context, settings *domain.SiteSettings) (*domain.SiteSettings, error) {
	return nil, errors.New("read only")
}

// Collaborator fakes

type fakeGateway struct {
	enabled bool
	secret  string
	created []payment.CreateOrderRequest
	err     error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{enabled: true, secret: "key-secret"}
}

func (g *fakeGateway) Enabled() bool { return g.enabled }
func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, req)
	return &payment.GatewayOrder{
		ID:       "order_" + uuid.NewString()[:8],
		Amount:   req.Amount,
		Currency: "INR",
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	return payment.Sign(g.secret, []byte(gatewayOrderID+"|"+paymentID)) == signature
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) bool {
	return payment.Sign("webhook-secret", body) == signature
}

type fakeEstimator struct {
	estimate *delivery.Estimate
	err      error
}

func (f *fakeEstimator) Estimate(ctx context.Context, postalCode string, subtotal decimal.Decimal) (*delivery.Estimate, error) {
	if f.err != nil {
		return nil, f.err
	}
	e := *f.estimate
	e.PostalCode = postalCode
	return &e, nil
}

func (f *fakeEstimator) ValidPostalCode(code string) bool {
	return len(code) == 6
}

type recordingNotifier struct {
	mu       sync.Mutex
	placed   []string
	changed  []string
	received int
	preorder int
}

func (n *recordingNotifier) OrderPlaced(order *domain.Order, email string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, email)
}

func (n *recordingNotifier) OrderStatusChanged(order *domain.Order, email string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, string(order.Status))
}

func (n *recordingNotifier) PreOrderReceived(p *domain.PreOrder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received++
}

func (n *recordingNotifier) PreOrderStatusChanged(p *domain.PreOrder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.preorder++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}
