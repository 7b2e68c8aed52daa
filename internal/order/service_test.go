package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	catalogdomain "github.com/ovenworks/bakehouse/internal/catalog/domain"
	"github.com/ovenworks/bakehouse/internal/identity"
	"github.com/ovenworks/bakehouse/internal/order/domain"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

// fakeInventory mimics the storage-layer contract: conditional decrement
// under a lock, availability flip at zero, no flip back on release.
type fakeInventory struct {
	mu       sync.Mutex
	products map[string]*catalogdomain.Product

	// reserveHook, when set, runs before the normal reserve logic so tests
	// can inject failures between the precheck and the reservation.
	reserveHook func(id string) error
}

func newFakeInventory(products ...*catalogdomain.Product) *fakeInventory {
	m := make(map[string]*catalogdomain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeInventory{products: m}
}

func (f *fakeInventory) Get(ctx context.Context, id string) (*catalogdomain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, apperror.NotFound("product %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeInventory) Reserve(ctx context.Context, id string, qty int) (*catalogdomain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveHook != nil {
		if err := f.reserveHook(id); err != nil {
			return nil, err
		}
	}
	p, ok := f.products[id]
	if !ok {
		return nil, apperror.NotFound("product %s not found", id)
	}
	if p.Stock < qty {
		return nil, apperror.InsufficientStock(id, p.Name)
	}
	p.Stock -= qty
	if p.Stock == 0 {
		p.IsAvailable = false
	}
	cp := *p
	return &cp, nil
}

func (f *fakeInventory) Release(ctx context.Context, id string, qty int) (*catalogdomain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, apperror.NotFound("product %s not found", id)
	}
	p.Stock += qty
	cp := *p
	return &cp, nil
}

func (f *fakeInventory) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	seq    int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.orders {
		if existing.OrderNumber == o.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}
	f.seq++
	o.ID = fmt.Sprintf("order-%d", f.seq)
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return apperror.NotFound("order %s not found", id)
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperror.NotFound("order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) List(ctx context.Context, filter ListFilter) ([]domain.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.Status) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperror.NotFound("order %s not found", id)
	}
	if o.Status != from {
		return nil, apperror.InvalidTransition(string(o.Status), string(to))
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) StatsByStatus(ctx context.Context, userID string) ([]StatusStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byStatus := make(map[domain.Status]*StatusStat)
	for _, o := range f.orders {
		if userID != "" && o.UserID != userID {
			continue
		}
		s, ok := byStatus[o.Status]
		if !ok {
			s = &StatusStat{Status: o.Status}
			byStatus[o.Status] = s
		}
		s.Count++
		s.TotalAmount += o.TotalAmount
	}
	var out []StatusStat
	for _, s := range byStatus {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeOrderRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

const (
	productA = "64f000000000000000000001"
	productB = "64f000000000000000000002"
)

var (
	customer = identity.Identity{UserID: "u1", Role: identity.RoleUser}
	admin    = identity.Identity{UserID: "boss", Role: identity.RoleAdmin}
)

func product(id, name string, price float64, stock int) *catalogdomain.Product {
	return &catalogdomain.Product{
		ID: id, Name: name, Price: price, Stock: stock, IsAvailable: true,
	}
}

func newTestService(repo Repository, inv Inventory) *Service {
	return NewService(repo, inv, Pricing{TaxRate: 0.10, DeliveryFee: 5}, nil, nil, nil, nil)
}

func placeInput(items ...ItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		Items: items,
		DeliveryAddress: domain.Address{
			Street: "1 Baker St", City: "Springfield", State: "IL",
			PostalCode: "62701", Country: "US",
		},
		PaymentMethod: domain.MethodCash,
	}
}

func TestPlaceOrderScenario(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 5))
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	o, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 2},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if o.Subtotal != 20 || o.Tax != 2 || o.TotalAmount != 27 {
		t.Errorf("totals = %v/%v/%v, want 20/2/27", o.Subtotal, o.Tax, o.TotalAmount)
	}
	if o.Status != domain.StatusPending {
		t.Errorf("status = %v, want pending", o.Status)
	}
	if o.Items[0].ProductName != "Sourdough" {
		t.Errorf("product name snapshot = %q, want Sourdough", o.Items[0].ProductName)
	}
	if got := inv.stock(productA); got != 3 {
		t.Errorf("stock after placement = %d, want 3", got)
	}
	if repo.count() != 1 {
		t.Errorf("orders persisted = %d, want 1", repo.count())
	}
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 1))
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	_, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 2},
	))
	if apperror.KindOf(err) != apperror.KindInsufficientStock {
		t.Fatalf("error kind = %v, want insufficient_stock", apperror.KindOf(err))
	}
	if e := apperror.AsError(err); e.ProductID != productA {
		t.Errorf("error product = %q, want %q", e.ProductID, productA)
	}
	if got := inv.stock(productA); got != 1 {
		t.Errorf("stock = %d, want unchanged 1", got)
	}
	if repo.count() != 0 {
		t.Errorf("orders persisted = %d, want 0", repo.count())
	}
}

func TestPlaceOrderProductNotFound(t *testing.T) {
	inv := newFakeInventory()
	svc := newTestService(newFakeOrderRepo(), inv)

	_, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
	))
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("error kind = %v, want not_found", apperror.KindOf(err))
	}
}

func TestPlaceOrderUnavailableProduct(t *testing.T) {
	p := product(productA, "Sourdough", 10, 5)
	p.IsAvailable = false
	svc := newTestService(newFakeOrderRepo(), newFakeInventory(p))

	_, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
	))
	if apperror.KindOf(err) != apperror.KindValidation {
		t.Fatalf("error kind = %v, want validation_error", apperror.KindOf(err))
	}
}

// A reservation failure partway through a multi-item order must roll back
// earlier reservations and remove the persisted order.
func TestPlaceOrderRollsBackPartialReservation(t *testing.T) {
	inv := newFakeInventory(
		product(productA, "Sourdough", 10, 1),
		product(productB, "Croissant", 3, 1),
	)
	// The precheck sees stock for B, but the reservation loses the race.
	inv.reserveHook = func(id string) error {
		if id == productB {
			return apperror.InsufficientStock(productB, "Croissant")
		}
		return nil
	}
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	_, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
		ItemInput{ProductID: productB, Quantity: 1},
	))
	if apperror.KindOf(err) != apperror.KindInsufficientStock {
		t.Fatalf("error kind = %v, want insufficient_stock", apperror.KindOf(err))
	}

	if got := inv.stock(productA); got != 1 {
		t.Errorf("product A stock = %d, want rolled back to 1", got)
	}
	if got := inv.stock(productB); got != 1 {
		t.Errorf("product B stock = %d, want untouched 1", got)
	}
	if repo.count() != 0 {
		t.Errorf("orders persisted = %d, want 0 after compensation", repo.count())
	}
}

// Two concurrent placements for the last unit: exactly one wins.
func TestConcurrentPlacementLastUnit(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 1))
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(context.Background(), customer, placeInput(
				ItemInput{ProductID: productA, Quantity: 1},
			))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else if apperror.KindOf(err) == apperror.KindInsufficientStock {
			lost++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Errorf("winners = %d, losers = %d, want exactly 1 each", won, lost)
	}
	if got := inv.stock(productA); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
	if repo.count() != 1 {
		t.Errorf("orders persisted = %d, want 1", repo.count())
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 5))
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	o, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 2},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got := inv.stock(productA); got != 3 {
		t.Fatalf("stock after placement = %d, want 3", got)
	}

	cancelled, err := svc.Cancel(context.Background(), customer, o.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Errorf("status = %v, want cancelled", cancelled.Status)
	}
	if got := inv.stock(productA); got != 5 {
		t.Errorf("stock after cancel = %d, want restored 5", got)
	}
}

func TestCancelNonPendingFails(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 5))
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	o, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 2},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusProcessing); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, err = svc.Cancel(context.Background(), customer, o.ID)
	if apperror.KindOf(err) != apperror.KindInvalidTransition {
		t.Fatalf("error kind = %v, want invalid_state_transition", apperror.KindOf(err))
	}
	if got := inv.stock(productA); got != 3 {
		t.Errorf("stock = %d, want unchanged 3", got)
	}

	// Cancelling twice: the first cancel wins, the second is rejected and
	// leaves stock alone.
	o2, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), customer, o2.ID); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	stockAfter := inv.stock(productA)
	_, err = svc.Cancel(context.Background(), customer, o2.ID)
	if apperror.KindOf(err) != apperror.KindInvalidTransition {
		t.Fatalf("second cancel kind = %v, want invalid_state_transition", apperror.KindOf(err))
	}
	if got := inv.stock(productA); got != stockAfter {
		t.Errorf("stock = %d, want unchanged %d", got, stockAfter)
	}
}

func TestCancelAuthorization(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 5))
	svc := newTestService(newFakeOrderRepo(), inv)

	o, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	stranger := identity.Identity{UserID: "u2", Role: identity.RoleUser}
	if _, err := svc.Cancel(context.Background(), stranger, o.ID); apperror.KindOf(err) != apperror.KindAuthorization {
		t.Errorf("stranger cancel kind = %v, want authorization_error", apperror.KindOf(err))
	}

	// Admins may cancel any pending order.
	if _, err := svc.Cancel(context.Background(), admin, o.ID); err != nil {
		t.Errorf("admin cancel: %v", err)
	}
}

func TestUpdateStatusRules(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 5))
	svc := newTestService(newFakeOrderRepo(), inv)

	o, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), customer, o.ID, domain.StatusProcessing); apperror.KindOf(err) != apperror.KindAuthorization {
		t.Errorf("non-admin update kind = %v, want authorization_error", apperror.KindOf(err))
	}
	if _, err := svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusReady); apperror.KindOf(err) != apperror.KindInvalidTransition {
		t.Errorf("skip-ahead update kind = %v, want invalid_state_transition", apperror.KindOf(err))
	}
	if _, err := svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusCancelled); apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("cancel via PATCH kind = %v, want validation_error", apperror.KindOf(err))
	}

	updated, err := svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusProcessing)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != domain.StatusProcessing {
		t.Errorf("status = %v, want processing", updated.Status)
	}
}

func TestGetAuthorization(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 5))
	svc := newTestService(newFakeOrderRepo(), inv)

	o, err := svc.PlaceOrder(context.Background(), customer, placeInput(
		ItemInput{ProductID: productA, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if _, err := svc.Get(context.Background(), customer, o.ID); err != nil {
		t.Errorf("owner get: %v", err)
	}
	if _, err := svc.Get(context.Background(), admin, o.ID); err != nil {
		t.Errorf("admin get: %v", err)
	}
	stranger := identity.Identity{UserID: "u2", Role: identity.RoleUser}
	if _, err := svc.Get(context.Background(), stranger, o.ID); apperror.KindOf(err) != apperror.KindAuthorization {
		t.Errorf("stranger get kind = %v, want authorization_error", apperror.KindOf(err))
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	inv := newFakeInventory(product(productA, "Sourdough", 10, 10))
	repo := newFakeOrderRepo()
	svc := newTestService(repo, inv)

	ctx := context.Background()
	o1, err := svc.PlaceOrder(ctx, customer, placeInput(ItemInput{ProductID: productA, Quantity: 2}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.PlaceOrder(ctx, customer, placeInput(ItemInput{ProductID: productA, Quantity: 1})); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := svc.Cancel(ctx, customer, o1.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	stats, err := svc.Stats(ctx, customer)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	got := make(map[domain.Status]StatusStat)
	for _, s := range stats {
		got[s.Status] = s
	}
	if got[domain.StatusPending].Count != 1 {
		t.Errorf("pending count = %d, want 1", got[domain.StatusPending].Count)
	}
	if got[domain.StatusCancelled].Count != 1 {
		t.Errorf("cancelled count = %d, want 1", got[domain.StatusCancelled].Count)
	}
	if got[domain.StatusCancelled].TotalAmount != 27 {
		t.Errorf("cancelled total = %v, want 27", got[domain.StatusCancelled].TotalAmount)
	}
}
