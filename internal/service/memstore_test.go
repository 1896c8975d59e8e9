package service_test

// In-memory Store implementation backing the checkout tests.  WithinTx
// serializes transactions with a mutex and snapshots the whole state up
// front, so an error from fn rolls everything back just like the SQL
// store does.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

type memReservation struct {
	ticketTypeID uint64
	cartID       uint64
	qty          uint32
	released     bool
}

type memState struct {
	carts     map[uint64]*model.Cart
	items     map[uint64][]model.LineItem
	tiers     map[uint64]*model.TicketType
	resv      map[string]*memReservation
	orders    map[uint64]*model.Order
	nextCart  uint64
	nextItem  uint64
	nextOrder uint64
}

func (st *memState) clone() *memState {
	c := &memState{
		carts:     make(map[uint64]*model.Cart, len(st.carts)),
		items:     make(map[uint64][]model.LineItem, len(st.items)),
		tiers:     make(map[uint64]*model.TicketType, len(st.tiers)),
		resv:      make(map[string]*memReservation, len(st.resv)),
		orders:    make(map[uint64]*model.Order, len(st.orders)),
		nextCart:  st.nextCart,
		nextItem:  st.nextItem,
		nextOrder: st.nextOrder,
	}
	for id, cart := range st.carts {
		cp := *cart
		c.carts[id] = &cp
	}
	for id, items := range st.items {
		c.items[id] = append([]model.LineItem(nil), items...)
	}
	for id, tier := range st.tiers {
		cp := *tier
		c.tiers[id] = &cp
	}
	for token, r := range st.resv {
		cp := *r
		c.resv[token] = &cp
	}
	for id, o := range st.orders {
		cp := *o
		cp.Items = append([]model.OrderItem(nil), o.Items...)
		c.orders[id] = &cp
	}
	return c
}

type memStore struct {
	mu    sync.Mutex
	state *memState
}

func newMemStore() *memStore {
	return &memStore{state: &memState{
		carts:  map[uint64]*model.Cart{},
		items:  map[uint64][]model.LineItem{},
		tiers:  map[uint64]*model.TicketType{},
		resv:   map[string]*memReservation{},
		orders: map[uint64]*model.Order{},
	}}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.clone()
	if err := fn(&memTx{st: s.state}); err != nil {
		s.state = snap
		return err
	}
	return nil
}

func (s *memStore) ExpiredOpenCarts(ctx context.Context, limit int) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var ids []uint64
	for id, cart := range s.state.carts {
		if cart.Status == model.CartOpen && cart.ExpiresAt.Before(now) {
			ids = append(ids, id)
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

// ----- seeding and inspection helpers -----

func (s *memStore) addTier(id, eventID uint64, priceCents, capacity uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tiers[id] = &model.TicketType{
		ID: id, EventID: eventID, Name: fmt.Sprintf("tier-%d", id),
		PriceCents: priceCents, Capacity: capacity,
	}
}

func (s *memStore) setTierPrice(id uint64, priceCents uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tiers[id].PriceCents = priceCents
}

func (s *memStore) tierSold(id uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.tiers[id].Sold
}

func (s *memStore) seedOpenCart(userID uint64, expiresAt time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextCart++
	id := s.state.nextCart
	s.state.carts[id] = &model.Cart{
		ID: id, UserID: userID, Status: model.CartOpen, ExpiresAt: expiresAt,
	}
	return id
}

func (s *memStore) cartStatus(id uint64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.carts[id].Status
}

func (s *memStore) openCartCount(userID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, cart := range s.state.carts {
		if cart.UserID == userID && cart.Status == model.CartOpen {
			n++
		}
	}
	return n
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

// ----- service.Tx -----

type memTx struct {
	st *memState
}

func (t *memTx) OpenCartForUpdate(ctx context.Context, userID uint64) (*model.Cart, error) {
	for _, cart := range t.st.carts {
		if cart.UserID == userID && cart.Status == model.CartOpen {
			cp := *cart
			return &cp, nil
		}
	}
	return nil, service.ErrNoOpenCart
}

func (t *memTx) CreateOpenCart(ctx context.Context, userID uint64, expiresAt time.Time) (*model.Cart, error) {
	for _, cart := range t.st.carts {
		if cart.UserID == userID && cart.Status == model.CartOpen {
			return nil, service.ErrCartConflict
		}
	}
	t.st.nextCart++
	cart := &model.Cart{
		ID: t.st.nextCart, UserID: userID, Status: model.CartOpen,
		ExpiresAt: expiresAt, CreatedAt: time.Now().UTC(),
	}
	t.st.carts[cart.ID] = cart
	cp := *cart
	return &cp, nil
}

func (t *memTx) CartForUpdate(ctx context.Context, cartID uint64) (*model.Cart, error) {
	cart, ok := t.st.carts[cartID]
	if !ok {
		return nil, service.ErrCartNotFound
	}
	cp := *cart
	return &cp, nil
}

func (t *memTx) LineItems(ctx context.Context, cartID uint64) ([]model.LineItem, error) {
	return append([]model.LineItem(nil), t.st.items[cartID]...), nil
}

func (t *memTx) AppendLineItem(ctx context.Context, item *model.LineItem) error {
	t.st.nextItem++
	item.ID = t.st.nextItem
	t.st.items[item.CartID] = append(t.st.items[item.CartID], *item)
	return nil
}

func (t *memTx) AddToCartTotal(ctx context.Context, cartID uint64, deltaCents uint64) error {
	cart, ok := t.st.carts[cartID]
	if !ok || cart.Status != model.CartOpen {
		return service.ErrCartClosed
	}
	cart.TotalCents += deltaCents
	return nil
}

func (t *memTx) CloseCart(ctx context.Context, cartID uint64) error {
	return t.transition(cartID, model.CartClosed)
}

func (t *memTx) CancelCart(ctx context.Context, cartID uint64) error {
	return t.transition(cartID, model.CartCancelled)
}

func (t *memTx) transition(cartID uint64, to string) error {
	cart, ok := t.st.carts[cartID]
	if !ok || cart.Status != model.CartOpen {
		return service.ErrCartClosed
	}
	cart.Status = to
	return nil
}

func (t *memTx) TicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
	tier, ok := t.st.tiers[id]
	if !ok || tier.RetiredAt != nil {
		return nil, service.ErrTicketTypeNotFound
	}
	cp := *tier
	return &cp, nil
}

func (t *memTx) Reserve(ctx context.Context, ticketTypeID, cartID uint64, qty uint32, token string) error {
	tier, ok := t.st.tiers[ticketTypeID]
	if !ok {
		return service.ErrTicketTypeNotFound
	}
	if tier.Sold+qty > tier.Capacity {
		return service.ErrOutOfStock
	}
	tier.Sold += qty
	t.st.resv[token] = &memReservation{
		ticketTypeID: ticketTypeID, cartID: cartID, qty: qty,
	}
	return nil
}

func (t *memTx) Release(ctx context.Context, token string) error {
	r, ok := t.st.resv[token]
	if !ok || r.released {
		return nil
	}
	r.released = true
	t.st.tiers[r.ticketTypeID].Sold -= r.qty
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, o *model.Order) error {
	for _, existing := range t.st.orders {
		if existing.CartID == o.CartID {
			return fmt.Errorf("duplicate order for cart %d", o.CartID)
		}
	}
	t.st.nextOrder++
	o.ID = t.st.nextOrder
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	t.st.orders[o.ID] = &cp
	return nil
}
