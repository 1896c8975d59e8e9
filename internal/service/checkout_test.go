package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/service"
)

const (
	eventA = uint64(1)
	tierA  = uint64(10)
	tierB  = uint64(11)
)

func newCheckout(t *testing.T) (*service.Checkout, *memStore) {
	t.Helper()
	store := newMemStore()
	return service.NewCheckout(store, 30*time.Minute), store
}

func TestAddToCartCreatesCartLazily(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 2500, 100)
	ctx := context.Background()

	_, err := svc.OpenCart(ctx, 1)
	require.ErrorIs(t, err, service.ErrNoOpenCart)

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 2)
	require.NoError(t, err)
	assert.Equal(t, model.CartOpen, cart.Status)
	assert.Equal(t, uint64(5000), cart.TotalCents)
	require.Len(t, cart.LineItems, 1)
	assert.Equal(t, uint32(2), cart.LineItems[0].Qty)
	assert.Equal(t, uint32(2500), cart.LineItems[0].UnitPriceCents)
	assert.Equal(t, uint32(2), store.tierSold(tierA))
}

func TestAddToCartRejectsZeroQty(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)

	_, err := svc.AddToCart(context.Background(), 1, eventA, tierA, 0)
	require.ErrorIs(t, err, service.ErrInvalidQuantity)
}

func TestAddToCartWrongEvent(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)

	_, err := svc.AddToCart(context.Background(), 1, 99, tierA, 1)
	require.ErrorIs(t, err, service.ErrTicketTypeNotFound)
}

func TestOutOfStockRollsBackEverything(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 2)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 1, eventA, tierA, 3)
	require.ErrorIs(t, err, service.ErrOutOfStock)

	// The failed transaction must not leave a cart or a decrement behind.
	assert.Equal(t, uint32(0), store.tierSold(tierA))
	_, err = svc.OpenCart(ctx, 1)
	assert.ErrorIs(t, err, service.ErrNoOpenCart)
}

func TestNoOverselling(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		userID := uint64(i + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddToCart(ctx, userID, eventA, tierA, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		switch {
		case err == nil:
			won++
		default:
			require.ErrorIs(t, err, service.ErrOutOfStock)
			lost++
		}
	}
	assert.Equal(t, 10, won)
	assert.Equal(t, 10, lost)
	assert.Equal(t, uint32(10), store.tierSold(tierA))
}

func TestCapacityOneSingleWinner(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 5000, 1)
	ctx := context.Background()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, userID := range []uint64{1, 2} {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := svc.AddToCart(ctx, uid, eventA, tierA, 1)
			errs <- err
		}(userID)
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], service.ErrOutOfStock)
	assert.Equal(t, uint32(1), store.tierSold(tierA))
}

func TestConcurrentAddsShareOneOpenCart(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.openCartCount(1))
	cart, err := svc.OpenCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cart.LineItems, 8)
	assert.Equal(t, uint64(8000), cart.TotalCents)
}

func TestBuyCartSnapshotsOrder(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	store.addTier(tierB, eventA, 2500, 10)
	ctx := context.Background()

	var published []queue.OrderPlacedEvent
	svc.Publish = func(ctx context.Context, ev queue.OrderPlacedEvent) error {
		published = append(published, ev)
		return nil
	}

	_, err := svc.AddToCart(ctx, 1, eventA, tierA, 2)
	require.NoError(t, err)
	cart, err := svc.AddToCart(ctx, 1, eventA, tierB, 1)
	require.NoError(t, err)

	order, err := svc.BuyCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.OrderClosed, order.Status)
	assert.Equal(t, uint64(4500), order.TotalCents)
	assert.Len(t, order.LineItems, 2)
	assert.NotEmpty(t, order.UUID)

	// The cart is closed and its tickets stay sold.
	assert.Equal(t, model.CartClosed, store.cartStatus(cart.ID))
	assert.Equal(t, uint32(2), store.tierSold(tierA))
	assert.Equal(t, 1, store.orderCount())

	require.Len(t, published, 1)
	assert.Equal(t, order.UUID, published[0].OrderUUID)
	assert.Equal(t, uint64(4500), published[0].TotalCents)
	assert.Len(t, published[0].Lines, 2)

	// Nothing left to buy.
	_, err = svc.BuyCart(ctx, 1)
	assert.ErrorIs(t, err, service.ErrNoOpenCart)
}

func TestBuyCartWithoutCart(t *testing.T) {
	svc, _ := newCheckout(t)
	_, err := svc.BuyCart(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrNoOpenCart)
}

func TestBuyEmptyCart(t *testing.T) {
	svc, store := newCheckout(t)
	store.seedOpenCart(1, time.Now().UTC().Add(time.Hour))

	_, err := svc.BuyCart(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrEmptyCart)
}

func TestPublishFailureDoesNotFailBuy(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	svc.Publish = func(ctx context.Context, ev queue.OrderPlacedEvent) error {
		return assert.AnError
	}

	_, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
	require.NoError(t, err)
	order, err := svc.BuyCart(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, 1, store.orderCount())
}

func TestCancelRestoresInventory(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 3)
	require.NoError(t, err)
	require.Equal(t, uint32(3), store.tierSold(tierA))

	require.NoError(t, svc.CancelCart(ctx, 1, cart.ID))
	assert.Equal(t, uint32(0), store.tierSold(tierA))
	assert.Equal(t, model.CartCancelled, store.cartStatus(cart.ID))

	// Add-to-cancel round trip leaves the pool exactly where it started,
	// so the full capacity is available again.
	cart2, err := svc.AddToCart(ctx, 2, eventA, tierA, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), cart2.TotalCents)
}

func TestCancelIsIdempotent(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 2)
	require.NoError(t, err)

	require.NoError(t, svc.CancelCart(ctx, 1, cart.ID))
	err = svc.CancelCart(ctx, 1, cart.ID)
	require.ErrorIs(t, err, service.ErrAlreadyCancelled)
	// The second cancel must not release twice.
	assert.Equal(t, uint32(0), store.tierSold(tierA))
}

func TestReleaseTokenIdempotent(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(4), store.tierSold(tierA))
	token := ""
	err = store.WithinTx(ctx, func(tx service.Tx) error {
		items, err := tx.LineItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		token = items[0].ReservationToken
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	for i := 0; i < 3; i++ {
		err := store.WithinTx(ctx, func(tx service.Tx) error {
			return tx.Release(ctx, token)
		})
		require.NoError(t, err)
	}
	assert.Equal(t, uint32(0), store.tierSold(tierA))
}

func TestCancelClosedCart(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
	require.NoError(t, err)
	_, err = svc.BuyCart(ctx, 1)
	require.NoError(t, err)

	err = svc.CancelCart(ctx, 1, cart.ID)
	require.ErrorIs(t, err, service.ErrCartClosed)
	// Bought tickets stay sold.
	assert.Equal(t, uint32(1), store.tierSold(tierA))
}

func TestCancelForeignCart(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
	require.NoError(t, err)

	err = svc.CancelCart(ctx, 2, cart.ID)
	require.ErrorIs(t, err, service.ErrNotCartOwner)
	assert.Equal(t, model.CartOpen, store.cartStatus(cart.ID))
}

func TestCancelUnknownCart(t *testing.T) {
	svc, _ := newCheckout(t)
	err := svc.CancelCart(context.Background(), 1, 12345)
	require.ErrorIs(t, err, service.ErrCartNotFound)
}

func TestPriceSnapshotImmuneToChanges(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
	require.NoError(t, err)

	store.setTierPrice(tierA, 9999)

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
	require.NoError(t, err)
	require.Len(t, cart.LineItems, 2)
	assert.Equal(t, uint32(1000), cart.LineItems[0].UnitPriceCents)
	assert.Equal(t, uint32(9999), cart.LineItems[1].UnitPriceCents)
	assert.Equal(t, uint64(10999), cart.TotalCents)

	order, err := svc.BuyCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10999), order.TotalCents)
}

func TestReaperCancelsExpiredCarts(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	// An expired cart with a live reservation and a fresh one.
	expired := store.seedOpenCart(1, time.Now().UTC().Add(-time.Minute))
	err := store.WithinTx(ctx, func(tx service.Tx) error {
		if err := tx.Reserve(ctx, tierA, expired, 2, "resv-expired"); err != nil {
			return err
		}
		return tx.AppendLineItem(ctx, &model.LineItem{
			CartID: expired, TicketTypeID: tierA, Qty: 2,
			UnitPriceCents: 1000, ReservationToken: "resv-expired",
		})
	})
	require.NoError(t, err)
	fresh := store.seedOpenCart(2, time.Now().UTC().Add(time.Hour))

	reapCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	svc.RunCartReaper(reapCtx, 10*time.Millisecond)

	assert.Equal(t, model.CartCancelled, store.cartStatus(expired))
	assert.Equal(t, model.CartOpen, store.cartStatus(fresh))
	assert.Equal(t, uint32(0), store.tierSold(tierA))
}

func TestHighValueCartTotalDoesNotWrap(t *testing.T) {
	svc, store := newCheckout(t)
	// 2000 tickets at 25,000.00 each: the product exceeds 32 bits.
	store.addTier(tierA, eventA, 2500000, 2000)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 2000)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000000000), cart.TotalCents)

	order, err := svc.BuyCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000000000), order.TotalCents)
}

func TestCloseCartTwiceKeepsOneOrder(t *testing.T) {
	svc, store := newCheckout(t)
	store.addTier(tierA, eventA, 1000, 10)
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, 1, eventA, tierA, 1)
	require.NoError(t, err)
	_, err = svc.BuyCart(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, store.orderCount())

	err = store.WithinTx(ctx, func(tx service.Tx) error {
		return tx.CloseCart(ctx, cart.ID)
	})
	require.ErrorIs(t, err, service.ErrCartClosed)
	assert.Equal(t, 1, store.orderCount())
}

// lostRaceTx simulates the residual create race: the concurrent winner
// rolled back, so the refetch after the duplicate-key conflict finds no
// cart either.
type lostRaceTx struct {
	service.Tx
	tier *model.TicketType
}

func (t *lostRaceTx) TicketType(ctx context.Context, id uint64) (*model.TicketType, error) {
	cp := *t.tier
	return &cp, nil
}

func (t *lostRaceTx) OpenCartForUpdate(ctx context.Context, userID uint64) (*model.Cart, error) {
	return nil, service.ErrNoOpenCart
}

func (t *lostRaceTx) CreateOpenCart(ctx context.Context, userID uint64, expiresAt time.Time) (*model.Cart, error) {
	return nil, service.ErrCartConflict
}

type lostRaceStore struct{ tx *lostRaceTx }

func (s *lostRaceStore) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
	return fn(s.tx)
}

func (s *lostRaceStore) ExpiredOpenCarts(ctx context.Context, limit int) ([]uint64, error) {
	return nil, nil
}

func TestLostCartRaceSurfacesConflict(t *testing.T) {
	tier := &model.TicketType{ID: tierA, EventID: eventA, PriceCents: 1000, Capacity: 10}
	svc := service.NewCheckout(&lostRaceStore{tx: &lostRaceTx{tier: tier}}, 30*time.Minute)

	_, err := svc.AddToCart(context.Background(), 1, eventA, tierA, 1)
	require.ErrorIs(t, err, service.ErrCartConflict)
}
