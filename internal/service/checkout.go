package service

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
)

// CartView is the read projection of a cart returned to the HTTP layer.
type CartView struct {
    ID         uint64         `json:"id"`
    Status     string         `json:"status"`
    TotalCents uint64         `json:"total_cents"`
    ExpiresAt  time.Time      `json:"expires_at"`
    LineItems  []LineItemView `json:"line_items"`
}

// LineItemView is one line of a cart or order projection.
type LineItemView struct {
    TicketTypeID   uint64 `json:"ticket_type_id"`
    Qty            uint32 `json:"qty"`
    UnitPriceCents uint32 `json:"unit_price_cents"`
}

// OrderView is the read projection of a completed order.
type OrderView struct {
    ID         uint64         `json:"id"`
    UUID       string         `json:"uuid"`
    Status     string         `json:"status"`
    TotalCents uint64         `json:"total_cents"`
    CreatedAt  time.Time      `json:"created_at"`
    LineItems  []LineItemView `json:"line_items"`
}

// Checkout coordinates add-to-cart, buy and cancel as atomic units over
// the Store port.  Each operation is one transaction: the inventory
// decrement, the cart mutation and the order snapshot either all commit
// or all roll back, so a failure can never leave reserved-but-uncharged
// stock or a priced cart with no matching decrement.
type Checkout struct {
    store   Store
    cartTTL time.Duration

    // Publish, when non-nil, is invoked after a successful buy with the
    // order.placed payload.  Failures are logged and ignored; the order
    // is already committed.
    Publish func(ctx context.Context, ev queue.OrderPlacedEvent) error
}

// NewCheckout constructs the coordinator.  cartTTL bounds how long an
// abandoned open cart keeps its reservations before the reaper cancels
// it.
func NewCheckout(store Store, cartTTL time.Duration) *Checkout {
    if store == nil {
        panic("nil store passed to NewCheckout")
    }
    if cartTTL <= 0 {
        cartTTL = 30 * time.Minute
    }
    return &Checkout{store: store, cartTTL: cartTTL}
}

// AddToCart reserves qty tickets of the given tier and appends them to
// the user's open cart, creating the cart lazily on first add.  The
// reservation and the cart mutation share one transaction; on
// ErrOutOfStock nothing is committed.  A concurrent first add by the
// same user is resolved by refetching the cart the winner created.
func (s *Checkout) AddToCart(ctx context.Context, userID, eventID, ticketTypeID uint64, qty uint32) (*CartView, error) {
    if qty == 0 {
        return nil, ErrInvalidQuantity
    }
    var view *CartView
    err := s.store.WithinTx(ctx, func(tx Tx) error {
        tt, err := tx.TicketType(ctx, ticketTypeID)
        if err != nil {
            return err
        }
        if tt.EventID != eventID {
            return ErrTicketTypeNotFound
        }

        cart, err := s.resolveOpenCart(ctx, tx, userID)
        if err != nil {
            return err
        }

        token := uuid.NewString()
        if err := tx.Reserve(ctx, tt.ID, cart.ID, qty, token); err != nil {
            return err
        }
        item := &model.LineItem{
            CartID:           cart.ID,
            TicketTypeID:     tt.ID,
            Qty:              qty,
            UnitPriceCents:   tt.PriceCents,
            ReservationToken: token,
        }
        if err := tx.AppendLineItem(ctx, item); err != nil {
            return err
        }
        // Totals are 64-bit so price*qty cannot wrap (price and qty are
        // both 32-bit, so the widened product is exact).
        delta := uint64(tt.PriceCents) * uint64(qty)
        if err := tx.AddToCartTotal(ctx, cart.ID, delta); err != nil {
            return err
        }
        cart.TotalCents += delta

        items, err := tx.LineItems(ctx, cart.ID)
        if err != nil {
            return err
        }
        view = cartView(cart, items)
        return nil
    })
    if err != nil {
        return nil, err
    }
    return view, nil
}

// resolveOpenCart returns the user's open cart, creating it when
// absent.  The create-if-absent is a single atomic insert; losing the
// race yields ErrCartConflict, which is answered by refetching the
// winner's cart inside the same transaction (a duplicate-key error does
// not abort a MySQL transaction).  If the winner rolled back between
// the conflict and the refetch, the refetch finds no cart either; that
// residual race surfaces as ErrCartConflict so the caller retries.
func (s *Checkout) resolveOpenCart(ctx context.Context, tx Tx, userID uint64) (*model.Cart, error) {
    cart, err := tx.OpenCartForUpdate(ctx, userID)
    if err == nil {
        return cart, nil
    }
    if !errors.Is(err, ErrNoOpenCart) {
        return nil, err
    }
    cart, err = tx.CreateOpenCart(ctx, userID, time.Now().UTC().Add(s.cartTTL))
    if err == nil {
        return cart, nil
    }
    if !errors.Is(err, ErrCartConflict) {
        return nil, err
    }
    cart, err = tx.OpenCartForUpdate(ctx, userID)
    if errors.Is(err, ErrNoOpenCart) {
        return nil, ErrCartConflict
    }
    return cart, err
}

// BuyCart closes the user's open cart and snapshots it into an order.
// Inventory is not re-validated: every line item already holds a
// reservation, so buying is a pure status transition.  Returns
// ErrNoOpenCart when there is nothing to buy and ErrEmptyCart when the
// open cart has no items.
func (s *Checkout) BuyCart(ctx context.Context, userID uint64) (*OrderView, error) {
    var view *OrderView
    err := s.store.WithinTx(ctx, func(tx Tx) error {
        cart, err := tx.OpenCartForUpdate(ctx, userID)
        if err != nil {
            return err
        }
        items, err := tx.LineItems(ctx, cart.ID)
        if err != nil {
            return err
        }
        if len(items) == 0 {
            return ErrEmptyCart
        }
        if err := tx.CloseCart(ctx, cart.ID); err != nil {
            return err
        }
        order := &model.Order{
            UUID:       uuid.NewString(),
            UserID:     userID,
            CartID:     cart.ID,
            Status:     model.OrderClosed,
            TotalCents: cart.TotalCents,
        }
        for _, it := range items {
            order.Items = append(order.Items, model.OrderItem{
                TicketTypeID:   it.TicketTypeID,
                Qty:            it.Qty,
                UnitPriceCents: it.UnitPriceCents,
            })
        }
        if err := tx.CreateOrder(ctx, order); err != nil {
            return err
        }
        order.CreatedAt = time.Now().UTC()
        view = orderView(order)
        return nil
    })
    if err != nil {
        return nil, err
    }
    if s.Publish != nil {
        ev := queue.OrderPlacedEvent{
            OrderUUID:  view.UUID,
            UserID:     userID,
            TotalCents: view.TotalCents,
            PlacedAt:   view.CreatedAt.Format(time.RFC3339),
        }
        for _, li := range view.LineItems {
            ev.Lines = append(ev.Lines, queue.OrderLine{
                TicketTypeID:   li.TicketTypeID,
                Qty:            li.Qty,
                UnitPriceCents: li.UnitPriceCents,
            })
        }
        if err := s.Publish(ctx, ev); err != nil {
            log.Printf("checkout: order.placed publish failed for %s: %v", view.UUID, err)
        }
    }
    return view, nil
}

// CancelCart releases every reservation held by the cart's line items
// and marks the cart CANCELLED, restoring inventory.  The caller must
// own the cart.  Repeated cancellation returns ErrAlreadyCancelled and
// changes nothing; releases are idempotent per reservation token, so a
// partial retry can never restore inventory twice.
func (s *Checkout) CancelCart(ctx context.Context, userID, cartID uint64) error {
    return s.cancel(ctx, cartID, userID, false)
}

func (s *Checkout) cancel(ctx context.Context, cartID, userID uint64, system bool) error {
    return s.store.WithinTx(ctx, func(tx Tx) error {
        cart, err := tx.CartForUpdate(ctx, cartID)
        if err != nil {
            return err
        }
        if !system && cart.UserID != userID {
            return ErrNotCartOwner
        }
        switch cart.Status {
        case model.CartCancelled:
            return ErrAlreadyCancelled
        case model.CartClosed:
            return ErrCartClosed
        }
        items, err := tx.LineItems(ctx, cart.ID)
        if err != nil {
            return err
        }
        for _, it := range items {
            if err := tx.Release(ctx, it.ReservationToken); err != nil {
                return err
            }
        }
        return tx.CancelCart(ctx, cart.ID)
    })
}

// OpenCart returns the user's current open cart, or ErrNoOpenCart.
func (s *Checkout) OpenCart(ctx context.Context, userID uint64) (*CartView, error) {
    var view *CartView
    err := s.store.WithinTx(ctx, func(tx Tx) error {
        cart, err := tx.OpenCartForUpdate(ctx, userID)
        if err != nil {
            return err
        }
        items, err := tx.LineItems(ctx, cart.ID)
        if err != nil {
            return err
        }
        view = cartView(cart, items)
        return nil
    })
    if err != nil {
        return nil, err
    }
    return view, nil
}

// RunCartReaper cancels expired open carts on a fixed interval until
// the context is cancelled, releasing their reservations through the
// same path as a user cancellation.
func (s *Checkout) RunCartReaper(ctx context.Context, every time.Duration) {
    if every <= 0 {
        every = time.Minute
    }
    ticker := time.NewTicker(every)
    defer ticker.Stop()

    log.Printf("cart-reaper: started, interval %s", every)
    for {
        select {
        case <-ctx.Done():
            log.Println("cart-reaper: stopped")
            return
        case <-ticker.C:
            s.reapExpired(ctx)
        }
    }
}

func (s *Checkout) reapExpired(ctx context.Context) {
    ids, err := s.store.ExpiredOpenCarts(ctx, 100)
    if err != nil {
        log.Printf("cart-reaper: listing expired carts failed: %v", err)
        return
    }
    for _, id := range ids {
        err := s.cancel(ctx, id, 0, true)
        switch {
        case err == nil:
            log.Printf("cart-reaper: cart %d expired, reservations released", id)
        case errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrCartClosed):
            // Raced with the user; nothing to do.
        default:
            log.Printf("cart-reaper: cancel cart %d failed: %v", id, err)
        }
    }
}

func cartView(cart *model.Cart, items []model.LineItem) *CartView {
    v := &CartView{
        ID:         cart.ID,
        Status:     cart.Status,
        TotalCents: cart.TotalCents,
        ExpiresAt:  cart.ExpiresAt,
        LineItems:  make([]LineItemView, 0, len(items)),
    }
    for _, it := range items {
        v.LineItems = append(v.LineItems, LineItemView{
            TicketTypeID:   it.TicketTypeID,
            Qty:            it.Qty,
            UnitPriceCents: it.UnitPriceCents,
        })
    }
    return v
}

func orderView(o *model.Order) *OrderView {
    v := &OrderView{
        ID:         o.ID,
        UUID:       o.UUID,
        Status:     o.Status,
        TotalCents: o.TotalCents,
        CreatedAt:  o.CreatedAt,
        LineItems:  make([]LineItemView, 0, len(o.Items)),
    }
    for _, it := range o.Items {
        v.LineItems = append(v.LineItems, LineItemView{
            TicketTypeID:   it.TicketTypeID,
            Qty:            it.Qty,
            UnitPriceCents: it.UnitPriceCents,
        })
    }
    return v
}
