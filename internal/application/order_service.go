package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	mailtpl "github.com/oksasatya/go-ddd-ecommerce/pkg/mailer/templates"
)

type OrderService struct {
	store    repo.Store
	cache    cacheAside
	carts    *CartService
	notifier Notifier
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewOrderService(store repo.Store, cache repo.Cache, carts *CartService, notifier Notifier, cacheTTL time.Duration, logger *logrus.Logger) *OrderService {
	ca := newCacheAside(cache, logger)
	return &OrderService{store: store, cache: ca, carts: carts, notifier: notifier, cacheTTL: cacheTTL, logger: ca.logger}
}

type OrderPage struct {
	Orders     []*entity.Order `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

func validateAddress(a entity.ShippingAddress) error {
	details := map[string]string{}
	for field, v := range map[string]string{
		"street": a.Street, "city": a.City, "state": a.State, "country": a.Country, "zipCode": a.ZipCode,
	} {
		if strings.TrimSpace(v) == "" {
			details["shippingAddress."+field] = "is required"
		}
	}
	if len(details) > 0 {
		return apperror.Validation("invalid shipping address").WithDetails(details)
	}
	return nil
}

// Create turns the user's cart into a pending order. Stock is decremented and
// the cart emptied in the same transaction.
func (s *OrderService) Create(ctx context.Context, userID string, addr entity.ShippingAddress) (*entity.Order, error) {
	if err := validateAddress(addr); err != nil {
		return nil, err
	}
	if s.carts != nil {
		s.carts.FlushPending(userID)
	}

	var order *entity.Order
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		cart, err := tx.Carts().GetByUserForUpdate(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && cart.IsEmpty()) {
			return apperror.Validation("cart is empty")
		}
		if err != nil {
			return err
		}

		// lock in id order so concurrent checkouts cannot deadlock
		ids := cart.ProductIDs()
		sort.Strings(ids)
		locked := make(map[string]*entity.Product, len(ids))
		for _, id := range ids {
			p, err := tx.Products().GetForUpdate(ctx, id)
			if errors.Is(err, repo.ErrNotFound) {
				return apperror.Validation(fmt.Sprintf("product %s is no longer available", id))
			}
			if err != nil {
				return err
			}
			locked[id] = p
		}

		items := make([]entity.OrderItem, 0, len(cart.Items))
		total := decimal.Zero
		for _, it := range cart.Items {
			p := locked[it.ProductID]
			if !p.IsActive {
				return apperror.Validation(fmt.Sprintf("product %s is no longer available", p.Name))
			}
			if p.Stock < it.Quantity {
				return apperror.Validation(fmt.Sprintf("insufficient stock for %s", p.Name))
			}
			if err := tx.Products().AdjustStock(ctx, p.ID, -it.Quantity); err != nil {
				if errors.Is(err, repo.ErrInsufficientStock) {
					return apperror.Validation(fmt.Sprintf("insufficient stock for %s", p.Name))
				}
				return err
			}
			oi := entity.OrderItem{ProductID: p.ID, Name: p.Name, Quantity: it.Quantity, UnitPrice: p.Price}
			items = append(items, oi)
			total = total.Add(oi.Subtotal())
		}

		order = &entity.Order{
			UserID:          userID,
			Items:           items,
			TotalAmount:     total,
			Status:          entity.OrderPending,
			ShippingAddress: addr,
			PaymentStatus:   entity.PaymentPending,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		cart.Clear()
		return tx.Carts().Save(ctx, cart)
	})
	if err != nil {
		return nil, storeErr(err, "order")
	}

	s.cache.del(ctx, cartKey(userID))
	s.invalidate(ctx, order)
	s.notify(ctx, order, TemplateOrderPlaced)
	return order, nil
}

func (s *OrderService) List(ctx context.Context, userID string, page, limit int, status string) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if status != "" && !entity.OrderStatus(status).Valid() {
		return nil, apperror.Validation("invalid status").WithDetails(map[string]string{"status": "is not a known order status"})
	}

	key := orderListKey(userID, page, limit, status)
	var cached OrderPage
	if s.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	orders, total, err := s.store.Orders().List(ctx, repo.OrderFilter{
		UserID: userID,
		Status: entity.OrderStatus(status),
		Offset: pageOffset(page, limit),
		Limit:  limit,
	})
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if orders == nil {
		orders = []*entity.Order{}
	}
	out := &OrderPage{
		Orders:     orders,
		Pagination: Pagination{Page: page, Limit: limit, Total: total, Pages: pageCount(total, limit)},
	}
	s.cache.set(ctx, key, out, s.cacheTTL)
	return out, nil
}

// Get hides orders the actor may not see behind NotFound.
func (s *OrderService) Get(ctx context.Context, actor Actor, id string) (*entity.Order, error) {
	o, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if !CanMutate(actor, o.UserID) {
		return nil, apperror.NotFound("order not found")
	}
	return o, nil
}

// Cancel restores stock only when the conditional status update wins, so two
// racing cancellations restore once.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id string) (*entity.Order, error) {
	var cancelled *entity.Order
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		o, err := tx.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !CanMutate(actor, o.UserID) {
			return apperror.NotFound("order not found")
		}
		if !o.Status.Cancellable() {
			return apperror.Validation("order cannot be cancelled")
		}
		updated, err := tx.Orders().UpdateStatus(ctx, id, entity.CancellableStatuses(), entity.OrderCancelled)
		if errors.Is(err, repo.ErrStatusConflict) {
			return apperror.Validation("order cannot be cancelled")
		}
		if err != nil {
			return err
		}
		for _, it := range updated.Items {
			if err := tx.Products().AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		cancelled = updated
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "order")
	}
	s.invalidate(ctx, cancelled)
	s.notify(ctx, cancelled, TemplateOrderCancelled)
	return cancelled, nil
}

// UpdateStatus is the admin transition. Cancelling goes through Cancel so stock
// is restored.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id string, status entity.OrderStatus) (*entity.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Authorization("admin access required")
	}
	if !status.Valid() {
		return nil, apperror.Validation("invalid status")
	}
	if status == entity.OrderCancelled {
		return s.Cancel(ctx, actor, id)
	}

	o, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, apperror.Validation(fmt.Sprintf("cannot transition order from %s to %s", o.Status, status))
	}
	updated, err := s.store.Orders().UpdateStatus(ctx, id, []entity.OrderStatus{o.Status}, status)
	if errors.Is(err, repo.ErrStatusConflict) {
		return nil, apperror.Conflict("order status changed concurrently")
	}
	if err != nil {
		return nil, storeErr(err, "order")
	}
	s.cache.delPrefix(ctx, orderListPrefix(updated.UserID))
	s.notify(ctx, updated, TemplateOrderStatusChanged)
	return updated, nil
}

// invalidate drops everything an order's stock movement touched.
func (s *OrderService) invalidate(ctx context.Context, o *entity.Order) {
	keys := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		keys = append(keys, productKey(it.ProductID))
	}
	s.cache.del(ctx, keys...)
	s.cache.delPrefix(ctx, orderListPrefix(o.UserID))
	s.cache.delPrefix(ctx, productListPrefix)
}

func (s *OrderService) notify(ctx context.Context, o *entity.Order, template string) {
	if s.notifier == nil {
		return
	}
	u, err := s.store.Users().GetByID(ctx, o.UserID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Warn("order notification skipped")
		return
	}
	lines := make([]mailtpl.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, mailtpl.LineItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.UnitPrice.StringFixed(2),
		})
	}
	data := mailtpl.NewEmailData(u.Email,
		mailtpl.WithName(u.FirstName),
		mailtpl.WithOrder(o.ID, string(o.Status), o.TotalAmount.StringFixed(2), lines),
	)
	n := Notification{To: u.Email, Template: template, Data: mailtpl.ToMap(data)}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Warn("order notification failed")
	}
}
