package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/order/discount"
	"ms-booking/internal/payment/momo"
	"ms-booking/internal/voucher"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DBLayer interface {
	CreateOrder(ctx context.Context, order *models.Order, tickets []models.OrderedTicket, rooms []models.OrderedRoom, discountIDs []string) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderWithLines(ctx context.Context, id string) (*models.OrderWithLines, error)
	ListOrdersWithLinesByUserID(ctx context.Context, userID string, limit, offset int) ([]models.OrderWithLines, int, error)
	TransitionStatus(ctx context.Context, orderID string, to models.OrderStatus) (bool, error)
	SetPaymentRequestID(ctx context.Context, orderID, requestID string) error
}

type CatalogReader interface {
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
	FindTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	FindRoomByID(ctx context.Context, id string) (*models.Room, error)
}

type DiscountApplier interface {
	ApplyDiscounts(ctx context.Context, subtotal decimal.Decimal, discountIDs []string, scope discount.OrderScope) (*discount.Application, error)
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, orderID string, amount int64) (*momo.PaymentResult, error)
	QueryTransactionStatus(ctx context.Context, orderID, requestID string) (*momo.TransactionStatus, error)
}

type OrderLocker interface {
	Acquire(ctx context.Context, orderID string) (string, bool, error)
	Release(ctx context.Context, orderID, token string) error
}

type EventPublisher interface {
	OrderCreated(ctx context.Context, order models.Order) error
	StatusChanged(ctx context.Context, order models.Order, previous models.OrderStatus) error
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type VoucherIssuer interface {
	PNG(p voucher.Payload) ([]byte, error)
	Decrypt(token string) (*voucher.Payload, error)
}

// Deps are the collaborators of OrderService.
type Deps struct {
	DB        DBLayer
	Catalog   CatalogReader
	Discounts DiscountApplier
	Payments  PaymentGateway
	Lock      OrderLocker
	Events    EventPublisher
	Users     UserLookup
	Vouchers  VoucherIssuer
	Config    config.OrderConfig
	Logger    *logger.Logger
}

type OrderService struct {
	DB        DBLayer
	Catalog   CatalogReader
	Discounts DiscountApplier
	Payments  PaymentGateway
	Lock      OrderLocker
	Events    EventPublisher
	Users     UserLookup
	Vouchers  VoucherIssuer
	cfg       config.OrderConfig
	logger    *logger.Logger
	now       func() time.Time
}

func NewOrderService(d Deps) *OrderService {
	return &OrderService{
		DB:        d.DB,
		Catalog:   d.Catalog,
		Discounts: d.Discounts,
		Payments:  d.Payments,
		Lock:      d.Lock,
		Events:    d.Events,
		Users:     d.Users,
		Vouchers:  d.Vouchers,
		cfg:       d.Config,
		logger:    d.Logger,
		now:       time.Now,
	}
}

// ---------------- ORDERS ----------------

// requireUser resolves the caller to a known account.
func (s *OrderService) requireUser(ctx context.Context, id auth.Identity) error {
	if id.UserID == "" {
		return apperror.NewUnauthorized("authentication required")
	}
	if _, err := s.Users.GetUserByID(ctx, id.UserID); err != nil {
		if errors.Is(err, apperror.ErrUserNotFound) {
			return apperror.NewUnauthorized("caller is not a registered user")
		}
		return err
	}
	return nil
}

// CreateOrder prices the request, persists the order with its lines in one
// transaction, then asks the gateway for a payment link. If only the payment
// step fails, the PENDING order is kept and the response carries its id next
// to the error.
func (s *OrderService) CreateOrder(ctx context.Context, id auth.Identity, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	if !id.HasRole(models.RoleUser) {
		return nil, apperror.NewForbidden("only customers can place orders")
	}
	if err := s.requireUser(ctx, id); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	orderID := uuid.NewString()
	serviceIDs := []string{}
	seenService := map[string]bool{}
	addService := func(serviceID string) {
		if !seenService[serviceID] {
			seenService[serviceID] = true
			serviceIDs = append(serviceIDs, serviceID)
		}
	}

	ticketSum := decimal.Zero
	tickets := make([]models.OrderedTicket, 0, len(req.Tickets))
	for _, line := range req.Tickets {
		if line.Quantity < 1 {
			return nil, apperror.InvalidQuantity("ticket", line.ID, line.Quantity)
		}
		ticket, err := s.Catalog.FindTicketByID(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		price := ticket.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		ticketSum = ticketSum.Add(price)
		tickets = append(tickets, models.OrderedTicket{
			ID:         uuid.NewString(),
			OrderID:    orderID,
			TicketID:   ticket.ID,
			Amount:     line.Quantity,
			Price:      price,
			ValidStart: req.CheckIn,
			ValidEnd:   req.CheckOut,
			CreatedAt:  now,
		})
		addService(ticket.ServiceID)
	}

	roomSum := decimal.Zero
	rooms := make([]models.OrderedRoom, 0, len(req.Rooms))
	for _, line := range req.Rooms {
		if line.Quantity < 1 {
			return nil, apperror.InvalidQuantity("room", line.ID, line.Quantity)
		}
		room, err := s.Catalog.FindRoomByID(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		price := room.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		roomSum = roomSum.Add(price)
		rooms = append(rooms, models.OrderedRoom{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			RoomID:    room.ID,
			Amount:    line.Quantity,
			Price:     price,
			StartDate: req.CheckIn,
			EndDate:   req.CheckOut,
			CreatedAt: now,
		})
		addService(room.ServiceID)
	}

	total := ticketSum.Add(roomSum.Mul(s.cfg.RoomWeight))

	discountPrice := decimal.Zero
	if len(req.DiscountIDs) > 0 {
		scope, err := s.scopeOf(ctx, serviceIDs, now)
		if err != nil {
			return nil, err
		}
		application, err := s.Discounts.ApplyDiscounts(ctx, total, req.DiscountIDs, scope)
		if err != nil {
			return nil, err
		}
		discountPrice = application.Total
	}

	order := &models.Order{
		OrderID:       orderID,
		UserID:        id.UserID,
		Status:        models.OrderStatusPending,
		TotalPrice:    total,
		DiscountPrice: discountPrice,
		FinalPrice:    total.Sub(discountPrice),
		Deposit:       total.Mul(s.cfg.DepositRate).Round(2),
		GuestPhone:    req.GuestPhone,
		Note:          req.Note,
		CreatedAt:     now,
	}

	amount := s.paymentAmount(*order)
	if amount <= 0 {
		return nil, apperror.NewValidation("order amount to pay must be positive")
	}

	if err := s.DB.CreateOrder(ctx, order, tickets, rooms, req.DiscountIDs); err != nil {
		s.logger.LogOrder("CREATE_FAILED", orderID, err.Error())
		return nil, apperror.NewInternal("failed to save order", err)
	}
	s.logger.LogOrder("CREATED", orderID, fmt.Sprintf("user=%s total=%s discount=%s final=%s deposit=%s",
		order.UserID, order.TotalPrice, order.DiscountPrice, order.FinalPrice, order.Deposit))

	if err := s.Events.OrderCreated(ctx, *order); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (order created %s): %v", orderID, err))
	}

	resp := &models.CreateOrderResponse{
		OrderID:       order.OrderID,
		Status:        order.Status,
		TotalPrice:    order.TotalPrice,
		DiscountPrice: order.DiscountPrice,
		FinalPrice:    order.FinalPrice,
		Deposit:       order.Deposit,
	}

	payURL, err := s.requestPayment(ctx, *order)
	if err != nil {
		return resp, err
	}
	resp.PayURL = payURL
	return resp, nil
}

func validateRequest(req models.CreateOrderRequest) error {
	if len(req.Tickets) == 0 && len(req.Rooms) == 0 {
		return apperror.NewValidation("an order needs at least one ticket or room")
	}
	if len(req.Rooms) > 0 && (req.CheckIn.IsZero() || req.CheckOut.IsZero()) {
		return apperror.NewValidation("checkIn and checkOut are required when booking rooms")
	}
	if !req.CheckIn.IsZero() && !req.CheckOut.IsZero() && !req.CheckOut.After(req.CheckIn) {
		return apperror.NewValidation("checkOut must be after checkIn")
	}
	return nil
}

// scopeOf collects the provinces and categories of the services an order
// touches, for discount scope checks.
func (s *OrderService) scopeOf(ctx context.Context, serviceIDs []string, at time.Time) (discount.OrderScope, error) {
	scope := discount.OrderScope{ServiceIDs: serviceIDs, At: at}
	for _, serviceID := range serviceIDs {
		svc, err := s.Catalog.FindServiceByID(ctx, serviceID)
		if err != nil {
			return discount.OrderScope{}, err
		}
		scope.ProvinceCodes = append(scope.ProvinceCodes, svc.ProvinceCode)
		scope.Categories = append(scope.Categories, svc.ServiceType)
	}
	return scope, nil
}

// paymentAmount is the whole-currency amount charged through the gateway.
func (s *OrderService) paymentAmount(o models.Order) int64 {
	basis := o.TotalPrice
	switch s.cfg.PaymentAmountBasis {
	case "final":
		basis = o.FinalPrice
	case "deposit":
		basis = o.Deposit
	}
	return basis.Round(0).IntPart()
}

// requestPayment creates a payment link and records its request id.
func (s *OrderService) requestPayment(ctx context.Context, order models.Order) (string, error) {
	result, err := s.Payments.CreatePayment(ctx, order.OrderID, s.paymentAmount(order))
	if err != nil {
		s.logger.LogPayment("LINK_FAILED", order.OrderID, err.Error())
		return "", err
	}
	if err := s.DB.SetPaymentRequestID(ctx, order.OrderID, result.RequestID); err != nil {
		s.logger.Error("ORDER", fmt.Sprintf("Failed to record payment request %s for order %s: %v", result.RequestID, order.OrderID, err))
	}
	return result.PayURL, nil
}

// ListOrders returns one page of the caller's orders, newest first. Pages are
// numbered from 0.
func (s *OrderService) ListOrders(ctx context.Context, id auth.Identity, page, size int) (*models.OrderPage, error) {
	if err := s.requireUser(ctx, id); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, apperror.NewValidation("page cannot be negative")
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > s.cfg.MaxPageSize {
		size = s.cfg.MaxPageSize
	}
	if page > math.MaxInt/size {
		return nil, apperror.NewValidation(fmt.Sprintf("page %d is out of range", page))
	}

	items, total, err := s.DB.ListOrdersWithLinesByUserID(ctx, id.UserID, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", id.UserID, err)
	}
	return &models.OrderPage{Items: items, Page: page, Size: size, Total: total}, nil
}

// GetOrder returns an order with its lines to its owner or an admin. Other
// callers see it as missing.
func (s *OrderService) GetOrder(ctx context.Context, id auth.Identity, orderID string) (*models.OrderWithLines, error) {
	if _, err := s.ownedOrder(ctx, id, orderID); err != nil {
		return nil, err
	}
	return s.DB.GetOrderWithLines(ctx, orderID)
}

func (s *OrderService) ownedOrder(ctx context.Context, id auth.Identity, orderID string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != id.UserID && !id.HasRole(models.RoleAdmin) {
		s.logger.LogSecurity("ORDER_ACCESS_DENIED", fmt.Sprintf("user %s requested order %s", id.UserID, orderID))
		return nil, apperror.OrderNotFound(orderID)
	}
	return order, nil
}
