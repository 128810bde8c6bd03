package order

import (
	"context"
	"fmt"

	"ms-booking/internal/apperror"
	"ms-booking/internal/auth"
	"ms-booking/internal/models"
)

// transition moves a PENDING order to a terminal status. The Redis lock keeps
// concurrent callbacks for one order apart; the conditional UPDATE is what
// actually guarantees a single transition, so a Redis outage only costs the
// lock.
func (s *OrderService) transition(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	if !to.Terminal() {
		return nil, apperror.NewValidation(fmt.Sprintf("status %q is not a terminal status", to))
	}

	token, ok, err := s.Lock.Acquire(ctx, orderID)
	switch {
	case err != nil:
		s.logger.Warn("REDIS", fmt.Sprintf("Order lock unavailable for %s, continuing without it: %v", orderID, err))
	case !ok:
		return nil, apperror.OrderBusy(orderID)
	default:
		defer func() {
			if err := s.Lock.Release(context.Background(), orderID, token); err != nil {
				s.logger.Warn("REDIS", fmt.Sprintf("Failed to release lock for order %s: %v", orderID, err))
			}
		}()
	}

	current, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.Status != models.OrderStatusPending {
		return current, apperror.InvalidStateTransition(orderID, string(current.Status), string(to))
	}

	changed, err := s.DB.TransitionStatus(ctx, orderID, to)
	if err != nil {
		return nil, apperror.NewInternal("failed to update order status", err)
	}
	if !changed {
		// lost a race with a writer that skipped the lock
		latest, getErr := s.DB.GetOrderByID(ctx, orderID)
		if getErr != nil {
			return nil, getErr
		}
		return latest, apperror.InvalidStateTransition(orderID, string(latest.Status), string(to))
	}

	updated, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.LogOrder("STATUS", orderID, fmt.Sprintf("%s -> %s", models.OrderStatusPending, to))

	if err := s.Events.StatusChanged(ctx, *updated, models.OrderStatusPending); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (status change %s): %v", orderID, err))
	}
	return updated, nil
}

// HandleCallback applies a gateway result to an order. Result code 0 is a
// successful payment; anything else fails the order. On a rejected transition
// the current order is returned next to the error.
func (s *OrderService) HandleCallback(ctx context.Context, orderID string, resultCode int) (*models.Order, error) {
	to := models.OrderStatusFailed
	if resultCode == 0 {
		to = models.OrderStatusSuccess
	}
	s.logger.LogPayment("CALLBACK", orderID, fmt.Sprintf("resultCode=%d -> %s", resultCode, to))
	return s.transition(ctx, orderID, to)
}

// UpdateOrderStatus lets an admin settle a PENDING order by hand.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id auth.Identity, orderID string, to models.OrderStatus) (*models.Order, error) {
	if !id.HasRole(models.RoleAdmin) {
		return nil, apperror.NewForbidden("only admins can change order status")
	}
	s.logger.LogSecurity("ORDER_STATUS_OVERRIDE", fmt.Sprintf("admin %s set order %s to %s", id.UserID, orderID, to))
	return s.transition(ctx, orderID, to)
}
