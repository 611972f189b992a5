package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderPending, OrderConfirmed},
		{OrderPending, OrderCancelled},
		{OrderConfirmed, OrderProcessing},
		{OrderConfirmed, OrderCancelled},
		{OrderProcessing, OrderShipped},
		{OrderProcessing, OrderCancelled},
		{OrderShipped, OrderDelivered},
		{OrderDelivered, OrderRefunded},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to OrderStatus
	}{
		{OrderPending, OrderShipped},
		{OrderPending, OrderDelivered},
		{OrderCancelled, OrderDelivered},
		{OrderCancelled, OrderPending},
		{OrderRefunded, OrderConfirmed},
		{OrderShipped, OrderCancelled},
		{OrderDelivered, OrderCancelled},
		{OrderConfirmed, OrderDelivered},
		{OrderPending, OrderPending},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{
		OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
		OrderDelivered, OrderCancelled, OrderRefunded,
	} {
		if !s.Valid() {
			t.Errorf("%s should be a valid status", s)
		}
	}
	if OrderStatus("ARCHIVED").Valid() {
		t.Error("ARCHIVED should not be a valid status")
	}
	if OrderStatus("").Valid() {
		t.Error("empty status should not be valid")
	}
}

func TestHoldsReservation(t *testing.T) {
	holding := []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing}
	for _, s := range holding {
		if !s.HoldsReservation() {
			t.Errorf("%s should hold a reservation", s)
		}
	}
	released := []OrderStatus{OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded}
	for _, s := range released {
		if s.HoldsReservation() {
			t.Errorf("%s should not hold a reservation", s)
		}
	}
}
