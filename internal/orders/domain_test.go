package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusConfirmed, StatusProcessing}: true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusShipped, StatusDelivered}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusShipped, StatusCancelled}:    true,
	}
	all := []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			require.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	require.True(t, StatusDelivered.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusShipped.Terminal())
}

func TestPaymentTransitions(t *testing.T) {
	require.True(t, CanTransitionPayment(PaymentPending, PaymentProcessing))
	require.True(t, CanTransitionPayment(PaymentProcessing, PaymentSuccess))
	require.True(t, CanTransitionPayment(PaymentProcessing, PaymentFailed))
	require.False(t, CanTransitionPayment(PaymentPending, PaymentSuccess))
	require.False(t, CanTransitionPayment(PaymentSuccess, PaymentFailed))
	require.False(t, CanTransitionPayment(PaymentFailed, PaymentProcessing))
	require.False(t, PaymentStatus("REFUNDED").Valid())
}

func TestNewOrderIDFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewOrderID()
		require.Regexp(t, `^ORD[0-9A-F]{8}$`, id)
		seen[id] = true
	}
	require.Greater(t, len(seen), 95)
}
