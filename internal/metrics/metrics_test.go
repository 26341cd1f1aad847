package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("/api/v1/bookings", "2xx")
		IncNotification("sent")
		IncDroppedChange("messages")
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(bookingTransitions.WithLabelValues("pending", "accepted"))
	IncTransition("pending", "accepted")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingTransitions.WithLabelValues("pending", "accepted")))

	before = testutil.ToFloat64(verificationAttempts.WithLabelValues("mismatch"))
	IncVerification("mismatch")
	IncVerification("mismatch")
	assert.Equal(t, before+2, testutil.ToFloat64(verificationAttempts.WithLabelValues("mismatch")))
}
