package payment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/crew-ledger/payment"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name             string
		total, paid, tip string
		want             payment.State
	}{
		{"nothing paid", "480", "0", "0", payment.StateUnpaid},
		{"drift below tolerance is still unpaid", "480", "0.005", "0", payment.StateUnpaid},
		{"partial", "480", "200", "0", payment.StatePartiallyPaid},
		{"tip alone is partial", "480", "0", "20", payment.StatePartiallyPaid},
		{"exact", "480", "480", "0", payment.StatePaid},
		{"within tolerance", "480", "479.995", "0", payment.StatePaid},
		{"paid plus tip", "480", "460", "20", payment.StatePaid},
		{"overpaid", "480", "500", "0", payment.StatePaid},
		{"nothing owed", "0", "0", "0", payment.StatePaid},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := payment.Classify(dec(c.total), dec(c.paid), dec(c.tip))
			assert.Equal(t, c.want, got)
		})
	}
}

func TestClassify_EditingPaidAmountDownReclassifies(t *testing.T) {
	// GIVEN: 480 paid against 480
	total := dec("480")
	assert.True(t, payment.NetPayment(total, dec("480"), dec("0")).IsZero())
	assert.Equal(t, payment.StatePaid, payment.Classify(total, dec("480"), dec("0")))

	// WHEN: the paid amount is edited down to 200
	net := payment.NetPayment(total, dec("200"), dec("0"))

	// THEN: 280 is outstanding and the state is partial
	assert.True(t, net.Equal(dec("280")))
	assert.Equal(t, payment.StatePartiallyPaid, payment.Classify(total, dec("200"), dec("0")))
	assert.False(t, payment.CoversTotal(dec("200"), total))
}

func TestCoversTotal_UsesTolerance(t *testing.T) {
	assert.True(t, payment.CoversTotal(dec("99.99"), dec("100")))
	assert.False(t, payment.CoversTotal(dec("99.98"), dec("100")))
	assert.True(t, payment.CoversTotal(dec("100.5"), dec("100")))
}

func TestIsSettled(t *testing.T) {
	assert.True(t, payment.IsSettled(dec("0")))
	assert.True(t, payment.IsSettled(dec("0.01")))
	assert.True(t, payment.IsSettled(dec("-5")))
	assert.False(t, payment.IsSettled(dec("0.02")))
}
