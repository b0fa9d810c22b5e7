package services_test

import (
	"testing"

	"mythmanga/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name      string
		subtotal  string
		threshold string
		shipping  string
		discount  string
		want      string
		wantShip  string
	}{
		{"below threshold pays shipping", "500", "999", "49", "0", "549", "49"},
		{"at threshold ships free", "999", "999", "49", "0", "999", "0"},
		{"above threshold ships free", "1499.50", "999", "49", "150", "1349.50", "0"},
		{"discount reduces total", "800", "999", "49", "80", "769", "49"},
		{"full discount leaves shipping", "100", "999", "49", "100", "49", "49"},
		{"zero subtotal", "0", "999", "49", "0", "49", "49"},
		{"never negative", "0", "0", "49", "10", "0", "0"},
		{"negative discount ignored", "200", "999", "49", "-20", "249", "49"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.ComputeTotal(d(tt.subtotal), d(tt.threshold), d(tt.shipping), d(tt.discount))
			assert.True(t, got.Total.Equal(d(tt.want)), "total: got %s want %s", got.Total, tt.want)
			assert.True(t, got.Shipping.Equal(d(tt.wantShip)), "shipping: got %s want %s", got.Shipping, tt.wantShip)
			assert.False(t, got.Total.IsNegative())
		})
	}
}

func TestComputeTotal_Property(t *testing.T) {
	threshold, shipping := d("999"), d("49")
	for s := int64(0); s <= 2000; s += 37 {
		subtotal := decimal.New(s*100+s%100, -2)
		for _, frac := range []int64{0, 25, 50, 100} {
			discount := subtotal.Mul(decimal.New(frac, -2))
			got := services.ComputeTotal(subtotal, threshold, shipping, discount)

			ship := shipping
			if subtotal.GreaterThanOrEqual(threshold) {
				ship = decimal.Zero
			}
			want := decimal.Max(subtotal.Add(ship).Sub(discount), decimal.Zero)
			require.True(t, got.Total.Equal(want), "s=%s d=%s", subtotal, discount)
			require.False(t, got.Total.IsNegative())
		}
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		total string
		minor int64
	}{
		{"1", 100},
		{"49", 4900},
		{"1299.50", 129950},
		{"0.01", 1},
		{"10.005", 1001},
		{"1048.99", 104899},
	}
	for _, tt := range tests {
		minor, err := services.ToMinorUnits(d(tt.total))
		require.NoError(t, err)
		assert.Equal(t, tt.minor, minor, tt.total)
		assert.True(t, services.FromMinorUnits(minor).Equal(d(tt.total).Round(2)), tt.total)
	}
}

func TestMinorUnits_RoundTripToTheCent(t *testing.T) {
	for cents := int64(1); cents < 500000; cents += 997 {
		total := decimal.New(cents, -2)
		minor, err := services.ToMinorUnits(total)
		require.NoError(t, err)
		require.Equal(t, cents, minor)
		require.True(t, services.FromMinorUnits(minor).Equal(total))
	}
}

func TestMinorUnits_RejectsNonPositive(t *testing.T) {
	for _, total := range []string{"0", "0.004", "-5"} {
		_, err := services.ToMinorUnits(d(total))
		assert.ErrorIs(t, err, services.ErrInvalidAmount, total)
	}
}
