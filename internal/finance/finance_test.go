package finance

import (
	"math"
	"math/rand"
	"testing"

	apperrors "loan-portal/internal/common/errors"
	"loan-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// EMI
// ==========================

func TestEMI_KnownValues(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		term      int
		want      float64
	}{
		{"one lakh at 12% for 12 months", 100000, 12, 12, 8884.88},
		{"five lakh at 10.5% for 36 months", 500000, 10.5, 36, 16251.22},
		{"zero rate splits evenly", 120000, 0, 12, 10000},
		{"single month", 50000, 12, 1, 50500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EMI(tt.principal, tt.rate, tt.term)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestEMI_InvalidInputs(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		term      int
	}{
		{"zero principal", 0, 12, 12},
		{"negative principal", -1, 12, 12},
		{"negative rate", 1000, -1, 12},
		{"zero term", 1000, 12, 0},
		{"NaN principal", math.NaN(), 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EMI(tt.principal, tt.rate, tt.term)
			assert.ErrorIs(t, err, ErrInvalidLoanTerms)
		})
	}
}

func TestEMI_TotalRepaymentCoversPrincipal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		principal := 1000 + rng.Float64()*5_000_000
		rate := 0.01 + rng.Float64()*36
		term := 1 + rng.Intn(360)

		emi, err := EMI(principal, rate, term)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, emi*float64(term), principal,
			"P=%.2f r=%.2f n=%d", principal, rate, term)
	}
}

func TestEMI_MonotoneOverSlider(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		maxAmount := float64(50_000 + rng.Intn(2_000_000))
		rate := rng.Float64() * 30
		term := 3 + rng.Intn(84)
		b := SliderBounds(maxAmount)

		prev := 0.0
		for amount := b.Min; amount <= b.Max; amount += b.Step {
			emi, err := EMI(amount, rate, term)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, emi, prev)
			prev = emi
		}
	}
}

// ==========================
// Slider
// ==========================

func TestSliderBounds(t *testing.T) {
	b := SliderBounds(500000)
	assert.Equal(t, 100000.0, b.Min)
	assert.Equal(t, 500000.0, b.Max)
	assert.Equal(t, 1000.0, b.Step)

	assert.True(t, b.Contains(100000))
	assert.True(t, b.Contains(500000))
	assert.False(t, b.Contains(99999.99))
	assert.False(t, b.Contains(500000.01))
	assert.False(t, SliderBounds(0).Contains(0))
}

func TestSnap_MinimumIsExact(t *testing.T) {
	maxAmount := 123456.0
	b := SliderBounds(maxAmount)

	assert.Equal(t, maxAmount*MinAmountFraction, b.Snap(b.Min))
	assert.Equal(t, b.Min, b.Snap(0))
	assert.Equal(t, b.Max, b.Snap(b.Max+5000))
	assert.Equal(t, b.Min+1000, b.Snap(b.Min+900))
	assert.Equal(t, b.Max, b.Snap(b.Max-1))
}

func TestPositions(t *testing.T) {
	assert.Equal(t, 401, SliderBounds(500000).Positions())
	assert.Equal(t, 1, SliderBounds(0).Positions())
}

func TestQuoteOffer(t *testing.T) {
	offer := models.LoanOffer{LenderID: "lender-1", LoanAmount: 200000, InterestRate: 12, Term: 24}

	q, err := QuoteOffer(offer, 40000)
	require.NoError(t, err)
	assert.Equal(t, 40000.0, q.Amount)
	assert.InDelta(t, 1882.94, q.EMI, 0.01)
	assert.InDelta(t, q.EMI*24-40000, q.TotalInterest, 0.05)

	_, err = QuoteOffer(offer, 39999)
	assert.Equal(t, apperrors.ErrCodeAmountOutOfRange, apperrors.CodeOf(err))
}
