package vat

import (
	"math/rand"
	"testing"

	ierr "github.com/flexprice/taxsync/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(qty, price string, rate *string) LineItem {
	li := LineItem{Quantity: d(qty), UnitPrice: d(price)}
	if rate != nil {
		li.VatRate = lo.ToPtr(d(*rate))
	}
	return li
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s got %s", want, got.String())
}

func TestComputeSingleRate(t *testing.T) {
	entries, err := Compute([]LineItem{item("2", "100", lo.ToPtr("23"))})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assertDecimal(t, "23", entries[0].VatRate)
	assertDecimal(t, "200", entries[0].NetAmount)
	assertDecimal(t, "46", entries[0].VatAmount)
	assertDecimal(t, "246", entries[0].GrossAmount)
	assert.Equal(t, 1, entries[0].ItemCount)
}

func TestComputeMixedRates(t *testing.T) {
	entries, err := Compute([]LineItem{
		item("1", "100", lo.ToPtr("23")),
		item("1", "50", lo.ToPtr("8")),
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assertDecimal(t, "23", entries[0].VatRate)
	assertDecimal(t, "8", entries[1].VatRate)

	net, vatTotal, gross := Totals(entries)
	assertDecimal(t, "150", net)
	assertDecimal(t, "27", vatTotal)
	assertDecimal(t, "177", gross)
}

func TestComputeDefaultsMissingRate(t *testing.T) {
	entries, err := Compute([]LineItem{item("1", "100", nil)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assertDecimal(t, "23", entries[0].VatRate)
	assertDecimal(t, "23", entries[0].VatAmount)
}

func TestComputeMergesNumericallyEqualRates(t *testing.T) {
	entries, err := Compute([]LineItem{
		item("1", "10", lo.ToPtr("23")),
		item("1", "10", lo.ToPtr("23.00")),
		item("1", "10", nil),
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].ItemCount)
	assertDecimal(t, "30", entries[0].NetAmount)
}

func TestComputeEmpty(t *testing.T) {
	entries, err := Compute(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestComputeRoundsVatToGrosz(t *testing.T) {
	// 0.05 * 23% = 0.0115 -> 0.01, 0.5 * 5% = 0.025 -> 0.03
	entries, err := Compute([]LineItem{item("1", "0.05", lo.ToPtr("23"))})
	require.NoError(t, err)
	assertDecimal(t, "0.01", entries[0].VatAmount)

	entries, err = Compute([]LineItem{item("1", "0.5", lo.ToPtr("5"))})
	require.NoError(t, err)
	assertDecimal(t, "0.03", entries[0].VatAmount)
	assertDecimal(t, "0.53", entries[0].GrossAmount)
}

func TestComputeRejectsInvalidItems(t *testing.T) {
	_, err := Compute([]LineItem{
		item("-1", "10", nil),
		item("1", "-10", lo.ToPtr("101")),
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.False(t, ierr.IsCalculation(err))

	fields := lo.Map(ierr.FieldErrors(err), func(f ierr.FieldError, _ int) string { return f.Field })
	assert.Equal(t, []string{"items[0].quantity", "items[1].unit_price", "items[1].vat_rate"}, fields)
}

func TestComputeInvariants(t *testing.T) {
	rates := []string{"0", "5", "8", "23", "23.0"}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		n := rng.Intn(12)
		items := make([]LineItem, 0, n)
		expectedNet := decimal.Zero
		for i := 0; i < n; i++ {
			qty := decimal.NewFromInt(int64(rng.Intn(50)))
			price := decimal.New(int64(rng.Intn(1_000_000)), -2)
			li := LineItem{Quantity: qty, UnitPrice: price}
			if r := rng.Intn(len(rates) + 1); r < len(rates) {
				li.VatRate = lo.ToPtr(d(rates[r]))
			}
			items = append(items, li)
			expectedNet = expectedNet.Add(qty.Mul(price))
		}

		entries, err := Compute(items)
		require.NoError(t, err)

		sumNet := decimal.Zero
		sumCount := 0
		for _, e := range entries {
			assert.True(t, e.GrossAmount.Equal(e.NetAmount.Add(e.VatAmount)), "gross == net + vat")
			sumNet = sumNet.Add(e.NetAmount)
			sumCount += e.ItemCount
		}
		assert.True(t, sumNet.Sub(expectedNet).Abs().LessThanOrEqual(d("0.000001")), "sum of net equals sum of quantity x price")
		assert.Equal(t, n, sumCount)

		again, err := Compute(items)
		require.NoError(t, err)
		assert.Equal(t, entries, again, "compute is deterministic")
	}
}

func TestRates(t *testing.T) {
	rates := Rates([]LineItem{item("1", "1", lo.ToPtr("8")), item("1", "1", nil), item("1", "1", lo.ToPtr("8.0"))})
	require.Len(t, rates, 2)
	assertDecimal(t, "8", rates[0])
	assertDecimal(t, "23", rates[1])
}
