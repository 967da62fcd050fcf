package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utapedia/backend/internal/money"
)

func TestAdd(t *testing.T) {
	sum, err := money.New(5000, money.JPY).Add(money.New(2000, money.JPY))
	require.NoError(t, err)
	assert.Equal(t, money.New(7000, money.JPY), sum)
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := money.New(5000, money.JPY).Add(money.New(2000, money.USD))
	require.Error(t, err)
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestSub(t *testing.T) {
	diff, err := money.New(7000, money.JPY).Sub(money.New(700, money.JPY))
	require.NoError(t, err)
	assert.Equal(t, money.New(6300, money.JPY), diff)

	_, err = money.New(7000, money.JPY).Sub(money.New(700, money.KRW))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestCmp(t *testing.T) {
	tests := []struct {
		name string
		a, b money.Money
		want int
	}{
		{"Less", money.New(4000, money.JPY), money.New(5000, money.JPY), -1},
		{"Equal", money.New(5000, money.JPY), money.New(5000, money.JPY), 0},
		{"Greater", money.New(6000, money.JPY), money.New(5000, money.JPY), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Cmp(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCmp_CurrencyMismatch(t *testing.T) {
	_, err := money.New(5000, money.JPY).Cmp(money.New(5000, money.USD))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestZero(t *testing.T) {
	z := money.Zero(money.JPY)
	assert.True(t, z.IsZero())
	assert.False(t, z.IsPositive())
	assert.False(t, z.IsNegative())
	assert.Equal(t, money.JPY, z.Currency)
}
