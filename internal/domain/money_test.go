package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/currency"

	"github.com/mahmoudaladin7/E-Commerce/internal/domain"
)

func TestMajorUnitsString(t *testing.T) {
	tests := []struct {
		name  string
		money domain.Money
		want  string
	}{
		{
			name:  "two-digit currency",
			money: domain.Money{AmountMinor: 1000, Currency: currency.USD},
			want:  "10.00",
		},
		{
			name:  "sub-unit amount survives conversion",
			money: domain.Money{AmountMinor: 1, Currency: currency.USD},
			want:  "0.01",
		},
		{
			name:  "zero-digit currency",
			money: domain.Money{AmountMinor: 1000, Currency: currency.JPY},
			want:  "1000",
		},
		{
			name:  "zero amount",
			money: domain.Money{AmountMinor: 0, Currency: currency.EUR},
			want:  "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.money.MajorUnitsString())
		})
	}
}

func TestMinorUnitExponent(t *testing.T) {
	assert.Equal(t, int32(2), domain.MinorUnitExponent(currency.USD))
	assert.Equal(t, int32(0), domain.MinorUnitExponent(currency.JPY))
}
