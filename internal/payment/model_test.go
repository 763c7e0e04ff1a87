package payment

import (
	"errors"
	"testing"

	"resto-be/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	total := Sum([]Payment{
		{Amount: decimal.RequireFromString("600.10"), Method: MethodCash},
		{Amount: decimal.RequireFromString("399.90"), Method: MethodQR},
	})
	assert.True(t, decimal.NewFromInt(1000).Equal(total))
	assert.True(t, Sum(nil).IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		payments []Payment
		wantErr  bool
	}{
		{"valid", []Payment{{Amount: decimal.NewFromInt(10), Method: MethodCreditCard}}, false},
		{"empty", nil, true},
		{"zero amount", []Payment{{Amount: decimal.Zero, Method: MethodCash}}, true},
		{"negative amount", []Payment{{Amount: decimal.NewFromInt(-5), Method: MethodCash}}, true},
		{"unknown method", []Payment{{Amount: decimal.NewFromInt(5), Method: "CHEQUE"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.payments)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperr.ErrBadInput))
		})
	}
}
