package constraint

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	PostalCode string `db:"postal_code" validate:"required,postal_code"`
	Email      string `db:"email" validate:"required,email_shape"`
}

type priced struct {
	Price    decimal.Decimal `db:"price" validate:"gte=0"`
	Quantity int             `db:"quantity" validate:"gte=1"`
}

func TestCheck_Address(t *testing.T) {
	tests := []struct {
		name    string
		in      address
		invalid []string
	}{
		{"valid", address{PostalCode: "G7X 3Y7", Email: "jgnault@uqac.ca"}, nil},
		{"postal code without space", address{PostalCode: "G7X3Y7", Email: "a@b.c"}, []string{"postal_code"}},
		{"postal code too long", address{PostalCode: "G7X 3Y77", Email: "a@b.c"}, []string{"postal_code"}},
		{"email without tld", address{PostalCode: "G7X 3Y7", Email: "elon.musk@spacex"}, []string{"email"}},
		{"both", address{PostalCode: "", Email: "nope"}, []string{"postal_code", "email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.in)
			if tt.invalid == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrViolation)
			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			for _, f := range tt.invalid {
				assert.Contains(t, cerr.Fields, f)
			}
		})
	}
}

func TestCheck_Decimal(t *testing.T) {
	require.NoError(t, Check(priced{Price: decimal.RequireFromString("28.10"), Quantity: 1}))

	err := Check(priced{Price: decimal.NewFromInt(-1), Quantity: 0})
	require.ErrorIs(t, err, ErrViolation)
	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "gte", cerr.Fields["price"])
	assert.Equal(t, "gte", cerr.Fields["quantity"])
}

func TestShapes(t *testing.T) {
	assert.True(t, PostalCode("abc def"))
	assert.False(t, PostalCode("abcdef"))
	assert.True(t, Email("a@b.co"))
	assert.False(t, Email("a@b"))
}
