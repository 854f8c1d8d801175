package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsPermanentCheckoutError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "basket not found",
			err:  ErrBasketNotFound,
			want: true,
		},
		{
			name: "wrapped stale reference",
			err:  fmt.Errorf("product 7: %w", ErrStaleBasketReference),
			want: true,
		},
		{
			name: "joined validation error",
			err:  errors.Join(ErrInvalidCheckout, errors.New("email")),
			want: true,
		},
		{
			name: "commit conflict is retryable",
			err:  ErrPaymentIntentConflict,
			want: false,
		},
		{
			name: "not persisted is retryable",
			err:  ErrOrderNotPersisted,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsPermanentCheckoutError(tt.err)
			if got != tt.want {
				t.Errorf("IsPermanentCheckoutError() = %v, want %v", got, tt.want)
			}
		})
	}
}
