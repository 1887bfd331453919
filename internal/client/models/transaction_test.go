package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     TransactionRequest
		wantErr string
	}{
		{
			name: "valid transfer",
			req:  TransactionRequest{Amount: 5000_00, Type: TypeTransfer, CounterpartyAccount: "ACC-42"},
		},
		{
			name: "valid deposit",
			req:  TransactionRequest{Amount: 100, Type: TypeDeposit},
		},
		{
			name:    "zero amount",
			req:     TransactionRequest{Amount: 0, Type: TypeDeposit},
			wantErr: "invalid amount: must be positive",
		},
		{
			name:    "negative amount",
			req:     TransactionRequest{Amount: -1, Type: TypeWithdraw},
			wantErr: "invalid amount: must be positive",
		},
		{
			name:    "unknown type",
			req:     TransactionRequest{Amount: 100, Type: "wire"},
			wantErr: `invalid type: unknown transaction type "wire"`,
		},
		{
			name:    "transfer without counterparty",
			req:     TransactionRequest{Amount: 100, Type: TypeTransfer},
			wantErr: "invalid counterparty_account: required for transfers",
		},
		{
			name:    "deposit with counterparty",
			req:     TransactionRequest{Amount: 100, Type: TypeDeposit, CounterpartyAccount: "ACC-42"},
			wantErr: "invalid counterparty_account: only allowed for transfers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestTransactionRequest_BeginSubmitIsOneShot(t *testing.T) {
	req := &TransactionRequest{Amount: 100, Type: TypeDeposit}
	require.Empty(t, req.IdempotencyKey())

	key, err := req.BeginSubmit()
	require.NoError(t, err)
	require.NotEmpty(t, key)
	require.Equal(t, key, req.IdempotencyKey())

	_, err = req.BeginSubmit()
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	// The original key survives the failed second attempt.
	require.Equal(t, key, req.IdempotencyKey())
}
