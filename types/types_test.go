package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageIDString(t *testing.T) {
	legacy := MessageID{ChainID: 42161, Legacy: true, BatchNumber: 12, IndexInBatch: 3}
	nitro := MessageID{ChainID: 42161, Position: 98765}

	assert.Equal(t, "chainId: 42161, batchNumber: 12, indexInBatch: 3", legacy.String())
	assert.Equal(t, "chainId: 42161, position: 98765", nitro.String())
}

func TestMessageIDLess(t *testing.T) {
	a := MessageID{Legacy: true, BatchNumber: 1, IndexInBatch: 5}
	b := MessageID{Legacy: true, BatchNumber: 2, IndexInBatch: 0}
	c := MessageID{Position: 0}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, b.Less(c))
	assert.True(t, MessageID{Position: 1}.Less(MessageID{Position: 2}))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TxStatus
		ok       bool
	}{
		{StatusPending, StatusSuccess, true},
		{StatusPending, StatusFailure, true},
		{StatusPending, StatusTimedOut, true},
		{StatusPending, StatusConfirmed, true},
		{StatusTimedOut, StatusSuccess, true},
		{StatusTimedOut, StatusPending, false},
		{StatusSuccess, StatusConfirmed, true},
		{StatusSuccess, StatusPending, false},
		{StatusFailure, StatusPending, false},
		{StatusFailure, StatusSuccess, false},
		{StatusConfirmed, StatusSuccess, false},
		{StatusConfirmed, StatusFailure, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanMoveTo(tt.to))
		})
	}
}

func TestMessageStateMax(t *testing.T) {
	assert.Equal(t, MessageConfirmed, MessageUnconfirmed.Max(MessageConfirmed))
	assert.Equal(t, MessageExecuted, MessageExecuted.Max(MessageUnconfirmed))
	assert.Equal(t, MessageConfirmed, MessageConfirmed.Max(MessageUnconfirmed))
}
