package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Order ID#!", "order_id"},
		{"  Ship   Time ", "ship_time"},
		{"Amount (USD)", "amount_usd"},
		{"already_snake", "already_snake"},
		{"Tab\tSeparated\nName", "tab_separated_name"},
		{"Größe", "größe"},
		{"Q1-2024 Revenue", "q12024_revenue"},
		{"#!@", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeader(tt.input))
		})
	}
}

func TestNormalizeHeader_Idempotent(t *testing.T) {
	inputs := []string{"Order ID#!", "  Ship   Time ", "Created At (UTC)", "a__b", "ÉTAT Civil"}
	for _, in := range inputs {
		once := NormalizeHeader(in)
		assert.Equal(t, once, NormalizeHeader(once), "input %q", in)
	}
}

func TestNormalizeHeaders(t *testing.T) {
	t.Run("normalizes in order", func(t *testing.T) {
		got, err := NormalizeHeaders([]string{"Order ID", "Ship Time"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"order_id", "ship_time"}, got)
	})

	t.Run("disabled keeps headers verbatim", func(t *testing.T) {
		got, err := NormalizeHeaders([]string{"Order ID", "order id"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Order ID", "order id"}, got)
	})

	t.Run("collision after normalization", func(t *testing.T) {
		_, err := NormalizeHeaders([]string{"Order ID", "order-id!", "Total"}, true)
		require.Error(t, err)
		assert.Equal(t, KindHeaderCollision, KindOf(err))
		assert.Contains(t, err.Error(), `"order_id"`)
	})

	t.Run("two punctuation-only headers collide", func(t *testing.T) {
		_, err := NormalizeHeaders([]string{"#", "!!"}, true)
		assert.Equal(t, KindHeaderCollision, KindOf(err))
	})

	t.Run("duplicate raw headers collide even when disabled", func(t *testing.T) {
		_, err := NormalizeHeaders([]string{"a", "a"}, false)
		assert.Equal(t, KindHeaderCollision, KindOf(err))
	})
}
