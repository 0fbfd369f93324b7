package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	matching "github.com/crossline/crossline-exchange/matching"
)

func TestPriceLevelQueue(t *testing.T) {
	t.Run("empty level", func(t *testing.T) {
		q := matching.NewPriceLevelQueue(100)

		assert.Equal(t, 100.0, q.Price())
		assert.False(t, q.HasOrders())
		assert.Equal(t, 0, q.Len())
		assert.Nil(t, q.Front())

		_, err := q.Peek()
		require.ErrorIs(t, err, matching.ErrEmptyPriceLevel)
		_, err = q.Pop()
		require.ErrorIs(t, err, matching.ErrEmptyPriceLevel)
	})

	t.Run("add rejects price mismatch", func(t *testing.T) {
		q := matching.NewPriceLevelQueue(100)
		order := matching.NewOrder(1, "u1", matching.OrderSideSell, 105, "MSFT", 0, 10)

		err := q.Add(order)
		require.ErrorIs(t, err, matching.ErrPriceLevelMismatch)
		assert.False(t, q.HasOrders())
	})

	t.Run("fifo order", func(t *testing.T) {
		q := matching.NewPriceLevelQueue(100)
		first := matching.NewOrder(1, "a", matching.OrderSideSell, 100, "MSFT", 0, 3)
		second := matching.NewOrder(2, "b", matching.OrderSideSell, 100, "MSFT", 1, 5)
		third := matching.NewOrder(3, "c", matching.OrderSideSell, 100, "MSFT", 2, 2)

		require.NoError(t, q.Add(first))
		require.NoError(t, q.Add(second))
		require.NoError(t, q.Add(third))
		assert.Equal(t, 3, q.Len())
		assert.Equal(t, int64(10), q.Volume())

		peeked, err := q.Peek()
		require.NoError(t, err)
		assert.Same(t, first, peeked)
		assert.Equal(t, 3, q.Len())

		popped, err := q.Pop()
		require.NoError(t, err)
		assert.Same(t, first, popped)

		popped, err = q.Pop()
		require.NoError(t, err)
		assert.Same(t, second, popped)

		popped, err = q.Pop()
		require.NoError(t, err)
		assert.Same(t, third, popped)
		assert.False(t, q.HasOrders())
	})

	t.Run("remove from middle", func(t *testing.T) {
		q := matching.NewPriceLevelQueue(100)
		first := matching.NewOrder(1, "a", matching.OrderSideSell, 100, "MSFT", 0, 3)
		second := matching.NewOrder(2, "b", matching.OrderSideSell, 100, "MSFT", 1, 5)
		third := matching.NewOrder(3, "c", matching.OrderSideSell, 100, "MSFT", 2, 2)

		require.NoError(t, q.Add(first))
		require.NoError(t, q.Add(second))
		require.NoError(t, q.Add(third))

		require.NoError(t, q.Remove(second))
		assert.Equal(t, 2, q.Len())
		assert.Equal(t, int64(5), q.Volume())

		popped, err := q.Pop()
		require.NoError(t, err)
		assert.Same(t, first, popped)
		popped, err = q.Pop()
		require.NoError(t, err)
		assert.Same(t, third, popped)
	})

	t.Run("remove unknown order", func(t *testing.T) {
		q := matching.NewPriceLevelQueue(100)
		stranger := matching.NewOrder(9, "x", matching.OrderSideSell, 100, "MSFT", 0, 1)

		err := q.Remove(stranger)
		require.ErrorIs(t, err, matching.ErrOrderNotFound)
	})

	t.Run("iteration", func(t *testing.T) {
		q := matching.NewPriceLevelQueue(50)
		orders := []*matching.Order{
			matching.NewOrder(1, "a", matching.OrderSideBuy, 50, "MSFT", 0, 1),
			matching.NewOrder(2, "b", matching.OrderSideBuy, 50, "MSFT", 1, 2),
			matching.NewOrder(3, "c", matching.OrderSideBuy, 50, "MSFT", 2, 3),
		}
		for _, order := range orders {
			require.NoError(t, q.Add(order))
		}

		i := 0
		for o := q.Front(); o != nil; o = q.Next(o) {
			assert.Same(t, orders[i], o)
			i++
		}
		assert.Equal(t, len(orders), i)
	})
}
