package pricing

import (
	"testing"

	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func catalog() map[int64]orders.Product {
	return map[int64]orders.Product{
		1: {ID: 1, Name: "A", Price: decimal.NewFromInt(100), Stock: 10, Active: true},
		2: {ID: 2, Name: "B", Price: decimal.NewFromInt(50), Stock: 1, Active: true},
		3: {ID: 3, Name: "C", Price: decimal.RequireFromString("19.99"), Stock: 5, Active: false},
		4: {ID: 4, Name: "D", Price: decimal.RequireFromString("0.10"), Stock: 100, Active: true},
	}
}

func TestTakeHappyPath(t *testing.T) {
	snap, err := Take([]orders.CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}, catalog())
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)
	require.True(t, snap.Total.Equal(decimal.NewFromInt(250)))
	require.True(t, snap.Lines[0].Subtotal.Equal(decimal.NewFromInt(200)))
	require.True(t, snap.Lines[1].Subtotal.Equal(decimal.NewFromInt(50)))
	require.True(t, Balanced(snap.OrderItems(), snap.Total))
}

func TestTakeIsExact(t *testing.T) {
	// 0.10 * 3 must be exactly 0.30, not 0.30000000000000004
	snap, err := Take([]orders.CartItem{{ProductID: 4, Quantity: 3}}, catalog())
	require.NoError(t, err)
	require.Equal(t, "0.3", snap.Total.String())
}

func TestTakeFailures(t *testing.T) {
	cases := []struct {
		name  string
		items []orders.CartItem
		want  error
	}{
		{"empty", nil, orders.ErrCartEmpty},
		{"missing", []orders.CartItem{{ProductID: 99, Quantity: 1}}, orders.ErrProductNotFound},
		{"inactive", []orders.CartItem{{ProductID: 1, Quantity: 1}, {ProductID: 3, Quantity: 1}}, orders.ErrProductInactive},
		{"stock", []orders.CartItem{{ProductID: 2, Quantity: 2}}, orders.ErrInsufficientStock},
		{"zero qty", []orders.CartItem{{ProductID: 1, Quantity: 0}}, orders.ErrInvalidQuantity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Take(tc.items, catalog())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestStockErrorNamesProduct(t *testing.T) {
	_, err := Take([]orders.CartItem{{ProductID: 2, Quantity: 3}}, catalog())
	var se *orders.StockError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "B", se.ProductName)
	require.Equal(t, 3, se.Requested)
	require.Equal(t, 1, se.Available)
}

func TestBalancedDetectsDrift(t *testing.T) {
	items := []orders.OrderItem{
		{Quantity: 2, UnitPrice: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)},
	}
	require.True(t, Balanced(items, decimal.NewFromInt(20)))
	require.False(t, Balanced(items, decimal.NewFromInt(21)))

	items[0].Subtotal = decimal.NewFromInt(19)
	require.False(t, Balanced(items, decimal.NewFromInt(19)))
}

func TestProductIDsSortedDistinct(t *testing.T) {
	ids := ProductIDs([]orders.CartItem{{ProductID: 5}, {ProductID: 2}, {ProductID: 5}, {ProductID: 1}})
	require.Equal(t, []int64{1, 2, 5}, ids)
}
