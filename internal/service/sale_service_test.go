package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tienda-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellDeductsStockAndSnapshotsPrice(t *testing.T) {
	mem := newMemStore()
	events := &recordingPublisher{}
	svc := NewSaleService(mem, events)
	productID := mem.addProduct("5.00", 10)

	sale, created, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, created)

	assert.True(t, decimal.RequireFromString("5.00").Equal(sale.UnitPrice))
	assert.True(t, decimal.RequireFromString("15.00").Equal(sale.TotalAmount))
	assert.Equal(t, 7, mem.product(productID).Stock)

	require.Len(t, events.sold, 1)
	assert.Equal(t, 7, events.sold[0].StockAfter)
	assert.Equal(t, "15.00", events.sold[0].TotalAmount)
}

func TestSellInsufficientStockRollsBack(t *testing.T) {
	mem := newMemStore()
	events := &recordingPublisher{}
	svc := NewSaleService(mem, events)
	productID := mem.addProduct("5.00", 2)

	sale, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 5})
	assert.ErrorIs(t, err, models.ErrInsufficientStock)
	assert.Nil(t, sale)

	assert.Equal(t, 2, mem.product(productID).Stock)
	sales, _ := mem.ListSales(context.Background())
	assert.Empty(t, sales)
	assert.Empty(t, events.sold)
}

func TestSellRoundsTotal(t *testing.T) {
	mem := newMemStore()
	svc := NewSaleService(mem, &recordingPublisher{})
	productID := mem.addProduct("9.99", 10)

	sale, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "29.97", sale.TotalAmount.StringFixed(2))
}

func TestSellConcurrentLastUnit(t *testing.T) {
	mem := newMemStore()
	svc := NewSaleService(mem, &recordingPublisher{})
	productID := mem.addProduct("1.00", 1)

	const buyers = 2
	errs := make([]error, buyers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _, errs[i] = svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 1})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrInsufficientStock):
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 0, mem.product(productID).Stock)

	sales, _ := mem.ListSales(context.Background())
	assert.Len(t, sales, 1)
}

func TestSellManyConcurrentNeverOversells(t *testing.T) {
	mem := newMemStore()
	svc := NewSaleService(mem, &recordingPublisher{})
	productID := mem.addProduct("2.50", 25)

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 1})
		}()
	}
	wg.Wait()

	sales, _ := mem.ListSales(context.Background())
	assert.Len(t, sales, 25)
	assert.Equal(t, 0, mem.product(productID).Stock)
}

func TestSellPriceChangeDoesNotTouchRecordedSale(t *testing.T) {
	mem := newMemStore()
	svc := NewSaleService(mem, &recordingPublisher{})
	productID := mem.addProduct("5.00", 10)

	sale, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	mem.setPrice(productID, "8.00")

	stored, err := svc.GetSale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.00", stored.UnitPrice.StringFixed(2))
	assert.Equal(t, "10.00", stored.TotalAmount.StringFixed(2))

	next, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "8.00", next.UnitPrice.StringFixed(2))
}

func TestSellWithCustomer(t *testing.T) {
	mem := newMemStore()
	svc := NewSaleService(mem, &recordingPublisher{})
	productID := mem.addProduct("3.00", 5)
	customerID := mem.addCustomer()

	sale, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, CustomerID: &customerID, Quantity: 1})
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, customerID, *sale.CustomerID)
}

func TestSellRejections(t *testing.T) {
	missing := int64(999)

	tests := []struct {
		name string
		req  func(productID int64) *SellRequest
		want error
	}{
		{"zero quantity", func(id int64) *SellRequest { return &SellRequest{ProductID: id} }, models.ErrValidation},
		{"negative quantity", func(id int64) *SellRequest { return &SellRequest{ProductID: id, Quantity: -2} }, models.ErrValidation},
		{"unknown product", func(id int64) *SellRequest { return &SellRequest{ProductID: missing, Quantity: 1} }, models.ErrNotFound},
		{"unknown customer", func(id int64) *SellRequest {
			return &SellRequest{ProductID: id, CustomerID: &missing, Quantity: 1}
		}, models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newMemStore()
			svc := NewSaleService(mem, &recordingPublisher{})
			productID := mem.addProduct("3.00", 5)

			_, _, err := svc.Sell(context.Background(), tt.req(productID))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 5, mem.product(productID).Stock)

			sales, _ := mem.ListSales(context.Background())
			assert.Empty(t, sales)
		})
	}
}

func TestSellIdempotencyKeyReplaysSale(t *testing.T) {
	mem := newMemStore()
	events := &recordingPublisher{}
	svc := NewSaleService(mem, events)
	productID := mem.addProduct("4.00", 10)

	req := &SellRequest{ProductID: productID, Quantity: 2, IdempotencyKey: "till-1-0042"}
	first, created, err := svc.Sell(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Sell(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	assert.Equal(t, 8, mem.product(productID).Stock)
	assert.Len(t, events.sold, 1)
}

func TestSellPublishFailureKeepsSale(t *testing.T) {
	mem := newMemStore()
	svc := NewSaleService(mem, &recordingPublisher{err: errors.New("broker down")})
	productID := mem.addProduct("1.00", 3)

	_, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, mem.product(productID).Stock)
}

func TestDeleteSaleKeepsStock(t *testing.T) {
	mem := newMemStore()
	events := &recordingPublisher{}
	svc := NewSaleService(mem, events)
	productID := mem.addProduct("1.00", 3)

	sale, _, err := svc.Sell(context.Background(), &SellRequest{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSale(context.Background(), sale.ID))
	assert.Equal(t, 1, mem.product(productID).Stock)

	require.Len(t, events.deleted, 1)
	assert.Equal(t, models.EventTypeSaleDeleted, events.deleted[0].EventType)
	assert.Equal(t, 2, events.deleted[0].Quantity)

	assert.ErrorIs(t, svc.DeleteSale(context.Background(), sale.ID), models.ErrNotFound)
}
