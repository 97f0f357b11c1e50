package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/internal/domain"
)

func TestPublishDeliversPayload(t *testing.T) {
	bus := New()
	var got []StockLow
	require.NoError(t, bus.Subscribe(TopicStockLow, func(e StockLow) {
		got = append(got, e)
	}))

	Publish(bus, TopicStockLow, StockLow{Products: []domain.Product{{Name: "Pan"}}, Threshold: 5})

	require.Len(t, got, 1)
	assert.Equal(t, "Pan", got[0].Products[0].Name)
	assert.Equal(t, 5, got[0].Threshold)
}

func TestPublishNilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		Publish(nil, TopicSaleCompleted, SaleCompleted{})
	})
}
