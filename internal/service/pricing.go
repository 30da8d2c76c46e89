package service

import (
	"math"

	"mineral-shop/internal/models"
)

// transferDiscountRate is the discount applied to bank-transfer checkouts.
const transferDiscountRate = 0.05

// Quote is the server-computed pricing of an order. It is the single
// authoritative source for money fields; client arithmetic is never trusted.
type Quote struct {
	Subtotal     int64
	ShippingCost int64
	Discount     int64
	Total        int64
}

// PricingPolicy holds the shipping fee schedule.
type PricingPolicy struct {
	ShippingCost    int64
	FreeShippingMin int64
}

func subtotal(items []models.OrderItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.UnitPrice * int64(item.Quantity)
	}
	return sum
}

// QuoteGateway prices a gateway-flow checkout: flat shipping when
// delivering, no discount.
func (p PricingPolicy) QuoteGateway(items []models.OrderItem, deliveryMethod string) Quote {
	sub := subtotal(items)

	var shipping int64
	if deliveryMethod == models.DeliveryMethodDelivery {
		shipping = p.ShippingCost
	}

	return Quote{
		Subtotal:     sub,
		ShippingCost: shipping,
		Total:        sub + shipping,
	}
}

// QuoteTransfer prices a transfer-flow checkout: shipping is waived above
// the free-shipping threshold and the transfer discount applies to the
// shipped subtotal.
func (p PricingPolicy) QuoteTransfer(items []models.OrderItem, deliveryMethod string) Quote {
	sub := subtotal(items)

	var shipping int64
	if deliveryMethod == models.DeliveryMethodDelivery && sub < p.FreeShippingMin {
		shipping = p.ShippingCost
	}

	discount := int64(math.Round(transferDiscountRate * float64(sub+shipping)))

	return Quote{
		Subtotal:     sub,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        sub + shipping - discount,
	}
}
