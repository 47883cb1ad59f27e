package payment

// Quote is the price of a print order.
type Quote struct {
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// Pricing turns a quantity into an amount in minor units.
type Pricing struct {
	UnitPrice   int64
	MaxQuantity int
	Currency    string
}

// Quote clamps quantity to 1..MaxQuantity and prices it.
func (p Pricing) Quote(quantity int) Quote {
	if quantity < 1 {
		quantity = 1
	}
	if p.MaxQuantity > 0 && quantity > p.MaxQuantity {
		quantity = p.MaxQuantity
	}
	return Quote{
		Quantity:  quantity,
		UnitPrice: p.UnitPrice,
		Amount:    int64(quantity) * p.UnitPrice,
		Currency:  p.Currency,
	}
}
