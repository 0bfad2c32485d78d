package entity

// Product is the catalog side the checkout flow reads from. Catalog
// management itself lives elsewhere; the order path only needs lookup
// and the sold counter.
type Product struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Enabled   bool   `json:"enabled"`
	SoldCount int    `json:"sold_count"`
}

// Variant carries the price truth for a purchasable option of a product,
// plus the fulfillment provider's identifiers needed to submit it for
// production.
type Variant struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id"`
	Title             string `json:"title"`
	Price             int64  `json:"price"`
	Enabled           bool   `json:"enabled"`
	ExternalProductID string `json:"external_product_id"`
	ExternalVariantID int    `json:"external_variant_id"`
	ImageURL          string `json:"image_url,omitempty"`
}

// PromoCode discounts a checkout subtotal either by percentage or by a
// fixed amount of cents. Exactly one of the two is expected to be set.
type PromoCode struct {
	Code       string `json:"code"`
	PercentOff int    `json:"percent_off,omitempty"`
	AmountOff  int64  `json:"amount_off,omitempty"`
	Enabled    bool   `json:"enabled"`
}

// DiscountFor computes the discount this code yields on a subtotal,
// capped so the discounted subtotal never goes negative.
func (p *PromoCode) DiscountFor(subtotal int64) int64 {
	var d int64
	if p.PercentOff > 0 {
		d = subtotal * int64(p.PercentOff) / 100
	} else {
		d = p.AmountOff
	}
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d
}
