package checkout

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/cookcart/internal/cart"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/shopspring/decimal"
)

// fingerprint hashes everything that ends up in an order request except the
// idempotency key.
func fingerprint(store *cart.Store, a d.Address, fee decimal.Decimal) uint64 {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}

	vendorID, _, _ := store.ActiveVendor()
	write(vendorID)
	for _, item := range store.Items() {
		write(item.ItemID)
		write(strconv.Itoa(item.Quantity))
		write(item.UnitPrice.String())
	}
	write(a.ID)
	write(a.AddressLine1)
	write(a.AddressLine2)
	write(a.Landmark)
	write(a.City)
	write(a.State)
	write(a.Pincode)
	write(fee.String())
	return h.Sum64()
}
