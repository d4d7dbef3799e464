package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/fjod/cookcart/internal/address"
	"github.com/fjod/cookcart/internal/cart"
	d "github.com/fjod/cookcart/internal/domain"
	"github.com/fjod/cookcart/internal/order"
	"github.com/shopspring/decimal"
)

type checkoutTestContext struct {
	store    *cart.Store
	resolver *cart.SwitchResolver
	repo     *MockAddressRepository
	placer   *MockPlacer
	wf       *Workflow

	outcome d.AddOutcome
	saved   *d.Address
	err     error
}

func (c *checkoutTestContext) reset() {
	c.store = cart.NewStore()
	c.resolver = cart.NewSwitchResolver(c.store)
	c.repo = &MockAddressRepository{}
	c.placer = &MockPlacer{}
	c.wf = New("u1", c.store, address.NewBook(c.repo), order.NewSubmitter(c.placer))
	c.outcome = d.Added
	c.saved = nil
	c.err = nil
}

func (c *checkoutTestContext) anEmptyCart() error {
	if !c.store.IsEmpty() {
		return errors.New("expected empty cart")
	}
	return nil
}

func (c *checkoutTestContext) theCartHoldsOfAtFromCook(qty int, itemID, price, vendorID string) error {
	for i := 0; i < qty; i++ {
		outcome, err := c.resolver.Add(lineItem(itemID, price, vendorID))
		if err != nil {
			return err
		}
		if outcome != d.Added {
			return fmt.Errorf("expected add, got %s", outcome)
		}
	}
	return nil
}

func (c *checkoutTestContext) theUserHasADefaultAddressIn(id, city string) error {
	c.repo.Addresses = append(c.repo.Addresses, d.Address{
		ID: id, Type: d.AddressTypeHome, AddressLine1: "1 Main Road", City: city, Pincode: "411001", IsDefault: true,
	})
	return nil
}

func (c *checkoutTestContext) theOrderBackendIsFailing() error {
	c.placer.Err = errors.New("service unavailable")
	return nil
}

func (c *checkoutTestContext) theUserAddsAtFromCook(itemID, price, vendorID string) error {
	c.outcome, c.err = c.resolver.Add(lineItem(itemID, price, vendorID))
	return nil
}

func (c *checkoutTestContext) theUserConfirmsTheSwitch() error {
	return c.resolver.ConfirmPending()
}

func (c *checkoutTestContext) theUserCancelsTheSwitch() error {
	c.resolver.CancelSwitch()
	return nil
}

func (c *checkoutTestContext) theUserProceedsToCheckout() error {
	c.err = c.wf.Proceed()
	return nil
}

func (c *checkoutTestContext) theAddressesAreLoaded() error {
	_, c.err = c.wf.LoadAddresses(context.Background())
	return c.err
}

func (c *checkoutTestContext) theUserSavesAnAddressOnInWithPincode(line1, city, pincode string) error {
	c.saved, c.err = c.wf.SaveAddress(context.Background(), d.AddressInput{AddressLine1: line1, City: city, Pincode: pincode})
	return nil
}

func (c *checkoutTestContext) theUserConfirmsTheCandidateAddress() error {
	return c.wf.ConfirmAddress("")
}

func (c *checkoutTestContext) theUserPlacesTheOrder() error {
	_, c.err = c.wf.PlaceOrder(context.Background())
	return nil
}

func (c *checkoutTestContext) theUserGoesBack() error {
	return c.wf.Back()
}

func (c *checkoutTestContext) aVendorSwitchConfirmationIsRequired() error {
	if c.err != nil {
		return c.err
	}
	if c.outcome != d.NeedsVendorSwitchConfirmation {
		return fmt.Errorf("expected switch confirmation, got %s", c.outcome)
	}
	return nil
}

func (c *checkoutTestContext) theActiveCookIs(vendorID string) error {
	got, _, _ := c.store.ActiveVendor()
	if got != vendorID {
		return fmt.Errorf("expected active cook %q, got %q", vendorID, got)
	}
	return nil
}

func (c *checkoutTestContext) theCartHoldsItems(n int) error {
	if got := c.store.TotalItemCount(); got != n {
		return fmt.Errorf("expected %d items, got %d", n, got)
	}
	return nil
}

func (c *checkoutTestContext) theSubtotalIs(amount string) error {
	return sameAmount(amount, c.store.TotalAmount())
}

func (c *checkoutTestContext) theTotalIs(amount string) error {
	return sameAmount(amount, c.wf.Session().Total)
}

func (c *checkoutTestContext) theStepFailsWith(substring string) error {
	if c.err == nil {
		return errors.New("expected step to fail but it succeeded")
	}
	if !strings.Contains(c.err.Error(), substring) {
		return fmt.Errorf("expected error to contain %q, got %q", substring, c.err.Error())
	}
	return nil
}

func (c *checkoutTestContext) theStageIs(stage string) error {
	if got := c.wf.Stage().String(); got != stage {
		return fmt.Errorf("expected stage %q, got %q", stage, got)
	}
	return nil
}

func (c *checkoutTestContext) theCandidateAddressIs(id string) error {
	step := c.wf.AddressStep()
	if step.Candidate == nil || step.Candidate.ID != id {
		return fmt.Errorf("expected candidate %q, got %+v", id, step.Candidate)
	}
	return nil
}

func (c *checkoutTestContext) addressEntryIsRequired() error {
	if !c.wf.AddressStep().EntryRequired {
		return errors.New("expected address entry to be required")
	}
	return nil
}

func (c *checkoutTestContext) theSavedAddressIsTheDefault() error {
	if c.err != nil {
		return c.err
	}
	if c.saved == nil || !c.saved.IsDefault {
		return errors.New("expected saved address to be the default")
	}
	return nil
}

func (c *checkoutTestContext) noAddressWasSentToTheBackend() error {
	if c.repo.SaveCalls != 0 {
		return fmt.Errorf("expected no save calls, got %d", c.repo.SaveCalls)
	}
	return nil
}

func (c *checkoutTestContext) anOrderIdIsShown() error {
	if c.err != nil {
		return c.err
	}
	if c.wf.Session().PlacedOrderID == "" {
		return errors.New("expected placed order id")
	}
	return nil
}

func (c *checkoutTestContext) theCartIsEmpty() error {
	if !c.store.IsEmpty() {
		return errors.New("expected empty cart")
	}
	return nil
}

func lineItem(itemID, price, vendorID string) d.LineItem {
	return d.LineItem{
		ItemID:      itemID,
		DisplayName: itemID,
		UnitPrice:   decimal.RequireFromString(price),
		VendorID:    vendorID,
		VendorName:  vendorID,
	}
}

func sameAmount(want string, got decimal.Decimal) error {
	if !decimal.RequireFromString(want).Equal(got) {
		return fmt.Errorf("expected %s, got %s", want, got.StringFixed(2))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the cart holds (\d+) of "([^"]*)" at ([\d.]+) from cook "([^"]*)"$`, tc.theCartHoldsOfAtFromCook)
	ctx.Step(`^the user has a default address "([^"]*)" in "([^"]*)"$`, tc.theUserHasADefaultAddressIn)
	ctx.Step(`^the order backend is failing$`, tc.theOrderBackendIsFailing)

	// When steps
	ctx.Step(`^the user adds "([^"]*)" at ([\d.]+) from cook "([^"]*)"$`, tc.theUserAddsAtFromCook)
	ctx.Step(`^the user confirms the switch$`, tc.theUserConfirmsTheSwitch)
	ctx.Step(`^the user cancels the switch$`, tc.theUserCancelsTheSwitch)
	ctx.Step(`^the user proceeds to checkout$`, tc.theUserProceedsToCheckout)
	ctx.Step(`^the addresses are loaded$`, tc.theAddressesAreLoaded)
	ctx.Step(`^the user saves an address on "([^"]*)" in "([^"]*)" with pincode "([^"]*)"$`, tc.theUserSavesAnAddressOnInWithPincode)
	ctx.Step(`^the user confirms the candidate address$`, tc.theUserConfirmsTheCandidateAddress)
	ctx.Step(`^the user places the order$`, tc.theUserPlacesTheOrder)
	ctx.Step(`^the user goes back$`, tc.theUserGoesBack)

	// Then steps
	ctx.Step(`^a vendor switch confirmation is required$`, tc.aVendorSwitchConfirmationIsRequired)
	ctx.Step(`^the active cook is "([^"]*)"$`, tc.theActiveCookIs)
	ctx.Step(`^the cart holds (\d+) items$`, tc.theCartHoldsItems)
	ctx.Step(`^the subtotal is ([\d.]+)$`, tc.theSubtotalIs)
	ctx.Step(`^the total is ([\d.]+)$`, tc.theTotalIs)
	ctx.Step(`^the step fails with "([^"]*)"$`, tc.theStepFailsWith)
	ctx.Step(`^the stage is "([^"]*)"$`, tc.theStageIs)
	ctx.Step(`^the candidate address is "([^"]*)"$`, tc.theCandidateAddressIs)
	ctx.Step(`^address entry is required$`, tc.addressEntryIsRequired)
	ctx.Step(`^the saved address is the default$`, tc.theSavedAddressIsTheDefault)
	ctx.Step(`^no address was sent to the backend$`, tc.noAddressWasSentToTheBackend)
	ctx.Step(`^an order id is shown$`, tc.anOrderIdIsShown)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
