package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/maps"
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// Checker validates shipping addresses before they are stored on an
// agent profile. Structural validation always runs; when a maps client
// is configured the address is additionally geocoded, and a lookup that
// resolves to a different postal code is rejected. Maps outages degrade
// to structural validation only: a dead geocoder must never block a
// physical-goods purchase.
type Checker struct {
	maps *maps.Client
	logg *logger.Logger
}

func NewChecker(client *maps.Client, logg *logger.Logger) *Checker {
	return &Checker{maps: client, logg: logg}
}

// Check implements the market service's address gate.
func (c *Checker) Check(ctx context.Context, addr types.ShippingAddress) error {
	if err := addr.Validate(); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "invalid shipping address")
	}
	if c == nil || c.maps == nil {
		return nil
	}

	resolved, err := c.geocode(ctx, addr)
	if err != nil {
		if c.logg != nil {
			c.logg.Warn(ctx, "address verification degraded: "+err.Error())
		}
		return nil
	}
	if resolved == nil {
		return errors.New(errors.CodeValidation, "address could not be located")
	}

	if postal := componentValue(resolved, "postal_code"); postal != "" &&
		!strings.EqualFold(strings.TrimSpace(postal), strings.TrimSpace(addr.PostalCode)) {
		return errors.New(errors.CodeValidation,
			fmt.Sprintf("postal code %s does not match the resolved address", addr.PostalCode))
	}
	return nil
}

// geocode resolves the free-text address to a place. A nil result with a
// nil error means the geocoder answered but found nothing.
func (c *Checker) geocode(ctx context.Context, addr types.ShippingAddress) (*maps.PlaceDetails, error) {
	query := fmt.Sprintf("%s, %s %s", addr.Street, addr.City, addr.PostalCode)
	req := maps.AutocompleteRequest{
		Input:               query,
		IncludedRegionCodes: []string{strings.ToUpper(strings.TrimSpace(addr.Country))},
	}
	suggestions, err := c.maps.Autocomplete(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, nil
	}
	return c.maps.ResolvePlace(ctx, suggestions[0].PlaceID)
}

func componentValue(details *maps.PlaceDetails, kind string) string {
	for _, comp := range details.AddressComponents {
		for _, typ := range comp.Types {
			if typ == kind {
				return comp.LongName
			}
		}
	}
	return ""
}
