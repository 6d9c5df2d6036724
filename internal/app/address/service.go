// Package address validates postal addresses entered during signup and profile edits.
package address

import (
	"context"
	"strings"

	"vinoclub/internal/apperr"
	"vinoclub/internal/usps"
	"vinoclub/shared/go/logging"
)

const incompleteDescription = "Please provide a complete address with street, city, state, and ZIP code"

var ErrAddressRequired = apperr.Validation("Address is required")

// Validator checks a structured address with the postal service.
type Validator interface {
	Validate(ctx context.Context, address usps.Address) usps.Result
}

// Input accepts either a free-form multi-line address or a structured one.
type Input struct {
	Address    string        `json:"address"`
	Structured *usps.Address `json:"structured,omitempty"`
}

// Response is the validation outcome plus a display string for the validated address.
type Response struct {
	usps.Result
	Formatted string `json:"formatted,omitempty"`
}

// Service validates addresses.
type Service interface {
	Validate(ctx context.Context, in Input) (Response, error)
}

type service struct {
	validator Validator
}

// New constructs an address Service.
func New(validator Validator) Service {
	return &service{validator: validator}
}

// Validate parses the input and asks the postal service to confirm it. An
// unusable address is reported in the Response rather than as an error.
func (s *service) Validate(ctx context.Context, in Input) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	var addr usps.Address
	switch {
	case in.Structured != nil:
		addr = *in.Structured
		addr.State = strings.ToUpper(strings.TrimSpace(addr.State))
	case strings.TrimSpace(in.Address) != "":
		addr = usps.ParseAddress(in.Address)
	default:
		return Response{}, ErrAddressRequired
	}

	if !addr.Complete() {
		return Response{Result: usps.Result{
			Success:          false,
			OriginalAddress:  addr,
			Error:            usps.CodeIncompleteAddress,
			ErrorDescription: incompleteDescription,
		}}, nil
	}

	result := s.validator.Validate(ctx, addr)
	resp := Response{Result: result}
	if result.Success && result.ValidatedAddress != nil {
		resp.Formatted = usps.Format(*result.ValidatedAddress)
	} else {
		logging.FromContext(ctx).Info().
			Str("code", result.Error).
			Msg("address not validated")
	}
	return resp, nil
}
