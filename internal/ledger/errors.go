package ledger

import "errors"

// Trade rejection reasons. All of them leave balance, positions, and order
// history untouched.
var (
	ErrInvalidQty        = errors.New("qty must be greater than zero")
	ErrInvalidSide       = errors.New("side must be buy or sell")
	ErrPriceUnavailable  = errors.New("could not resolve a market price")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInsufficientShare = errors.New("insufficient shares")
	ErrUserNotFound      = errors.New("user not found")
)

// IsRejection reports whether err is a business-rule rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidQty, ErrInvalidSide, ErrPriceUnavailable,
		ErrInsufficientFunds, ErrInsufficientShare, ErrUserNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
