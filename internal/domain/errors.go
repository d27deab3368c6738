package domain

import "errors"

// Domain errors returned by services and translated to HTTP status codes
// at the handler boundary. Wrap with fmt.Errorf("...: %w", err) so callers
// can match with errors.Is.
var (
	// ErrValidation wraps request validation failures: handlers answer 400
	// with the wrapped message
	ErrValidation = errors.New("validation failed")

	// Users and auth
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("forbidden")

	// Wallets
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Symbols
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrSymbolDisabled = errors.New("symbol is disabled for trading")
	ErrSymbolInUse    = errors.New("symbol is referenced by positions or transactions")
	ErrImportRunning  = errors.New("symbol import already running")

	// Portfolio and trading
	ErrPositionNotFound   = errors.New("position not found")
	ErrInsufficientShares = errors.New("insufficient shares held")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrPriceMoved         = errors.New("price moved beyond slippage tolerance")
	ErrInvalidQuantity    = errors.New("quantity must be positive")

	// Notifications
	ErrNotificationNotFound = errors.New("notification not found")

	// Mystery pages
	ErrMysteryPageNotFound = errors.New("mystery page not found")

	// Upstream providers
	ErrRateLimited = errors.New("upstream rate limit exceeded")
)
