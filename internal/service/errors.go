package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCompanyName = errors.New("invalid company name")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrCompanyExists      = errors.New("company already exists")

	ErrInvalidModel  = errors.New("invalid model")
	ErrModelNotFound = errors.New("model not found")

	ErrInvalidClient    = errors.New("invalid client")
	ErrClientNotFound   = errors.New("client not found")
	ErrClientExists     = errors.New("client already exists")
	ErrClientHasExports = errors.New("client has exports")

	ErrInvalidExport     = errors.New("invalid export")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrExportInProgress  = errors.New("another export is in progress for this company")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidLogin       = errors.New("invalid login input")
	ErrUserExists         = errors.New("username already taken")
)

// StockError reports the line that failed the live stock check
type StockError struct {
	Table        string
	ModelID      int64
	Name         string
	Requested    int
	RequestedPkg int
	Available    int
	AvailablePkg int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("Not enough stock for %q. Available: %d qty, %d pkg.", e.Name, e.Available, e.AvailablePkg)
}

// Is lets errors.Is(err, ErrInsufficientStock) match
func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func invalid(base error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}
