package config

import "errors"

// ErrValidation wraps every DashboardConfig validation failure so callers
// can distinguish it from storage errors with errors.Is.
var ErrValidation = errors.New("validation error")
