package handler

import "github.com/iliyamo/showtime-booking/internal/service"

// RequestValidator plugs the service validator into echo so request
// bodies are checked with the same tags and messages as service inputs.
type RequestValidator struct{}

// Validate implements echo.Validator.
func (RequestValidator) Validate(i any) error { return service.Validate(i) }
