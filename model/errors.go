package model

import "errors"

// Error taxonomy shared by the service layer. Controllers map these to
// HTTP statuses; everything else is an internal error.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")
)
