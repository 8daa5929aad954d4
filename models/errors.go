package models

import "errors"

var (
	ErrMalformedCatalog  = errors.New("malformed class catalog")
	ErrUnknownClass      = errors.New("unknown class")
	ErrUnreadableFile    = errors.New("unreadable file")
	ErrNoActiveClass     = errors.New("no active class selected")
	ErrNotFound          = errors.New("feature not found")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrWrite             = errors.New("write failed")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrOutsideAOI        = errors.New("geometry outside area of interest")
	ErrInvalidView       = errors.New("invalid map view")
)
