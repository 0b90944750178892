package web

import "context"

// Server is the HTTP front end. URL is the address advertised to phones on
// the mirror splash.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	URL() string
}

var _ Server = (*HTTPServer)(nil)
