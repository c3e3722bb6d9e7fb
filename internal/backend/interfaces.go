package backend

import (
	"context"
	"net/url"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_backend.go

// API is the REST surface of the inventory back end, relative to its base URL.
type API interface {
	Get(ctx context.Context, path string, query url.Values) (Response, error)
	Post(ctx context.Context, path string, body any) (Response, error)
}

type Response struct {
	Status int
	// Empty is set on 204 or on a 2xx with a blank body.
	Empty bool
	Body  []byte
}
