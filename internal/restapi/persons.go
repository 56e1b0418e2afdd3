package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrPersonNotFound is returned by FindPersonByEmail when no person record
// matches the address; the dispatch pipeline interprets this per the
// configured onPersonNotFound mode.
var ErrPersonNotFound = errors.New("restapi: person not found")

// FindPersonByEmail looks up the person record for an inbound sender via
// GET Persons?email=<addr>, the fixed lookup endpoint.
func (c *Client) FindPersonByEmail(ctx context.Context, email string) (*Person, error) {
	var env envelope
	resp, err := c.request(ctx).
		SetQueryParam("email", email).
		SetResult(&env).
		Get("/Persons")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("restapi: find person: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrPersonNotFound
	}
	if err := env.apiError(); err != nil {
		return nil, fmt.Errorf("restapi: find person: %w", err)
	}

	var person Person
	if err := env.resource(&person); err != nil {
		return nil, ErrPersonNotFound
	}
	return &person, nil
}
