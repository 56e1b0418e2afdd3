package restapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// envelope is the fixed response shape every ticketing API endpoint
// returns: ReturnCode 0 means success, ResourceName names the key under
// which the actual resource sits in content[0], and Messages carries
// human-readable detail on failure.
type envelope struct {
	ReturnCode   int                          `json:"ReturnCode"`
	ResourceName string                       `json:"ResourceName"`
	Content      []map[string]json.RawMessage `json:"content"`
	Messages     []string                     `json:"Messages"`
}

func (e *envelope) apiError() error {
	if e.ReturnCode == 0 {
		return nil
	}
	if len(e.Messages) == 0 {
		return fmt.Errorf("restapi: request failed with return code %d", e.ReturnCode)
	}
	return fmt.Errorf("restapi: %s", strings.Join(e.Messages, "; "))
}

// resource unmarshals content[0][ResourceName] into out.
func (e *envelope) resource(out any) error {
	if len(e.Content) == 0 {
		return fmt.Errorf("restapi: response carried no content")
	}
	raw, ok := e.Content[0][e.ResourceName]
	if !ok {
		return fmt.Errorf("restapi: resource %q missing from response content", e.ResourceName)
	}
	return json.Unmarshal(raw, out)
}
