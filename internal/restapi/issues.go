package restapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrIssueNotFound is returned when a subject-line ticket number does not
// resolve to an existing issue.
var ErrIssueNotFound = errors.New("restapi: issue not found")

// FindIssueByNumber resolves the issue a follow-up comment belongs to via
// GET Issues/<id>, addressing the issue by its SRQ number.
func (c *Client) FindIssueByNumber(ctx context.Context, number string) (*Issue, error) {
	var env envelope
	resp, err := c.request(ctx).
		SetResult(&env).
		Get(fmt.Sprintf("/Issues/%s", number))
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("restapi: find issue %s: %w", number, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrIssueNotFound
	}
	if err := env.apiError(); err != nil {
		return nil, fmt.Errorf("restapi: find issue %s: %w", number, err)
	}

	var issue Issue
	if err := env.resource(&issue); err != nil {
		return nil, ErrIssueNotFound
	}
	return &issue, nil
}

// CreateIssue opens a new issue from an inbound message with no resolvable
// parent thread, via POST Issues with a {ZIssue: {...}} body.
func (c *Client) CreateIssue(ctx context.Context, in IssueInput) (*Issue, error) {
	var env envelope
	_, err := c.request(ctx).
		SetBody(zIssueEnvelope{ZIssue: in}).
		SetResult(&env).
		Post("/Issues")
	if err != nil {
		return nil, fmt.Errorf("restapi: create issue: %w", err)
	}
	if err := env.apiError(); err != nil {
		return nil, fmt.Errorf("restapi: create issue: %w", err)
	}

	var issue Issue
	if err := env.resource(&issue); err != nil {
		return nil, fmt.Errorf("restapi: create issue: %w", err)
	}
	return &issue, nil
}

// UploadIssueAttachment attaches a file to an issue created from the
// message's own attachments, or the joined-original .eml when configured.
func (c *Client) UploadIssueAttachment(ctx context.Context, issueID, filename, mimeType string, data []byte) error {
	_, err := c.request(ctx).
		SetFileReader("file", filename, bytesReader(data)).
		SetFormData(map[string]string{"contentType": mimeType}).
		Post(fmt.Sprintf("/Issues/%s/attachments", issueID))
	if err != nil {
		return fmt.Errorf("restapi: upload issue attachment %s: %w", filename, err)
	}
	return nil
}
