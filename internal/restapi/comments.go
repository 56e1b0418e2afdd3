package restapi

import (
	"context"
	"fmt"
)

// CreateComment appends a follow-up comment to an existing issue via
// POST Comments with a {ZComment: {...}} body; the issue is referenced by
// in.ForeignKey (its SRQ number), not a path segment.
func (c *Client) CreateComment(ctx context.Context, in CommentInput) (*Comment, error) {
	var env envelope
	_, err := c.request(ctx).
		SetBody(zCommentEnvelope{ZComment: in}).
		SetResult(&env).
		Post("/Comments")
	if err != nil {
		return nil, fmt.Errorf("restapi: create comment: %w", err)
	}
	if err := env.apiError(); err != nil {
		return nil, fmt.Errorf("restapi: create comment: %w", err)
	}

	var comment Comment
	if err := env.resource(&comment); err != nil {
		return nil, fmt.Errorf("restapi: create comment: %w", err)
	}
	return &comment, nil
}

// UploadCommentAttachment attaches a file to an existing comment.
func (c *Client) UploadCommentAttachment(ctx context.Context, commentID, filename, mimeType string, data []byte) error {
	_, err := c.request(ctx).
		SetFileReader("file", filename, bytesReader(data)).
		SetFormData(map[string]string{"contentType": mimeType}).
		Post(fmt.Sprintf("/Comments/%s/attachments", commentID))
	if err != nil {
		return fmt.Errorf("restapi: upload comment attachment %s: %w", filename, err)
	}
	return nil
}
