package restapi

import "time"

// Person is the sender record an issue or comment is attributed to.
type Person struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IssueInput creates a new issue from an inbound message.
type IssueInput struct {
	PersonID      string            `json:"authorId"`
	Subject       string            `json:"subject"`
	Body          string            `json:"description"`
	SourceMailbox string            `json:"sourceMailbox,omitempty"`
	ReceivedAt    time.Time         `json:"receivedAt"`
	Attrs         map[string]string `json:"attrs,omitempty"`
}

// zIssueEnvelope wraps an issue creation body in the fixed {ZIssue: {...}}
// request shape.
type zIssueEnvelope struct {
	ZIssue IssueInput `json:"ZIssue"`
}

// Issue is the ticketing API's issue resource, addressable by its SRQ
// number.
type Issue struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

// CommentInput appends a follow-up comment to an existing issue. ForeignKey
// carries the issue's SRQ number, per the fixed Comments wire shape.
type CommentInput struct {
	ForeignKey string `json:"foreignKey"`
	PersonID   string `json:"authorId,omitempty"`
	Body       string `json:"comment"`
	Anonymous  bool   `json:"anonymous,omitempty"`
}

// zCommentEnvelope wraps a comment creation body in the fixed
// {ZComment: {...}} request shape.
type zCommentEnvelope struct {
	ZComment CommentInput `json:"ZComment"`
}

// Comment is the ticketing API's created-comment response.
type Comment struct {
	ID string `json:"id"`
}
