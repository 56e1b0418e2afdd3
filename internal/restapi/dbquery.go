package restapi

import (
	"context"
	"fmt"
	"strings"
)

// dbQueryResult is the shared decode target for both the spam-occurrence-
// count and timezone lookups issued against dbQueryUri.
type dbQueryResult struct {
	Count    int    `json:"count"`
	Timezone string `json:"timezone"`
}

func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (c *Client) runDBQuery(ctx context.Context, dbQueryURI, sql string) (dbQueryResult, error) {
	var env envelope
	var result dbQueryResult
	_, err := c.request(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(sql).
		SetResult(&env).
		Post(dbQueryURI)
	if err != nil {
		return result, fmt.Errorf("restapi: db query: %w", err)
	}
	if err := env.apiError(); err != nil {
		return result, fmt.Errorf("restapi: db query: %w", err)
	}
	if err := env.resource(&result); err != nil {
		return result, fmt.Errorf("restapi: db query: %w", err)
	}
	return result, nil
}

// SpamOccurrences reports how many issues the given person has triggered
// within the last timeSpanMinutes, per the spam gate's prior-occurrence-
// count data source.
func (c *Client) SpamOccurrences(ctx context.Context, dbQueryURI, personID string, timeSpanMinutes int) (int, error) {
	sql := fmt.Sprintf(
		"SELECT COUNT(*) AS count FROM issues WHERE author_id = '%s' AND created_at >= NOW() - INTERVAL '%d minutes'",
		sqlQuote(personID), timeSpanMinutes,
	)
	result, err := c.runDBQuery(ctx, dbQueryURI, sql)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Timezone resolves the UTC offset (e.g. "+03:00") associated with a
// person, used to adjust date-typed parsedFields before issue creation.
func (c *Client) Timezone(ctx context.Context, dbQueryURI, personID string) (string, error) {
	sql := fmt.Sprintf("SELECT timezone AS timezone FROM persons WHERE id = '%s'", sqlQuote(personID))
	result, err := c.runDBQuery(ctx, dbQueryURI, sql)
	if err != nil {
		return "", err
	}
	if result.Timezone == "" {
		return "+00:00", nil
	}
	return result.Timezone, nil
}
