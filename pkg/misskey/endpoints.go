package misskey

import "context"

// API endpoint paths
const (
	endpointI             = "/api/i"
	endpointUserReactions = "/api/users/reactions"
)

// Account is the authenticated account returned by /api/i
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Me returns the account that owns the access token. The result is cached
// for the lifetime of the client.
func (c *Client) Me(ctx context.Context) (Account, error) {
	if c.me != nil {
		return *c.me, nil
	}

	var account Account
	if err := c.postJSON(ctx, endpointI, nil, &account); err != nil {
		return Account{}, err
	}

	c.me = &account
	c.logger.DebugWithFields("resolved token owner", map[string]interface{}{
		"user_id":  account.ID,
		"username": account.Username,
	})
	return account, nil
}

// UserReactions fetches one page of the given user's reactions together with
// the reacted notes, newest-first. Records are returned raw so the normalizer
// can do its own strict field extraction. An empty sinceID fetches from the
// beginning of history.
func (c *Client) UserReactions(ctx context.Context, userID string, limit int, sinceID string) ([]map[string]any, error) {
	params := map[string]any{
		"userId": userID,
		"limit":  limit,
	}
	if sinceID != "" {
		params["sinceId"] = sinceID
	}

	var records []map[string]any
	if err := c.postJSON(ctx, endpointUserReactions, params, &records); err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("reactions page fetched", map[string]interface{}{
		"user_id":  userID,
		"count":    len(records),
		"since_id": sinceID,
	})
	return records, nil
}
