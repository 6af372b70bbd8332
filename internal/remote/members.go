package remote

import (
	"context"
	"fmt"
)

// Member is one workspace member, resolvable by name or email for the
// person column type.
type Member struct {
	ID    string
	Name  string
	Email string
}

type memberWire struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ListMembers retrieves every member of the configured workspace.
func (c *Client) ListMembers(ctx context.Context) ([]Member, error) {
	var wire []memberWire
	if err := c.doJSON(ctx, "GET", "/v1/workspaces/"+c.cfg.Workspace+"/members", nil, &wire); err != nil {
		return nil, fmt.Errorf("remote: list members: %w", err)
	}
	out := make([]Member, 0, len(wire))
	for _, m := range wire {
		out = append(out, Member{ID: m.ID, Name: m.Name, Email: m.Email})
	}
	return out, nil
}
