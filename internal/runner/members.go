package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jessegersenson/rowsync/internal/remote"
)

// memberIndex resolves a person column's username/email fragments against
// the workspace's member list, fetched once and matched case-insensitively
// by name or email.
type memberIndex struct {
	client *remote.Client

	mu       sync.Mutex
	built    bool
	buildErr error
	byName   map[string]string
}

func newMemberIndex(client *remote.Client) *memberIndex {
	return &memberIndex{client: client}
}

func (m *memberIndex) ensureBuilt(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.built {
		return m.buildErr
	}
	m.built = true

	members, err := m.client.ListMembers(ctx)
	if err != nil {
		m.buildErr = fmt.Errorf("runner: list workspace members: %w", err)
		return m.buildErr
	}

	m.byName = make(map[string]string, len(members)*2)
	for _, mem := range members {
		if mem.Name != "" {
			m.byName[strings.ToLower(mem.Name)] = mem.ID
		}
		if mem.Email != "" {
			m.byName[strings.ToLower(mem.Email)] = mem.ID
		}
	}
	return nil
}

// Resolve implements convert.MemberResolver.
func (m *memberIndex) Resolve(ctx context.Context, usernameOrEmail string) (string, bool, error) {
	if err := m.ensureBuilt(ctx); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[strings.ToLower(usernameOrEmail)]
	return id, ok, nil
}
