package runner

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jessegersenson/rowsync/internal/remote"
)

var optionColors = []string{"gray", "brown", "orange", "yellow", "green", "blue", "purple", "pink", "red"}

// optionRegistrar ensures a select/multi_select option is created on the
// remote schema at most once per value, even when several concurrent row
// workers encounter the same new value for the first time at once.
type optionRegistrar struct {
	client     *remote.Client
	databaseID string
	randomize  bool

	mu    sync.Mutex
	known map[string]bool // "property\x00value" already present or created this run
	group singleflight.Group
}

// newOptionRegistrar seeds known from the schema's existing select/
// multi_select options, so only genuinely new values trigger a write.
func newOptionRegistrar(client *remote.Client, databaseID string, randomize bool, existing map[string][]string) *optionRegistrar {
	known := make(map[string]bool)
	for prop, opts := range existing {
		for _, o := range opts {
			known[prop+"\x00"+o] = true
		}
	}
	return &optionRegistrar{client: client, databaseID: databaseID, randomize: randomize, known: known}
}

// EnsureOption implements convert.OptionRegistrar.
func (r *optionRegistrar) EnsureOption(ctx context.Context, property, value string) error {
	key := property + "\x00" + value
	if r.isKnown(key) {
		return nil
	}

	_, err, _ := r.group.Do(key, func() (any, error) {
		if r.isKnown(key) {
			return nil, nil
		}
		color := "default"
		if r.randomize {
			color = optionColors[rand.Intn(len(optionColors))]
		}
		if err := r.client.CreateOption(ctx, r.databaseID, property, value, color); err != nil {
			return nil, err
		}
		r.markKnown(key)
		return nil, nil
	})
	return err
}

func (r *optionRegistrar) isKnown(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.known[key]
}

func (r *optionRegistrar) markKnown(key string) {
	r.mu.Lock()
	r.known[key] = true
	r.mu.Unlock()
}
