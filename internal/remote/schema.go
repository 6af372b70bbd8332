package remote

import (
	"context"
	"fmt"

	"github.com/jessegersenson/rowsync/internal/catalog"
)

// Option is one existing select/multi_select/status option.
type Option struct {
	Name  string
	Color string
}

// Property is one remote schema column: a name, a catalogue
// type, and type-specific metadata.
type Property struct {
	ID       string
	Name     string
	Type     catalog.Type
	Options  []Option // select, multi_select, status
	LinkedDB string   // relation
}

// Schema is the ordered list of remote properties for one database.
type Schema struct {
	DatabaseID string
	Properties []Property
}

// TitleProperty returns the first property, which is always the title
// column.
func (s Schema) TitleProperty() (Property, bool) {
	if len(s.Properties) == 0 {
		return Property{}, false
	}
	return s.Properties[0], true
}

// ByName looks up a property by exact, case-sensitive name.
func (s Schema) ByName(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

type schemaWire struct {
	DatabaseID string `json:"database_id"`
	Properties []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Type    string `json:"type"`
		Options []struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"options,omitempty"`
		LinkedDB string `json:"linked_database_id,omitempty"`
	} `json:"properties"`
}

// FetchSchema retrieves the remote database's schema.
func (c *Client) FetchSchema(ctx context.Context, databaseID string) (Schema, error) {
	var wire schemaWire
	if err := c.doJSON(ctx, "GET", "/v1/databases/"+databaseID, nil, &wire); err != nil {
		return Schema{}, fmt.Errorf("remote: fetch schema: %w", err)
	}

	s := Schema{DatabaseID: wire.DatabaseID, Properties: make([]Property, 0, len(wire.Properties))}
	for _, p := range wire.Properties {
		t, ok := catalog.ParseType(p.Type)
		if !ok {
			t = catalog.Text
		}
		prop := Property{ID: p.ID, Name: p.Name, Type: t, LinkedDB: p.LinkedDB}
		for _, o := range p.Options {
			prop.Options = append(prop.Options, Option{Name: o.Name, Color: o.Color})
		}
		s.Properties = append(s.Properties, prop)
	}
	return s, nil
}

// RenameProperty renames a property in place (used for key-column rename,
// by name).
func (c *Client) RenameProperty(ctx context.Context, databaseID, from, to string) error {
	body := map[string]string{"from": from, "to": to}
	if err := c.doJSON(ctx, "PATCH", "/v1/databases/"+databaseID+"/properties/rename", body, nil); err != nil {
		return fmt.Errorf("remote: rename property %q -> %q: %w", from, to, err)
	}
	return nil
}

// AddProperty adds a new property to the remote schema.
func (c *Client) AddProperty(ctx context.Context, databaseID string, prop Property) error {
	body := map[string]any{"name": prop.Name, "type": string(prop.Type)}
	if err := c.doJSON(ctx, "POST", "/v1/databases/"+databaseID+"/properties", body, nil); err != nil {
		return fmt.Errorf("remote: add property %q: %w", prop.Name, err)
	}
	return nil
}

// CreateOption adds a new option to a select/multi_select property.
func (c *Client) CreateOption(ctx context.Context, databaseID, property, optionName, color string) error {
	body := map[string]any{"property": property, "name": optionName, "color": color}
	if err := c.doJSON(ctx, "POST", "/v1/databases/"+databaseID+"/properties/options", body, nil); err != nil {
		return fmt.Errorf("remote: create option %q on %q: %w", optionName, property, err)
	}
	return nil
}
