// Package catalog defines the closed catalogue of remote column types and
// the PropertyValue union that every converted cell is coerced into.
package catalog

// Type is one of the closed set of remote column-type codes. The set is
// fixed; no caller may introduce a new value.
type Type string

const (
	Text           Type = "text" // also used for the title column
	Number         Type = "number"
	Select         Type = "select"
	MultiSelect    Type = "multi_select"
	Status         Type = "status"
	Date           Type = "date"
	Person         Type = "person"
	File           Type = "file"
	Checkbox       Type = "checkbox"
	URL            Type = "url"
	Email          Type = "email"
	PhoneNumber    Type = "phone_number"
	CreatedTime    Type = "created_time"
	LastEditedTime Type = "last_edited_time"
	Relation       Type = "relation"
	Formula        Type = "formula"
	Rollup         Type = "rollup"
	CreatedBy      Type = "created_by"
	LastEditedBy   Type = "last_edited_by"
)

// Unsettable reports whether values of this type can never be written by a
// client. These are always dropped from the
// effective write schema.
func (t Type) Unsettable() bool {
	switch t {
	case Formula, Rollup, CreatedBy, LastEditedBy:
		return true
	default:
		return false
	}
}

// Multiple reports whether the type accepts a comma-separated list of
// values in one input cell.
func (t Type) Multiple() bool {
	switch t {
	case MultiSelect, Date, Person, File, Relation:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a member of the closed catalogue.
func (t Type) Valid() bool {
	switch t {
	case Text, Number, Select, MultiSelect, Status, Date, Person, File,
		Checkbox, URL, Email, PhoneNumber, CreatedTime, LastEditedTime,
		Relation, Formula, Rollup, CreatedBy, LastEditedBy:
		return true
	default:
		return false
	}
}

// AllTypes lists every catalogue member, in presentation order.
func AllTypes() []Type {
	return []Type{
		Text, Number, Select, MultiSelect, Status, Date, Person, File,
		Checkbox, URL, Email, PhoneNumber, CreatedTime, LastEditedTime,
		Relation, Formula, Rollup, CreatedBy, LastEditedBy,
	}
}

// ParseType parses a user-supplied --column-types token into a Type. It
// returns ok=false for anything outside the closed catalogue.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, t.Valid()
}
