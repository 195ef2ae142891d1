package f2x

import "fmt"

// MessageCategory is the api category identifier carried in the application header.
type MessageCategory uint32

// Connection-level categories. Their handlers are installed for the life of a connection
// and are never removed by control-level renegotiation.
const (
	CategoryConnect     MessageCategory = 1
	CategoryLinkControl MessageCategory = 2
)

var categoryNames = map[MessageCategory]string{
	CategoryConnect:     "Connect",
	CategoryLinkControl: "LinkControl",
}

// IsConnectionLevel reports whether the category must persist for the life of the connection.
func (c MessageCategory) IsConnectionLevel() bool {
	return c == CategoryConnect || c == CategoryLinkControl
}

func (c MessageCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}

	return fmt.Sprintf("Category(%d)", uint32(c))
}
