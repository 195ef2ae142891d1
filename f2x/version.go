package f2x

import "fmt"

// CategoryVersionInformation identifies a version of a category's message schema.
// Two values are equal when all three fields are equal.
type CategoryVersionInformation struct {
	Category     MessageCategory
	MajorVersion uint32
	MinorVersion uint32
}

// NewCategoryVersionInformation creates a CategoryVersionInformation.
func NewCategoryVersionInformation(category MessageCategory, major uint32, minor uint32) CategoryVersionInformation {
	return CategoryVersionInformation{Category: category, MajorVersion: major, MinorVersion: minor}
}

// Equal reports whether v and other describe the same category version.
func (v CategoryVersionInformation) Equal(other CategoryVersionInformation) bool {
	return v == other
}

// Less orders versions of the same category by major then minor version.
func (v CategoryVersionInformation) Less(other CategoryVersionInformation) bool {
	if v.MajorVersion != other.MajorVersion {
		return v.MajorVersion < other.MajorVersion
	}

	return v.MinorVersion < other.MinorVersion
}

func (v CategoryVersionInformation) String() string {
	return fmt.Sprintf("%s v%d.%d", v.Category, v.MajorVersion, v.MinorVersion)
}

// NegotiateVersion picks the highest version of category that appears in both supported and offered.
//
// Versions of other categories in either list are ignored. It returns false if the lists have no
// version of category in common.
func NegotiateVersion(
	category MessageCategory,
	supported []CategoryVersionInformation,
	offered []CategoryVersionInformation,
) (CategoryVersionInformation, bool) {
	var (
		best  CategoryVersionInformation
		found bool
	)

	for _, s := range supported {
		if s.Category != category {
			continue
		}
		for _, o := range offered {
			if !s.Equal(o) {
				continue
			}
			if !found || best.Less(s) {
				best = s
				found = true
			}
		}
	}

	return best, found
}
