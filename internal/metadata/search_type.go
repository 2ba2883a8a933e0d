package metadata

import (
	"fmt"
	"strings"
)

// SearchType selects how a property takes part in free-text search.
type SearchType int

const (
	// SearchNone excludes the property from search.
	SearchNone SearchType = iota
	// SearchContainsCaseInsensitive matches values containing the term, ignoring case.
	SearchContainsCaseInsensitive
	// SearchStartsWithCaseSensitive matches values starting with the term exactly.
	SearchStartsWithCaseSensitive
	// SearchExactMatchCaseInsensitive matches values equal to the term, ignoring case.
	SearchExactMatchCaseInsensitive
)

func (s SearchType) String() string {
	switch s {
	case SearchNone:
		return "none"
	case SearchContainsCaseInsensitive:
		return "contains"
	case SearchStartsWithCaseSensitive:
		return "starts-with"
	case SearchExactMatchCaseInsensitive:
		return "exact"
	default:
		return fmt.Sprintf("SearchType(%d)", int(s))
	}
}

// ParseSearchType parses the tag form of a search type.
func ParseSearchType(s string) (SearchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SearchNone, nil
	case "contains":
		return SearchContainsCaseInsensitive, nil
	case "starts-with", "startswith":
		return SearchStartsWithCaseSensitive, nil
	case "exact", "equals":
		return SearchExactMatchCaseInsensitive, nil
	default:
		return SearchNone, fmt.Errorf("unknown search type %q", s)
	}
}
