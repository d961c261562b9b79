package areagraph

import (
	"strings"
	"unicode"
)

// IdentifierKind tags how an Identifier value should be looked up
type IdentifierKind int

const (
	KindSlug IdentifierKind = iota + 1
	KindDisplayName
)

// Identifier references a locality either by slug or by display name
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// BySlug builds a slug identifier
func BySlug(slug string) Identifier {
	return Identifier{Kind: KindSlug, Value: slug}
}

// ByDisplayName builds a display name identifier
func ByDisplayName(name string) Identifier {
	return Identifier{Kind: KindDisplayName, Value: name}
}

// ParseIdentifier tags free-form input once, at the boundary. A single
// lower-case token of letters, digits and hyphens is a slug; anything with
// whitespace, upper-case letters or other characters is a display name.
func ParseIdentifier(text string) Identifier {
	text = strings.TrimSpace(text)
	if text == "" {
		return Identifier{}
	}
	for _, r := range text {
		if !(unicode.IsLower(r) || unicode.IsDigit(r) || r == '-') {
			return ByDisplayName(text)
		}
	}
	return BySlug(text)
}

func (id Identifier) String() string {
	switch id.Kind {
	case KindSlug:
		return "slug:" + id.Value
	case KindDisplayName:
		return "name:" + id.Value
	default:
		return "unknown:" + id.Value
	}
}

// normalizeKey lower-cases and collapses runs of whitespace
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// compactKey lower-cases and removes all whitespace
func compactKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// compactSlugKey is compactKey with hyphens dropped as well, so
// "newbaneshwor" finds new-baneshwor
func compactSlugKey(s string) string {
	return strings.ReplaceAll(compactKey(s), "-", "")
}
