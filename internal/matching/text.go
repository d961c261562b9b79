// Package matching holds the pure scoring logic used by search, booking
// alternatives and recommendations. Nothing here touches storage.
package matching

import (
	"math"
	"strings"
	"unicode"

	"github.com/zatekoja/sewa/internal/domain/entities"
)

// TermVector is a bag-of-words term frequency map
type TermVector map[string]int

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"on": {}, "at": {}, "for": {}, "with": {}, "by": {}, "from": {}, "into": {},
	"is": {}, "are": {}, "my": {}, "i": {}, "need": {}, "want": {}, "some": {},
	"service": {}, "services": {}, "repair": {}, "repairs": {}, "near": {}, "me": {},
	"nearby": {}, "best": {}, "good": {}, "cheap": {},
}

// Tokenize lower-cases text, turns every non-alphanumeric rune into a space
// and drops stop words.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Vectorize counts each distinct token
func Vectorize(tokens []string) TermVector {
	v := make(TermVector, len(tokens))
	for _, t := range tokens {
		v[t]++
	}
	return v
}

// VectorizeText is Vectorize(Tokenize(text))
func VectorizeText(text string) TermVector {
	return Vectorize(Tokenize(text))
}

func (v TermVector) magnitude() float64 {
	sum := 0
	for _, c := range v {
		sum += c * c
	}
	return math.Sqrt(float64(sum))
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is empty.
func CosineSimilarity(a, b TermVector) float64 {
	magA, magB := a.magnitude(), b.magnitude()
	if magA == 0 || magB == 0 {
		return 0
	}

	// iterate the smaller map
	if len(b) < len(a) {
		a, b = b, a
	}
	dot := 0
	for term, ca := range a {
		dot += ca * b[term]
	}

	sim := float64(dot) / (magA * magB)
	if sim > 1 {
		sim = 1
	}
	return sim
}

// BuildListingVector vectorizes the listing's name, description, category and
// tags together with the provider's skill tags.
func BuildListingVector(listing *entities.ServiceListing, provider *entities.ProviderProfile) TermVector {
	if listing == nil {
		return TermVector{}
	}
	parts := []string{listing.Name, listing.Description, listing.Category}
	parts = append(parts, listing.Tags...)
	if provider != nil {
		parts = append(parts, provider.SkillTags...)
	}
	return VectorizeText(strings.Join(parts, " "))
}
