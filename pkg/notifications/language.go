package notifications

import (
	"golang.org/x/text/language"
)

// Languages describes which language each LocalizedText variant is written in.
type Languages struct {
	Primary   language.Tag
	Secondary language.Tag
	matcher   language.Matcher
}

// NewLanguages builds a Languages value for the given primary and secondary tags.
func NewLanguages(primary, secondary language.Tag) Languages {
	return Languages{
		Primary:   primary,
		Secondary: secondary,
		matcher:   language.NewMatcher([]language.Tag{primary, secondary}),
	}
}

// ParseLanguages parses BCP 47 strings, falling back to English and Arabic
// for values that do not parse.
func ParseLanguages(primary, secondary string) Languages {
	p, err := language.Parse(primary)
	if err != nil {
		p = language.English
	}
	s, err := language.Parse(secondary)
	if err != nil {
		s = language.Arabic
	}
	return NewLanguages(p, s)
}

// DefaultLanguages is English primary with Arabic secondary.
var DefaultLanguages = NewLanguages(language.English, language.Arabic)

// Pick returns the variant of t that best matches the preferred tags.
// An empty secondary variant always falls back to the primary one.
func (l Languages) Pick(t LocalizedText, preferred ...language.Tag) string {
	if t.Secondary == "" || len(preferred) == 0 {
		return t.Primary
	}
	matcher := l.matcher
	if matcher == nil {
		matcher = language.NewMatcher([]language.Tag{l.Primary, l.Secondary})
	}
	_, idx, conf := matcher.Match(preferred...)
	if idx == 1 && conf != language.No {
		return t.Secondary
	}
	return t.Primary
}

// PickAccept works like Pick with preferences given as an Accept-Language
// style string such as "ar-SA,ar;q=0.9,en;q=0.5".
func (l Languages) PickAccept(t LocalizedText, accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil {
		return t.Primary
	}
	return l.Pick(t, tags...)
}

// For returns the variant of t for tag using DefaultLanguages.
func (t LocalizedText) For(tag language.Tag) string {
	return DefaultLanguages.Pick(t, tag)
}
