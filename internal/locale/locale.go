// Package locale validates and normalizes target locale identifiers of the
// form xx or xx-YY.
package locale

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrInvalid is returned for any input that is not a usable locale.
var ErrInvalid = errors.New("invalid locale")

var localePattern = regexp.MustCompile(`^([A-Za-z]{2})(?:[-_]([A-Za-z]{2}))?$`)

// Locale is a normalized language with an optional region.
type Locale struct {
	Language string
	Region   string
}

// Normalize accepts xx, xx-YY or xx_YY in any case and returns the canonical
// form (lowercase language, uppercase region). Unknown languages and regions
// are rejected.
func Normalize(input string) (Locale, error) {
	s := strings.TrimSpace(input)
	m := localePattern.FindStringSubmatch(s)
	if m == nil {
		return Locale{}, fmt.Errorf("%w %q: expected xx or xx-YY (e.g. es or es-ES)", ErrInvalid, input)
	}
	lang := strings.ToLower(m[1])
	region := strings.ToUpper(m[2])

	if _, err := language.ParseBase(lang); err != nil {
		return Locale{}, fmt.Errorf("%w %q: unknown language %q", ErrInvalid, input, lang)
	}
	if region != "" {
		if _, err := language.ParseRegion(region); err != nil {
			return Locale{}, fmt.Errorf("%w %q: unknown region %q", ErrInvalid, input, region)
		}
	}
	return Locale{Language: lang, Region: region}, nil
}

func (l Locale) String() string {
	if l.Region == "" {
		return l.Language
	}
	return l.Language + "-" + l.Region
}

// Tag returns the BCP 47 tag for l.
func (l Locale) Tag() language.Tag {
	return language.Make(l.String())
}

// DisplayName returns an English name for the locale, e.g. "German".
func (l Locale) DisplayName() string {
	if name := display.English.Tags().Name(l.Tag()); name != "" {
		return name
	}
	return l.String()
}
