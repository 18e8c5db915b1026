// Package l10n translates user-facing messages through gettext catalogs.
package l10n

import (
	"fmt"

	"github.com/snapcore/go-gettext"
)

var locale gettext.Catalog

func init() {
	domain := gettext.TextDomain{Name: "slimbuild"}
	locale = domain.UserLocale()
}

// T localizes str and formats it with vars when any are given.
func T(str string, vars ...interface{}) string {
	translation := locale.Gettext(str)
	if len(vars) > 0 {
		translation = fmt.Sprintf(translation, vars...)
	}
	return translation
}

// TN localizes str choosing the plural form for n.
func TN(singular, plural string, n uint32, vars ...interface{}) string {
	translation := locale.NGettext(singular, plural, n)
	if len(vars) > 0 {
		translation = fmt.Sprintf(translation, vars...)
	}
	return translation
}
