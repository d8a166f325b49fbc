// Package folio computes the sequential badge numbers handed out per plantel.
//
// A folio is <prefix><zero-padded number>, e.g. "Primaria0007". The next
// number is always recomputed from the folios already on record; there is no
// persisted counter. Serializing concurrent computations is the repository's
// job (advisory lock per prefix), this package is pure.
package folio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"registro/internal/model"
)

const fallbackPrefix = "GEN"

var tailDigits = regexp.MustCompile(`(\d+)$`)

// Prefix maps a plantel to its human-readable folio prefix. Unknown values
// fall back to a generic prefix; intake validation makes that unreachable in
// practice but the mapping stays total.
func Prefix(plantel string) string {
	switch strings.TrimSpace(plantel) {
	case model.PlantelPrimaria:
		return "Primaria"
	case model.PlantelSecundaria:
		return "Secundaria"
	case model.PlantelPreparatoria:
		return "Prepa"
	default:
		return fallbackPrefix
	}
}

// Next returns the next folio for prefix given the folios already issued.
// Only non-empty folios carrying the prefix are considered, and among those
// only the ones ending in a digit run count toward the maximum; a corrupted
// folio without a numeric tail is skipped, it neither resets nor blocks the
// sequence. Numbers are padded to four digits and simply widen past 9999.
func Next(prefix string, existing []string) string {
	max := 0
	for _, f := range existing {
		if f == "" || !strings.HasPrefix(f, prefix) {
			continue
		}
		m := tailDigits.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, max+1)
}
