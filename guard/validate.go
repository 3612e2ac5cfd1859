package guard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Cameroon mobile numbers, optional country code.
var phonePattern = regexp.MustCompile(`^(\+237|237)?[679]\d{8}$`)

const minCNILength = 6

// ValidateValues checks the format of allowed fields. Unknown keys pass.
func ValidateValues(entityType EntityType, fields map[string]any) error {
	var errs []string

	if v, ok := fields["telephone"]; ok && v != nil {
		s, isString := v.(string)
		if !isString || (strings.TrimSpace(s) != "" && !phonePattern.MatchString(stripSpaces(s))) {
			errs = append(errs, "Format de téléphone invalide (Cameroun attendu)")
		}
	}

	if entityType == EntityClient {
		if v, ok := fields["numeroCni"]; ok && v != nil {
			s, isString := v.(string)
			if !isString || (strings.TrimSpace(s) != "" && len([]rune(strings.TrimSpace(s))) < minCNILength) {
				errs = append(errs, fmt.Sprintf("CNI doit contenir au moins %d caractères", minCNILength))
			}
		}
		if v, ok := fields["latitude"]; ok && v != nil {
			if f, ok := number(v); !ok || f < -90 || f > 90 {
				errs = append(errs, "Latitude invalide")
			}
		}
		if v, ok := fields["longitude"]; ok && v != nil {
			if f, ok := number(v); !ok || f < -180 || f > 180 {
				errs = append(errs, "Longitude invalide")
			}
		}
	}

	if entityType == EntityCollecteur {
		if v, ok := fields["montantMaxRetrait"]; ok && v != nil {
			if f, ok := number(v); !ok || f < 0 {
				errs = append(errs, "Montant maximum de retrait invalide")
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// number accepts the numeric shapes a decoded JSON payload can carry.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ String() string }:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
