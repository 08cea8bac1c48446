// Package enrichment keeps a read-through cache of single companies fetched
// from an external lookup provider.
package enrichment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCNPJ is returned for identifiers that are not 14 digits with valid check digits
var ErrInvalidCNPJ = errors.New("invalid cnpj")

var (
	firstWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// NormalizeCNPJ strips punctuation and validates the check digits
func NormalizeCNPJ(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '/' || r == '-' || r == ' ':
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidCNPJ, r)
		}
	}
	cnpj := b.String()
	if len(cnpj) != 14 {
		return "", fmt.Errorf("%w: want 14 digits, got %d", ErrInvalidCNPJ, len(cnpj))
	}
	if strings.Count(cnpj, cnpj[:1]) == len(cnpj) {
		return "", fmt.Errorf("%w: repeated digits", ErrInvalidCNPJ)
	}
	if checkDigit(cnpj[:12], firstWeights) != cnpj[12] || checkDigit(cnpj[:13], secondWeights) != cnpj[13] {
		return "", fmt.Errorf("%w: check digits do not match", ErrInvalidCNPJ)
	}
	return cnpj, nil
}

func checkDigit(digits string, weights []int) byte {
	sum := 0
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}

// FormatCNPJ renders a normalized identifier as 12.345.678/0001-95
func FormatCNPJ(cnpj string) string {
	if len(cnpj) != 14 {
		return cnpj
	}
	return cnpj[0:2] + "." + cnpj[2:5] + "." + cnpj[5:8] + "/" + cnpj[8:12] + "-" + cnpj[12:14]
}

// SplitCNPJ returns the base id, branch order and check digits
func SplitCNPJ(cnpj string) (baseID, order, dv string) {
	return cnpj[0:8], cnpj[8:12], cnpj[12:14]
}
