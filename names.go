package rebalance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legal forms and share classes that do not help telling companies apart.
var nameNoise = map[string]bool{
	"inc": true, "incorporated": true, "corp": true, "corporation": true, "co": true,
	"company": true, "ltd": true, "limited": true, "plc": true, "sa": true, "ag": true,
	"nv": true, "se": true, "spa": true, "ab": true, "asa": true, "holdings": true,
	"holding": true, "group": true, "the": true, "class": true, "cl": true,
	"adr": true, "ord": true, "shs": true, "reg": true,
}

// foldAccents maps "Nestlé" to "Nestle". Transformers are stateful, so each call gets its own.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeName lowercases name, folds accents, drops punctuation and legal
// form noise. Runs of single letters are joined so "S.A." reads "sa".
func NormalizeName(name string) string {
	if folded, _, err := transform.String(foldAccents(), name); err == nil {
		name = folded
	}
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var words []string
	for i := 0; i < len(fields); i++ {
		w := fields[i]
		if single(w) {
			for i+1 < len(fields) && single(fields[i+1]) {
				w += fields[i+1]
				i++
			}
		}
		words = append(words, w)
	}

	kept := words[:0]
	for _, w := range words {
		if !nameNoise[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func single(s string) bool { return utf8.RuneCountInString(s) == 1 }

// NameSimilarity scores two names between 0 (unrelated) and 1 (identical once normalized).
func NameSimilarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return 1
	}
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(longest)
}
