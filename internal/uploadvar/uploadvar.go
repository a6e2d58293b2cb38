// Package uploadvar finds upload-typed variable declarations in a GraphQL
// document.
//
// Detection is textual: the document is matched against regular expressions,
// not parsed. Comments, string literals and aliases are not understood, so a
// declaration-shaped fragment anywhere in the document counts.
package uploadvar

import "regexp"

var (
	multipleRe = regexp.MustCompile(`\$([^$]*): ?\[Upload!?\]`)
	singleRe   = regexp.MustCompile(`\$([^$]*): ?Upload`)
)

// Declaration is an upload variable declared by a query.
type Declaration struct {
	// Name is the variable name without the leading '$'.
	Name string
	// Multiple is true for list declarations ([Upload] or [Upload!]).
	Multiple bool
}

// Find returns the upload declaration the request body is built around.
//
// List declarations take precedence over single ones, and only the first
// match of the winning pattern is returned: one upload variable per request.
func Find(query string) (Declaration, bool) {
	if m := multipleRe.FindStringSubmatch(query); m != nil {
		return Declaration{Name: m[1], Multiple: true}, true
	}
	if m := singleRe.FindStringSubmatch(query); m != nil {
		return Declaration{Name: m[1]}, true
	}
	return Declaration{}, false
}

// FindAll returns every upload declaration in document order, list and
// single alike. Callers use it to warn about declarations Find ignores.
func FindAll(query string) []Declaration {
	var out []Declaration
	multi := multipleRe.FindAllStringSubmatchIndex(query, -1)
	single := singleRe.FindAllStringSubmatchIndex(query, -1)

	// merge by offset; a single match starting at a list match's '$' is the
	// same declaration read past its end, so the list match wins
	i, j := 0, 0
	for i < len(multi) || j < len(single) {
		if j >= len(single) || (i < len(multi) && multi[i][0] <= single[j][0]) {
			if j < len(single) && single[j][0] == multi[i][0] {
				j++
			}
			out = append(out, Declaration{Name: query[multi[i][2]:multi[i][3]], Multiple: true})
			i++
			continue
		}
		out = append(out, Declaration{Name: query[single[j][2]:single[j][3]]})
		j++
	}
	return out
}
