package shop

import (
	"strings"

	"nexo_bot/internal/sheets"
)

var (
	colorIndex = buildColorIndex()
	sizeTokens = map[string]bool{
		"XXS": true, "XS": true, "S": true, "M": true, "L": true, "XL": true,
		"XXL": true, "XXXL": true, "2XL": true, "3XL": true, "U": true, "UNICO": true,
	}
)

func buildColorIndex() map[string]string {
	gendered := []string{"negr", "blanc", "roj", "amarill", "morad", "rosad", "dorad", "platead"}
	invariant := map[string][]string{
		"azul":    {"azul", "azules"},
		"verde":   {"verde", "verdes"},
		"gris":    {"gris", "grises"},
		"celeste": {"celeste", "celestes"},
		"rosa":    {"rosa", "rosas"},
		"beige":   {"beige"},
		"marron":  {"marron", "marrones"},
		"bordo":   {"bordo", "bordos"},
		"violeta": {"violeta", "violetas"},
		"naranja": {"naranja", "naranjas"},
		"fucsia":  {"fucsia", "fucsias"},
		"lila":    {"lila", "lilas"},
		"crema":   {"crema"},
		"camel":   {"camel"},
		"nude":    {"nude"},
	}

	idx := make(map[string]string)
	for _, stem := range gendered {
		canonical := stem + "o"
		for _, suffix := range []string{"o", "a", "os", "as"} {
			idx[stem+suffix] = canonical
		}
	}
	for canonical, forms := range invariant {
		for _, f := range forms {
			idx[f] = canonical
		}
	}
	return idx
}

// CanonicalColor maps gender and number variants ("negras") to one form ("negro").
func CanonicalColor(word string) (string, bool) {
	c, ok := colorIndex[sheets.Normalize(word)]
	return c, ok
}

func SameColor(a, b string) bool {
	na, nb := sheets.Normalize(a), sheets.Normalize(b)
	if na == nb {
		return true
	}
	ca, okA := CanonicalColor(na)
	cb, okB := CanonicalColor(nb)
	return okA && okB && ca == cb
}

// SplitProductQuery pulls a color word and a size token out of a free-text
// product reference. Numeric sizes are only recognized after "talle".
func SplitProductQuery(text string) (name, color, size string) {
	words := strings.Fields(text)
	var rest []string
	for i := 0; i < len(words); i++ {
		w := strings.Trim(words[i], ".,;:")
		lower := sheets.Normalize(w)
		switch {
		case lower == "talle" && i+1 < len(words):
			size = strings.ToUpper(strings.Trim(words[i+1], ".,;:"))
			i++
		case color == "" && isColorWord(lower):
			color = w
		case size == "" && sizeTokens[strings.ToUpper(lower)] && len(rest) > 0:
			size = strings.ToUpper(w)
		default:
			rest = append(rest, w)
		}
	}
	return strings.Join(rest, " "), color, size
}

func isColorWord(w string) bool {
	_, ok := colorIndex[w]
	return ok
}
