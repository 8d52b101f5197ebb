// Package language resolves ISO 639-2 codes reported by MakeMKV stream
// metadata into display names.
package language

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var displayNames = map[string]string{
	"eng": "English",
	"spa": "Spanish",
	"fra": "French",
	"fre": "French",
	"deu": "German",
	"ger": "German",
	"ita": "Italian",
	"jpn": "Japanese",
	"zho": "Chinese",
	"chi": "Chinese",
	"kor": "Korean",
	"por": "Portuguese",
	"rus": "Russian",
	"nld": "Dutch",
	"dut": "Dutch",
	"swe": "Swedish",
	"nor": "Norwegian",
	"dan": "Danish",
	"fin": "Finnish",
	"pol": "Polish",
	"ces": "Czech",
	"cze": "Czech",
	"hun": "Hungarian",
	"tur": "Turkish",
	"ara": "Arabic",
	"hin": "Hindi",
	"tha": "Thai",
	"heb": "Hebrew",
	"ell": "Greek",
	"gre": "Greek",
	"ukr": "Ukrainian",
}

var titleCaser = cases.Title(language.English)

// Display returns the human-readable name for a 3-letter language code.
// Unknown codes are title-cased rather than dropped so the raw value stays
// visible in stream listings.
func Display(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if name, ok := displayNames[strings.ToLower(code)]; ok {
		return name
	}
	return titleCaser.String(strings.ToLower(code))
}
