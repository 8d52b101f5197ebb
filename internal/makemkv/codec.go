package makemkv

import (
	"regexp"
	"strings"
	"sync"
)

// Codec keyword lists, highest priority first. Resolution is first-match-wins
// over the concatenated codec description fields, so HEVC outranks AVC even
// when a blob mentions both.
var codecKeywords = map[string][]codecRule{
	"Video": {
		{"HEVC", []string{"HEVC", "H.265", "H265"}},
		{"H.264/AVC", []string{"AVC", "H.264", "H264"}},
		{"VC-1", []string{"VC-1", "VC1"}},
		{"MPEG-2", []string{"MPEG-2", "Mpeg2", "MPEG2"}},
		{"VP9", []string{"VP9"}},
		{"VP8", []string{"VP8"}},
		{"AV1", []string{"AV1"}},
	},
	"Audio": {
		{"Dolby TrueHD", []string{"TrueHD"}},
		{"Dolby Digital Plus", []string{"E-AC3", "EAC3", "DD+", "Dolby Digital Plus"}},
		{"Dolby Digital", []string{"AC3", "AC-3", "Dolby Digital", "DD "}},
		{"DTS-HD MA", []string{"DTS-HD MA", "DTS HD MA"}},
		{"DTS-HD", []string{"DTS-HD", "DTS HD"}},
		{"DTS:X", []string{"DTS:X", "DTSX"}},
		{"DTS", []string{"DTS"}},
		{"PCM", []string{"LPCM", "PCM"}},
		{"FLAC", []string{"FLAC"}},
		{"AAC", []string{"AAC"}},
		{"Opus", []string{"Opus"}},
	},
	"Subtitles": {
		{"PGS", []string{"PGS"}},
		{"VobSub", []string{"VobSub"}},
		{"SRT", []string{"SRT"}},
	},
}

type codecRule struct {
	display  string
	keywords []string
}

var (
	keywordPatterns   = map[string]*regexp.Regexp{}
	keywordPatternsMu sync.Mutex
)

func keywordPattern(word string) *regexp.Regexp {
	keywordPatternsMu.Lock()
	defer keywordPatternsMu.Unlock()
	if pattern, ok := keywordPatterns[word]; ok {
		return pattern
	}
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	keywordPatterns[word] = pattern
	return pattern
}

func hasKeyword(blob string, words []string) bool {
	for _, word := range words {
		if keywordPattern(word).MatchString(blob) {
			return true
		}
	}
	return false
}

// ResolveCodec maps a raw codec description blob onto a display name using
// the kind's priority list. No match falls back to the bare kind name.
func ResolveCodec(kind, blob string) string {
	rules, ok := codecKeywords[kind]
	if !ok {
		return kind
	}
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return kind
	}
	for _, rule := range rules {
		if hasKeyword(blob, rule.keywords) {
			return rule.display
		}
	}
	return kind
}
