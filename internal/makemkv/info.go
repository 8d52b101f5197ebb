package makemkv

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wingedonezero/mkvq/internal/language"
)

// TINFO attribute codes this parser understands. Codes outside this set are
// accumulated but ignored when building TitleInfo.
const (
	tinfoName       = 2
	tinfoChapters   = 9
	tinfoDuration   = 10
	tinfoSize       = 11
	tinfoAngle      = 15
	tinfoSource     = 16
	tinfoDateTime   = 23
	tinfoOriginalID = 24
	tinfoSegCount   = 25
	tinfoSegMap     = 26
)

// SINFO attribute codes.
const (
	sinfoKind       = 1
	sinfoLang       = 3
	sinfoCodecA     = 6
	sinfoCodecB     = 7
	sinfoCodecC     = 8
	sinfoSampleRate = 17
	sinfoResolution = 19
	sinfoAspect     = 20
	sinfoFrameRate  = 21
	sinfoChannels   = 22
	sinfoLayout     = 40
)

// StreamInfo describes one video/audio/subtitle track within a title.
type StreamInfo struct {
	Kind  string
	Index int
	Lang  string
	Codec string

	// Video attributes.
	Resolution  string
	AspectRatio string
	FrameRate   string

	// Audio attributes.
	Channels   string
	Layout     string
	SampleRate string

	// Raw keeps the long codec description for diagnostics.
	Raw string
}

// TitleInfo describes one selectable title on the disc.
type TitleInfo struct {
	Name       string
	Duration   string
	Size       string
	Chapters   int
	Source     string
	AngleInfo  string
	DateTime   string
	OriginalID string
	Segments   string
	SegmentMap string
	Streams    []StreamInfo
}

// Info is the parsed result of one info-mode invocation.
type Info struct {
	Label      string
	TitleCount int
	Titles     map[int]TitleInfo
}

// ParseInfo turns the full captured text of an info invocation into typed
// disc metadata. Malformed lines are skipped; wholly unparsable output yields
// an empty title map, which callers treat as "no metadata available".
func ParseInfo(output string) Info {
	tinfo := map[int]map[int]string{}
	sinfo := map[int]map[int]map[int]string{}
	info := Info{Titles: map[int]TitleInfo{}}

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "TINFO:"):
			title, code, value, ok := splitInfoLine(strings.TrimPrefix(line, "TINFO:"), 4)
			if !ok {
				continue
			}
			codes, found := tinfo[title]
			if !found {
				codes = map[int]string{}
				tinfo[title] = codes
			}
			codes[code] = value
		case strings.HasPrefix(line, "SINFO:"):
			payload := strings.TrimPrefix(line, "SINFO:")
			parts := strings.SplitN(payload, ",", 5)
			if len(parts) < 5 {
				continue
			}
			title, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil || title < 0 {
				continue
			}
			stream, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil || stream < 0 {
				continue
			}
			code, err := strconv.Atoi(strings.TrimSpace(parts[2]))
			if err != nil {
				continue
			}
			streams, found := sinfo[title]
			if !found {
				streams = map[int]map[int]string{}
				sinfo[title] = streams
			}
			codes, found := streams[stream]
			if !found {
				codes = map[int]string{}
				streams[stream] = codes
			}
			codes[code] = stripQuotes(parts[4])
		default:
			if event, ok := Classify(line).(LabelEvent); ok && info.Label == "" {
				info.Label = event.Label
			}
		}
	}

	for title, codes := range tinfo {
		info.Titles[title] = buildTitle(codes)
	}
	for title, streams := range sinfo {
		entry := info.Titles[title]
		entry.Streams = buildStreams(streams)
		info.Titles[title] = entry
	}
	info.TitleCount = len(tinfo)
	return info
}

// splitInfoLine splits "title,code,flags,value" payloads. arity is the total
// field count; the last field keeps embedded commas and loses its quotes.
func splitInfoLine(payload string, arity int) (title, code int, value string, ok bool) {
	parts := strings.SplitN(payload, ",", arity)
	if len(parts) < arity {
		return 0, 0, "", false
	}
	title, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || title < 0 {
		return 0, 0, "", false
	}
	code, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, "", false
	}
	return title, code, stripQuotes(parts[arity-1]), true
}

func stripQuotes(value string) string {
	return strings.Trim(strings.TrimSpace(value), `"`)
}

var leadingDigits = regexp.MustCompile(`^\d+`)

func buildTitle(codes map[int]string) TitleInfo {
	title := TitleInfo{
		Name:       codes[tinfoName],
		Duration:   codes[tinfoDuration],
		Size:       codes[tinfoSize],
		Source:     codes[tinfoSource],
		AngleInfo:  codes[tinfoAngle],
		DateTime:   codes[tinfoDateTime],
		OriginalID: codes[tinfoOriginalID],
		Segments:   codes[tinfoSegCount],
		SegmentMap: codes[tinfoSegMap],
	}
	// The chapter field sometimes carries trailing text; a leading digit
	// scan keeps the count and defaults to zero.
	if match := leadingDigits.FindString(codes[tinfoChapters]); match != "" {
		if n, err := strconv.Atoi(match); err == nil {
			title.Chapters = n
		}
	}
	return title
}

func buildStreams(streams map[int]map[int]string) []StreamInfo {
	indices := make([]int, 0, len(streams))
	for index := range streams {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	result := make([]StreamInfo, 0, len(indices))
	for _, index := range indices {
		codes := streams[index]
		kind := codes[sinfoKind]
		blob := codes[sinfoCodecA] + " " + codes[sinfoCodecB] + " " + codes[sinfoCodecC]
		stream := StreamInfo{
			Kind:        kind,
			Index:       index,
			Codec:       ResolveCodec(kind, blob),
			Resolution:  codes[sinfoResolution],
			AspectRatio: codes[sinfoAspect],
			FrameRate:   codes[sinfoFrameRate],
			Channels:    codes[sinfoChannels],
			SampleRate:  codes[sinfoSampleRate],
			Raw:         codes[sinfoCodecC],
		}
		if lang := codes[sinfoLang]; lang != "" {
			stream.Lang = language.Display(lang)
		}
		if layout := codes[sinfoLayout]; layout != "" {
			stream.Layout = layout
		} else if stream.Channels != "" {
			stream.Layout = ChannelLayout(stream.Channels)
		}
		result = append(result, stream)
	}
	return result
}

// ChannelLayout renders an audio channel count as its conventional layout
// label. Unmapped counts render as "<n> Channels".
func ChannelLayout(count string) string {
	count = strings.TrimSpace(count)
	n, err := strconv.Atoi(count)
	if err != nil {
		return ""
	}
	switch n {
	case 1:
		return "1.0 (Mono)"
	case 2:
		return "2.0 (Stereo)"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return strconv.Itoa(n) + " Channels"
	}
}

// DurationSeconds parses H:M:S or M:S colon-separated durations. Any other
// shape yields ok=false, which callers treat as "unknown length", not zero.
func DurationSeconds(value string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	switch len(parts) {
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		s, err := strconv.Atoi(parts[2])
		if err != nil {
			return 0, false
		}
		return h*3600 + m*60 + s, true
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		s, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		return m*60 + s, true
	default:
		return 0, false
	}
}
