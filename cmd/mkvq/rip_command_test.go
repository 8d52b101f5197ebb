package main

import (
	"reflect"
	"testing"

	"github.com/wingedonezero/mkvq/internal/makemkv"
)

func TestParseTitleSelection(t *testing.T) {
	got, err := parseTitleSelection("")
	if err != nil || got != nil {
		t.Fatalf("empty flag = (%v, %v), want (nil, nil)", got, err)
	}

	got, err = parseTitleSelection("none")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("none flag = %v, want empty non-nil set", got)
	}

	got, err = parseTitleSelection("2, 0,7")
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]struct{}{0: {}, 2: {}, 7: {}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selection = %v, want %v", got, want)
	}

	if _, err := parseTitleSelection("1,x"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := parseTitleSelection("-1"); err == nil {
		t.Error("expected error for negative id")
	}
}

func TestSummarizeStreams(t *testing.T) {
	// Lang carries the parser's resolved display name, not a raw code.
	streams := []makemkv.StreamInfo{
		{Kind: "Video", Codec: "HEVC", Resolution: "3840x2160"},
		{Kind: "Audio", Codec: "TrueHD", Layout: "7.1", Lang: "English"},
		{Kind: "Subtitles", Codec: "PGS", Lang: "French"},
	}
	got := summarizeStreams(streams)
	want := "HEVC 3840x2160; TrueHD 7.1 English; PGS French"
	if got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}
