package capturecmd

import (
	"fmt"
	"strings"
)

// CaptureOptions configures the capture tool invocation.
type CaptureOptions struct {
	Binary     string   // e.g. "streamlink"
	StreamURL  string   // fmt template, "%s" is replaced by the channel
	Quality    string   // e.g. "best"
	DisableAds bool     // --twitch-disable-ads
	ExtraArgs  []string // appended before the positionals
}

// CaptureArgv constructs the capture argv:
//
//	streamlink [--twitch-disable-ads] [extra...] <url> <quality> -o <outputPath>
func CaptureArgv(opts CaptureOptions, channel, outputPath string) []string {
	streamURL := opts.StreamURL
	if strings.Contains(streamURL, "%s") {
		streamURL = fmt.Sprintf(streamURL, channel)
	}
	quality := opts.Quality
	if quality == "" {
		quality = "best"
	}

	return NewBuilder(opts.Binary).
		WithBoolFlag("--twitch-disable-ads", opts.DisableAds).
		WithStrings(opts.ExtraArgs...).
		WithString(streamURL).
		WithString(quality).
		WithStringFlag("-o", outputPath).
		BuildArgv()
}

// TranscodeArgv constructs a stream-copy remux of src into dst. Decode errors
// in the source are ignored rather than aborting, and the muxer is pinned to
// mp4 so dst may carry any extension (e.g. a temp suffix).
//
//	ffmpeg -hide_banner -nostdin -err_detect ignore_err -i <src> -c copy -f mp4 -y <dst>
func TranscodeArgv(binary, src, dst string) []string {
	return NewBuilder(binary).
		WithFlag("-hide_banner").
		WithFlag("-nostdin").
		WithStringFlag("-err_detect", "ignore_err").
		WithStringFlag("-i", src).
		WithStringFlag("-c", "copy").
		WithStringFlag("-f", "mp4").
		WithFlag("-y").
		WithString(dst).
		BuildArgv()
}
