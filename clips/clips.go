// Package clips requests HLS streaming session URLs covering the archived
// media around a face-search detection.
package clips

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/kinesisvideo"
	"github.com/aws/aws-sdk-go/service/kinesisvideoarchivedmedia"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/detection"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/endpoints"
	"github.com/pkg/errors"
	"math"
	"time"
)

var (
	ErrMissingStreamARN = endpoints.ErrMissingStreamARN

	// ErrInvalidTimestamp covers a missing, NaN, infinite or negative
	// ServerTimestamp. Pre-epoch timestamps are rejected rather than rendered.
	ErrInvalidTimestamp = errors.New("kinesis video server timestamp is missing or invalid")
)

type Options struct {
	Zone     *time.Location
	Duration time.Duration
	Expires  time.Duration
}

func DefaultOptions() Options {
	return Options{
		Zone:     DefaultZone,
		Duration: DefaultDuration,
		Expires:  DefaultExpires,
	}
}

// Clip is a session URL together with the window it plays back.
type Clip struct {
	StreamARN string
	Window    Window
	URL       string
}

type Builder struct {
	resolver endpoints.Resolver
	opts     Options
}

func NewBuilder(resolver endpoints.Resolver, opts Options) *Builder {
	if opts.Zone == nil {
		opts.Zone = DefaultZone
	}
	if opts.Duration == 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Expires == 0 {
		opts.Expires = DefaultExpires
	}
	return &Builder{resolver: resolver, opts: opts}
}

// SessionURL requests an on-demand fragmented MP4 HLS session for the window
// starting at the fragment's server timestamp.
func (b *Builder) SessionURL(ctx context.Context, kv detection.KinesisVideo) (*Clip, error) {
	if len(kv.StreamArn) == 0 {
		return nil, errors.WithStack(ErrMissingStreamARN)
	}

	ts := kv.ServerTimestamp
	if ts == nil || math.IsNaN(*ts) || math.IsInf(*ts, 0) || *ts < 0 {
		return nil, errors.Wrapf(ErrInvalidTimestamp, "stream %s", kv.StreamArn)
	}

	api, err := b.resolver.Resolve(ctx, kinesisvideo.APINameGetHlsStreamingSessionUrl, kv.StreamArn)
	if err != nil {
		return nil, err
	}

	window := NewWindow(*ts, b.opts.Zone, b.opts.Duration)
	resp, err := api.GetHLSStreamingSessionURLWithContext(ctx, &kinesisvideoarchivedmedia.GetHLSStreamingSessionURLInput{
		StreamARN:    aws.String(kv.StreamArn),
		PlaybackMode: aws.String(kinesisvideoarchivedmedia.HLSPlaybackModeOnDemand),
		HLSFragmentSelector: &kinesisvideoarchivedmedia.HLSFragmentSelector{
			FragmentSelectorType: aws.String(kinesisvideoarchivedmedia.HLSFragmentSelectorTypeServerTimestamp),
			TimestampRange: &kinesisvideoarchivedmedia.HLSTimestampRange{
				StartTimestamp: aws.Time(window.Start),
				EndTimestamp:   aws.Time(window.End),
			},
		},
		ContainerFormat: aws.String(kinesisvideoarchivedmedia.ContainerFormatFragmentedMp4),
		Expires:         aws.Int64(int64(b.opts.Expires / time.Second)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting hls streaming session url for %s", kv.StreamArn)
	}

	url := aws.StringValue(resp.HLSStreamingSessionURL)
	if len(url) == 0 {
		return nil, errors.Errorf("empty hls streaming session url for %s", kv.StreamArn)
	}

	return &Clip{StreamARN: kv.StreamArn, Window: window, URL: url}, nil
}
