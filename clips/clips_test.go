package clips

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kinesisvideoarchivedmedia"
	"github.com/aws/aws-sdk-go/service/kinesisvideoarchivedmedia/kinesisvideoarchivedmediaiface"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/detection"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/endpoints"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"math"
	"testing"
	"time"
)

const streamARN = "arn:aws:kinesisvideo:ap-northeast-1:123456789012:stream/x/1"

type fakeArchivedMedia struct {
	kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI
	inputs []*kinesisvideoarchivedmedia.GetHLSStreamingSessionURLInput
	url    string
	err    error
}

func (f *fakeArchivedMedia) GetHLSStreamingSessionURLWithContext(ctx aws.Context, input *kinesisvideoarchivedmedia.GetHLSStreamingSessionURLInput, opts ...request.Option) (*kinesisvideoarchivedmedia.GetHLSStreamingSessionURLOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &kinesisvideoarchivedmedia.GetHLSStreamingSessionURLOutput{HLSStreamingSessionURL: aws.String(f.url)}, nil
}

type fakeResolver struct {
	api      *fakeArchivedMedia
	apiNames []string
	arns     []string
	err      error
}

func (f *fakeResolver) Resolve(ctx context.Context, apiName, streamARN string) (kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI, error) {
	f.apiNames = append(f.apiNames, apiName)
	f.arns = append(f.arns, streamARN)
	if f.err != nil {
		return nil, f.err
	}
	return f.api, nil
}

func newFakes() (*fakeResolver, *fakeArchivedMedia) {
	api := &fakeArchivedMedia{url: "https://b-1234.kinesisvideo.example/hls/v1/getHLSMasterPlaylist.m3u8?SessionToken=abc"}
	return &fakeResolver{api: api}, api
}

func TestNewWindow(t *testing.T) {
	w := NewWindow(1700000000, DefaultZone, DefaultDuration)

	require.True(t, w.Start.Equal(time.Unix(1700000000, 0)))
	require.Equal(t, time.Minute, w.End.Sub(w.Start))
	require.Equal(t, "2023-11-15T07:13:20+09:00", w.Start.Format(time.RFC3339))
	require.Equal(t, "2023-11-15T07:14:20+09:00", w.End.Format(time.RFC3339))

	_, offset := w.Start.Zone()
	require.Equal(t, 9*60*60, offset)
}

func TestNewWindowFractionalSeconds(t *testing.T) {
	w := NewWindow(1700000000.5, DefaultZone, DefaultDuration)
	require.True(t, w.Start.Equal(time.Unix(1700000000, int64(500*time.Millisecond))))
}

func TestSessionURL(t *testing.T) {
	resolver, api := newFakes()
	b := NewBuilder(resolver, DefaultOptions())

	clip, err := b.SessionURL(context.Background(), detection.KinesisVideo{
		StreamArn:       streamARN,
		ServerTimestamp: aws.Float64(1700000000),
	})
	require.NoError(t, err)
	require.Equal(t, api.url, clip.URL)
	require.Equal(t, streamARN, clip.StreamARN)

	require.Equal(t, []string{"GET_HLS_STREAMING_SESSION_URL"}, resolver.apiNames)
	require.Equal(t, []string{streamARN}, resolver.arns)

	require.Len(t, api.inputs, 1)
	input := api.inputs[0]
	require.Equal(t, streamARN, *input.StreamARN)
	require.Equal(t, "ON_DEMAND", *input.PlaybackMode)
	require.Equal(t, "FRAGMENTED_MP4", *input.ContainerFormat)
	require.Equal(t, int64(300), *input.Expires)
	require.Equal(t, "SERVER_TIMESTAMP", *input.HLSFragmentSelector.FragmentSelectorType)

	tr := input.HLSFragmentSelector.TimestampRange
	require.True(t, tr.StartTimestamp.Equal(time.Unix(1700000000, 0)))
	require.Equal(t, 60*time.Second, tr.EndTimestamp.Sub(*tr.StartTimestamp))
	require.Equal(t, DefaultZone, tr.StartTimestamp.Location())
	require.NoError(t, input.Validate())
}

func TestSessionURLCustomOptions(t *testing.T) {
	resolver, api := newFakes()
	b := NewBuilder(resolver, Options{Duration: 30 * time.Second, Expires: 10 * time.Minute})

	clip, err := b.SessionURL(context.Background(), detection.KinesisVideo{
		StreamArn:       streamARN,
		ServerTimestamp: aws.Float64(1700000000),
	})
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, clip.Window.End.Sub(clip.Window.Start))
	require.Equal(t, int64(600), *api.inputs[0].Expires)
}

func TestSessionURLMissingFields(t *testing.T) {
	resolver, api := newFakes()
	b := NewBuilder(resolver, DefaultOptions())
	ctx := context.Background()

	_, err := b.SessionURL(ctx, detection.KinesisVideo{ServerTimestamp: aws.Float64(1700000000)})
	require.True(t, errors.Is(err, ErrMissingStreamARN))
	require.True(t, errors.Is(err, endpoints.ErrMissingStreamARN))

	_, err = b.SessionURL(ctx, detection.KinesisVideo{StreamArn: streamARN})
	require.True(t, errors.Is(err, ErrInvalidTimestamp))

	_, err = b.SessionURL(ctx, detection.KinesisVideo{StreamArn: streamARN, ServerTimestamp: aws.Float64(math.NaN())})
	require.True(t, errors.Is(err, ErrInvalidTimestamp))

	_, err = b.SessionURL(ctx, detection.KinesisVideo{StreamArn: streamARN, ServerTimestamp: aws.Float64(-1)})
	require.True(t, errors.Is(err, ErrInvalidTimestamp))

	require.Empty(t, resolver.arns)
	require.Empty(t, api.inputs)
}

func TestSessionURLServiceErrors(t *testing.T) {
	resolver, api := newFakes()
	b := NewBuilder(resolver, DefaultOptions())
	kv := detection.KinesisVideo{StreamArn: streamARN, ServerTimestamp: aws.Float64(1700000000)}

	api.err = errors.New("ResourceNotFoundException")
	_, err := b.SessionURL(context.Background(), kv)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ResourceNotFoundException")

	api.err = nil
	api.url = ""
	_, err = b.SessionURL(context.Background(), kv)
	require.Error(t, err)

	resolver.err = errors.New("AccessDeniedException")
	_, err = b.SessionURL(context.Background(), kv)
	require.Contains(t, err.Error(), "AccessDeniedException")
}
