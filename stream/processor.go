package stream

import (
	"context"
	"github.com/aws/aws-lambda-go/events"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/clips"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/detection"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"io"
	"math/rand"
	"sync"
	"time"
)

type SessionURLBuilder interface {
	SessionURL(ctx context.Context, kv detection.KinesisVideo) (*clips.Clip, error)
}

// Response is returned for every batch that completes. Failures are returned
// as errors so the whole batch is retried by the event source mapping.
type Response struct {
	StatusCode int `json:"statusCode"`
}

type Processor struct {
	builder SessionURLBuilder
	log     zerolog.Logger

	mu      sync.Mutex
	entropy io.Reader
}

func NewProcessor(builder SessionURLBuilder, log zerolog.Logger) *Processor {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return &Processor{builder: builder, log: log, entropy: entropy}
}

// Handle walks the batch in order. Records without a face search response are
// skipped; any decoding or service failure aborts the batch.
func (p *Processor) Handle(ctx context.Context, input *events.KinesisEvent) (Response, error) {
	for _, record := range input.Records {
		_, err := p.handleRecord(ctx, record)
		if err != nil {
			return Response{}, err
		}
	}

	return Response{StatusCode: 200}, nil
}

func (p *Processor) handleRecord(ctx context.Context, record events.KinesisEventRecord) (*clips.Clip, error) {
	log := p.log.With().
		Str("event_id", record.EventID).
		Str("sequence_number", record.Kinesis.SequenceNumber).
		Logger()

	evt, err := detection.Parse(record.Kinesis.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing record %s", record.EventID)
	}

	if !evt.HasFaceSearchResponse() {
		log.Debug().Msg("no face search response, skipping")
		return nil, nil
	}

	log = log.With().Str("detection_id", p.newID()).Logger()
	log.Info().RawJSON("event", record.Kinesis.Data).Msg("face search response")

	kv, err := evt.KinesisVideo()
	if err != nil {
		return nil, errors.Wrapf(err, "record %s", record.EventID)
	}

	clip, err := p.builder.SessionURL(ctx, kv)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s", record.EventID)
	}

	log.Info().
		Str("stream_arn", clip.StreamARN).
		Time("start", clip.Window.Start).
		Time("end", clip.Window.End).
		Strs("face_ids", evt.MatchedFaceIDs()).
		Str("url", clip.URL).
		Msg("hls streaming session url")

	return clip, nil
}

func (p *Processor) newID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String()
}
