package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesisvideo"
	"github.com/aws/aws-sdk-go/service/kinesisvideo/kinesisvideoiface"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/clips"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/endpoints"
	"github.com/iwstkhr/aws-kinesis-video-streams-face-detection-example/stream"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"io"
	"os"
	"strings"
	"time"
)

const serviceName = "face-search-clips"

func main() {
	log := newLogger(os.Stdout, os.Getenv("LOG_LEVEL"))

	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:                 os.Getenv("AWS_PROFILE"),
		SharedConfigState:       session.SharedConfigEnable,
		AssumeRoleTokenProvider: stscreds.StdinTokenProvider,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("creating aws session")
	}

	p := newProcessor(kinesisvideo.New(sess), endpoints.SessionFactory(sess), cfg, log)
	lambda.Start(p.Handle)
}

func newProcessor(kvs kinesisvideoiface.KinesisVideoAPI, factory endpoints.ClientFactory, cfg config, log zerolog.Logger) *stream.Processor {
	cache := endpoints.NewCache(kvs, factory, log)
	builder := clips.NewBuilder(cache, cfg.Clips)
	return stream.NewProcessor(builder, log)
}

type config struct {
	Clips clips.Options
}

func loadConfig(getenv func(string) string) (config, error) {
	opts := clips.DefaultOptions()

	if v := getenv("CLIP_TZ_OFFSET"); len(v) > 0 {
		offset, err := time.ParseDuration(v)
		if err != nil {
			return config{}, errors.Wrap(err, "CLIP_TZ_OFFSET")
		}
		opts.Zone = time.FixedZone("", int(offset/time.Second))
	}

	if v := getenv("CLIP_DURATION"); len(v) > 0 {
		d, err := time.ParseDuration(v)
		if err != nil {
			return config{}, errors.Wrap(err, "CLIP_DURATION")
		}
		if d <= 0 {
			return config{}, errors.Errorf("CLIP_DURATION must be positive, got %s", v)
		}
		opts.Duration = d
	}

	if v := getenv("CLIP_EXPIRES"); len(v) > 0 {
		d, err := time.ParseDuration(v)
		if err != nil {
			return config{}, errors.Wrap(err, "CLIP_EXPIRES")
		}
		// bounds accepted by GetHLSStreamingSessionURL
		if d < 5*time.Minute || d > 12*time.Hour {
			return config{}, errors.Errorf("CLIP_EXPIRES must be between 5m and 12h, got %s", v)
		}
		opts.Expires = d
	}

	return config{Clips: opts}, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
