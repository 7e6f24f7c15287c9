package endpoints

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesisvideo"
	"github.com/aws/aws-sdk-go/service/kinesisvideo/kinesisvideoiface"
	"github.com/aws/aws-sdk-go/service/kinesisvideoarchivedmedia"
	"github.com/aws/aws-sdk-go/service/kinesisvideoarchivedmedia/kinesisvideoarchivedmediaiface"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"sync"
	"time"
)

// LookupTimeout bounds a shared GetDataEndpoint call. The call runs detached
// from the caller's cancellation because its result is handed to every caller
// waiting on the same key.
const LookupTimeout = 10 * time.Second

var ErrMissingStreamARN = errors.New("stream arn is required")

// Cache memoizes one archived-media client per (api name, stream arn) for the
// life of the process. Entries are never invalidated: a stream's data endpoint
// is assumed not to move while the process is alive.
type Cache struct {
	api     kinesisvideoiface.KinesisVideoAPI
	factory ClientFactory
	log     zerolog.Logger

	mu      sync.Mutex
	clients map[Key]kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI
	group   singleflight.Group
}

func NewCache(api kinesisvideoiface.KinesisVideoAPI, factory ClientFactory, log zerolog.Logger) *Cache {
	return &Cache{
		api:     api,
		factory: factory,
		log:     log,
		clients: map[Key]kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI{},
	}
}

// SessionFactory creates archived-media clients from sess, overriding only
// the endpoint.
func SessionFactory(sess *session.Session) ClientFactory {
	return func(endpoint string) kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI {
		return kinesisvideoarchivedmedia.New(sess, aws.NewConfig().WithEndpoint(endpoint))
	}
}

func (c *Cache) Resolve(ctx context.Context, apiName, streamARN string) (kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI, error) {
	if len(streamARN) == 0 {
		return nil, errors.WithStack(ErrMissingStreamARN)
	}

	key := NewKey(apiName, streamARN)
	if client, ok := c.lookup(key); ok {
		return client, nil
	}

	// concurrent misses on the same key share a single GetDataEndpoint call
	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if client, ok := c.lookup(key); ok {
			return client, nil
		}

		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LookupTimeout)
		defer cancel()

		endpoint, err := c.dataEndpoint(lctx, key)
		if err != nil {
			return nil, err
		}

		client := c.factory(endpoint)
		c.mu.Lock()
		c.clients[key] = client
		c.mu.Unlock()

		c.log.Info().
			Str("api_name", key.APIName).
			Str("stream_arn", key.StreamARN).
			Str("endpoint", endpoint).
			Msg("resolved data endpoint")
		return client, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI), nil
}

// Len reports how many endpoints are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

func (c *Cache) lookup(key Key) (kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	client, ok := c.clients[key]
	return client, ok
}

func (c *Cache) dataEndpoint(ctx context.Context, key Key) (string, error) {
	resp, err := c.api.GetDataEndpointWithContext(ctx, &kinesisvideo.GetDataEndpointInput{
		APIName:   aws.String(key.APIName),
		StreamARN: aws.String(key.StreamARN),
	})
	if err != nil {
		return "", errors.Wrapf(err, "getting data endpoint for %s", key)
	}

	endpoint := aws.StringValue(resp.DataEndpoint)
	if len(endpoint) == 0 {
		return "", errors.Errorf("empty data endpoint for %s", key)
	}

	return endpoint, nil
}
