package endpoints

import (
	"context"
	"github.com/aws/aws-sdk-go/service/kinesisvideoarchivedmedia/kinesisvideoarchivedmediaiface"
	"strings"
)

// Resolver returns an archived-media client bound to the data endpoint that
// serves apiName for the given stream.
type Resolver interface {
	Resolve(ctx context.Context, apiName, streamARN string) (kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI, error)
}

// ClientFactory builds an archived-media client for a data endpoint URL.
type ClientFactory func(endpoint string) kinesisvideoarchivedmediaiface.KinesisVideoArchivedMediaAPI

// Key identifies one cached endpoint. APIName is always upper case.
type Key struct {
	APIName   string
	StreamARN string
}

func NewKey(apiName, streamARN string) Key {
	return Key{APIName: strings.ToUpper(apiName), StreamARN: streamARN}
}

func (k Key) String() string {
	return k.APIName + " " + k.StreamARN
}
