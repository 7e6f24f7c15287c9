// Package detection models the documents a Rekognition Video stream processor
// writes to its Kinesis data stream.
//
// See https://docs.aws.amazon.com/rekognition/latest/dg/streaming-video-kinesis-output.html
package detection

import (
	"bytes"
	"encoding/json"
	"github.com/pkg/errors"
)

// StreamProcessorEvent keeps every section raw so a record can be filtered on
// FaceSearchResponse without the rest of the document having to be well formed.
type StreamProcessorEvent struct {
	InputInformation           json.RawMessage `json:"InputInformation"`
	StreamProcessorInformation json.RawMessage `json:"StreamProcessorInformation"`
	FaceSearchResponse         json.RawMessage `json:"FaceSearchResponse"`
}

type InputInformation struct {
	KinesisVideo KinesisVideo `json:"KinesisVideo"`
}

type KinesisVideo struct {
	StreamArn            string   `json:"StreamArn"`
	FragmentNumber       string   `json:"FragmentNumber"`
	ServerTimestamp      *float64 `json:"ServerTimestamp"`
	ProducerTimestamp    *float64 `json:"ProducerTimestamp"`
	FrameOffsetInSeconds float64  `json:"FrameOffsetInSeconds"`
}

type StreamProcessorInformation struct {
	Status string `json:"Status"`
}

type FaceSearchResult struct {
	DetectedFace DetectedFace  `json:"DetectedFace"`
	MatchedFaces []MatchedFace `json:"MatchedFaces"`
}

type DetectedFace struct {
	BoundingBox BoundingBox `json:"BoundingBox"`
	Confidence  float64     `json:"Confidence"`
}

type BoundingBox struct {
	Height float64 `json:"Height"`
	Width  float64 `json:"Width"`
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
}

type MatchedFace struct {
	Similarity float64 `json:"Similarity"`
	Face       Face    `json:"Face"`
}

type Face struct {
	FaceId          string  `json:"FaceId"`
	ExternalImageId string  `json:"ExternalImageId"`
	ImageId         string  `json:"ImageId"`
	Confidence      float64 `json:"Confidence"`
}

func Parse(data []byte) (*StreamProcessorEvent, error) {
	evt := &StreamProcessorEvent{}
	err := json.Unmarshal(data, evt)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return evt, nil
}

// KinesisVideo decodes InputInformation.KinesisVideo. A missing section
// yields the zero value.
func (e *StreamProcessorEvent) KinesisVideo() (KinesisVideo, error) {
	info := InputInformation{}
	if len(bytes.TrimSpace(e.InputInformation)) == 0 {
		return info.KinesisVideo, nil
	}

	err := json.Unmarshal(e.InputInformation, &info)
	if err != nil {
		return KinesisVideo{}, errors.Wrap(err, "decoding InputInformation")
	}
	return info.KinesisVideo, nil
}

func (e *StreamProcessorEvent) Status() string {
	info := StreamProcessorInformation{}
	_ = json.Unmarshal(e.StreamProcessorInformation, &info)
	return info.Status
}

// HasFaceSearchResponse reports whether FaceSearchResponse is present and
// not a JSON falsy value (null, false, 0, "", [] or {}).
func (e *StreamProcessorEvent) HasFaceSearchResponse() bool {
	raw := bytes.TrimSpace(e.FaceSearchResponse)
	if len(raw) == 0 {
		return false
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}

// Matches decodes FaceSearchResponse when it is the usual list of results.
// Any other shape yields nil.
func (e *StreamProcessorEvent) Matches() []FaceSearchResult {
	var results []FaceSearchResult
	if err := json.Unmarshal(e.FaceSearchResponse, &results); err != nil {
		return nil
	}
	return results
}

// MatchedFaceIDs flattens the matched collection face ids across results.
func (e *StreamProcessorEvent) MatchedFaceIDs() []string {
	ids := []string{}
	for _, result := range e.Matches() {
		for _, match := range result.MatchedFaces {
			if len(match.Face.FaceId) > 0 {
				ids = append(ids, match.Face.FaceId)
			}
		}
	}
	return ids
}
