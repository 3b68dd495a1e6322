// Copyright 2025 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with Google Cloud
// services. This file wraps the Generative AI video surface behind a small
// submit/poll interface. Video generation is a long-running operation: a
// submission returns an operation handle, and the caller polls until the
// operation reports done. The wrapper adds rate limiting on submission so a
// burst of scenes cannot blow through the model's quota, and it keeps the
// SDK's operation handles internal so callers only ever see operation names.
//
// Structs:
//   - VideoOperationStatus: A point-in-time snapshot of one operation.
//   - QuotaAwareVideoModel: The rate-limited production implementation backed
//     by Vertex AI.
package cloud

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Video operation states as reported by Poll.
const (
	VideoOperationPending   = "pending"
	VideoOperationSucceeded = "succeeded"
	VideoOperationFailed    = "failed"
)

// VideoOperationStatus is a snapshot of a video generation operation. State
// is one of the VideoOperation* constants. VideoBytes is populated only when
// State is succeeded; FailureReason only when State is failed.
type VideoOperationStatus struct {
	State         string
	VideoBytes    []byte
	FailureReason string
}

// VideoGenerationModel is the submit/poll contract the scene generator works
// against. The production implementation talks to Vertex AI; tests substitute
// a scriptable fake. Submit returns an opaque operation name that subsequent
// Poll calls resolve.
type VideoGenerationModel interface {
	Submit(ctx context.Context, prompt string, durationSeconds float64) (opName string, err error)
	Poll(ctx context.Context, opName string) (*VideoOperationStatus, error)
	ModelName() string
}

// QuotaAwareVideoModel is the Vertex AI implementation of
// VideoGenerationModel. It decorates the genai client with a rate limiter on
// the submission path and tracks in-flight operation handles, since the SDK
// refreshes an operation from its handle rather than its name.
type QuotaAwareVideoModel struct {
	client    *genai.Client
	modelName string
	limiter   *rate.Limiter

	mu         sync.Mutex
	operations map[string]*genai.GenerateVideosOperation
}

// NewQuotaAwareVideoModel wraps the given client and model identifier with a
// limiter allowing a burst of requestsPerSecond submissions, replenished at
// one token per second.
func NewQuotaAwareVideoModel(client *genai.Client, modelName string, requestsPerSecond int) *QuotaAwareVideoModel {
	return &QuotaAwareVideoModel{
		client:     client,
		modelName:  modelName,
		limiter:    rate.NewLimiter(rate.Every(time.Second), requestsPerSecond),
		operations: make(map[string]*genai.GenerateVideosOperation),
	}
}

// ModelName returns the configured model identifier.
func (q *QuotaAwareVideoModel) ModelName() string {
	return q.modelName
}

// Submit starts a video generation operation for the given prompt. The call
// blocks on the rate limiter, so a worker pool submitting many scenes at once
// is naturally spread out. The requested duration is rounded up to whole
// seconds because the model API takes integral durations.
//
// Outputs:
//   - opName: The server-assigned operation name to poll with.
//   - err: Non-nil when the limiter wait is canceled or the submission fails.
func (q *QuotaAwareVideoModel) Submit(ctx context.Context, prompt string, durationSeconds float64) (string, error) {
	if err := q.limiter.Wait(ctx); err != nil {
		return "", err
	}

	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(int32(math.Ceil(durationSeconds))),
	}
	op, err := q.client.Models.GenerateVideos(ctx, q.modelName, prompt, nil, cfg)
	if err != nil {
		return "", fmt.Errorf("video generation submit failed: %w", err)
	}

	q.mu.Lock()
	q.operations[op.Name] = op
	q.mu.Unlock()

	return op.Name, nil
}

// Poll refreshes the named operation and reports its current state. A pending
// status means the caller should poll again after its configured interval.
// On a terminal state the handle is dropped from the in-flight map.
//
// Outputs:
//   - status: The operation snapshot; video bytes are fetched eagerly on
//     success so the caller never touches SDK types.
//   - err: Non-nil on an unknown operation name or a transport failure.
func (q *QuotaAwareVideoModel) Poll(ctx context.Context, opName string) (*VideoOperationStatus, error) {
	q.mu.Lock()
	op, ok := q.operations[opName]
	q.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown video operation: %s", opName)
	}

	refreshed, err := q.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, fmt.Errorf("video operation poll failed: %w", err)
	}

	q.mu.Lock()
	q.operations[opName] = refreshed
	q.mu.Unlock()

	if !refreshed.Done {
		return &VideoOperationStatus{State: VideoOperationPending}, nil
	}

	q.mu.Lock()
	delete(q.operations, opName)
	q.mu.Unlock()

	if len(refreshed.Error) > 0 {
		return &VideoOperationStatus{
			State:         VideoOperationFailed,
			FailureReason: fmt.Sprint(refreshed.Error),
		}, nil
	}

	if refreshed.Response == nil || len(refreshed.Response.GeneratedVideos) == 0 || refreshed.Response.GeneratedVideos[0].Video == nil {
		return &VideoOperationStatus{
			State:         VideoOperationFailed,
			FailureReason: "no video generated in response",
		}, nil
	}

	video := refreshed.Response.GeneratedVideos[0].Video
	if len(video.VideoBytes) > 0 {
		return &VideoOperationStatus{State: VideoOperationSucceeded, VideoBytes: video.VideoBytes}, nil
	}

	// The model stored the result server-side; pull the bytes down.
	data, err := q.client.Files.Download(ctx, video, nil)
	if err != nil {
		return nil, fmt.Errorf("video download failed: %w", err)
	}
	return &VideoOperationStatus{State: VideoOperationSucceeded, VideoBytes: data}, nil
}
