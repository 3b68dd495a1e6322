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
// services. This file initializes and holds every external client the
// application needs: Cloud Storage for artifact uploads, Pub/Sub for request
// intake, and the Generative AI client for video generation. It acts as a
// dependency injection container; one ServiceClients value is built at
// startup and passed to whatever needs an external connection.
package cloud

import (
	"context"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// ServiceClients is the central container for all Google Cloud connections
// and the service wrappers built on top of them.
type ServiceClients struct {
	StorageClient   *storage.Client                  // Client for Google Cloud Storage artifact uploads.
	PubsubClient    *pubsub.Client                   // Client for Pub/Sub request intake.
	GenAIClient     *genai.Client                    // Client for Vertex AI generative services.
	VideoModels     map[string]*QuotaAwareVideoModel // Configured video models, keyed by logical name from config.
	PubSubListeners map[string]*PubSubListener       // Active listeners, keyed by logical name from config.
}

// Close releases every client connection. Connections are normally tied to
// the root context, but tests and controlled shutdowns want an explicit
// release.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	// The genai client holds no closable connection in the current SDK.
}

// NewCloudServiceClients builds every client the application needs from the
// loaded configuration. Listeners are created without commands; the workflows
// attach those once the processing chains exist.
//
// Inputs:
//   - ctx: The root context governing client lifecycles.
//   - config: The loaded application configuration.
//
// Outputs:
//   - cloud: The fully initialized container.
//   - err: Non-nil when any client fails to initialize.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}

	subscriptions := make(map[string]*PubSubListener)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
	}

	videoModels := make(map[string]*QuotaAwareVideoModel)
	for vmKey := range config.VideoModels {
		values := config.VideoModels[vmKey]
		videoModels[vmKey] = NewQuotaAwareVideoModel(gc, values.Model, values.RateLimit)
	}

	cloud = &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		VideoModels:     videoModels,
		PubSubListeners: subscriptions,
	}

	return cloud, err
}
