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

// Package main contains the logic for starting the Pub/Sub intake listener,
// the message-driven twin of the POST /api/v1/reels endpoint.
package main

import (
	"context"

	"github.com/reelforge/reelforge/internal/cloud"
)

// ReelRequestsListenerKey names the [topic_subscriptions] config entry for
// reel request intake.
const ReelRequestsListenerKey = "reel_requests"

// SetupListeners attaches the reel pipeline to the request subscription and
// starts listening. A deployment without the subscription configured simply
// runs HTTP-only.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners[ReelRequestsListenerKey]
	if !ok {
		return
	}
	listener.SetCommand(state.reelPipeline)
	listener.Listen(ctx)
}
