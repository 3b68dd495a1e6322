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

// Package main contains the setup and initialization logic for the
// application's state: a centralized manager holding the configuration, the
// Google Cloud service clients, and the reel pipeline workflow both entry
// points share.
package main

import (
	"context"
	"log"
	"os"

	"github.com/reelforge/reelforge/internal/cloud"
	"github.com/reelforge/reelforge/internal/core/workflow"
)

// DefaultVideoModelKey names the [video_models] config entry used for all
// runs.
const DefaultVideoModelKey = "default"

// StateManager holds the shared dependencies for the application, avoiding
// global sprawl.
type StateManager struct {
	config       *cloud.Config
	cloud        *cloud.ServiceClients
	reelPipeline *workflow.ReelPipelineWorkflow
}

var state = &StateManager{}

// SetupOS points the configuration loader at the configs directory and the
// local runtime overlay.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "local")
	return err
}

// GetConfig provides the singleton application configuration, loading it from
// the TOML files on first use.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up config environment: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// InitState builds the cloud clients and the reel pipeline, then starts the
// Pub/Sub intake listener.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	state.reelPipeline = workflow.NewReelPipelineWorkflow(
		config,
		cloudClients.VideoModels[DefaultVideoModelKey],
		cloudClients.StorageClient,
		DefaultVideoModelKey)

	SetupListeners(config, cloudClients, ctx)
}
