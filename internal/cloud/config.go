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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, along with the Google Cloud client wiring that the
// pipeline depends on. Configuration is explicit and passed into the
// orchestrator rather than read from ambient state, which keeps runs
// deterministic and lets tests execute in parallel with their own configs.
//
// Structs:
//   - VideoModel: Configuration for one text-to-video model.
//   - Storage: Artifact bucket configuration.
//   - PromptTemplates: Prompt text overrides for scene composition.
//   - TopicSubscription: Configuration for a Pub/Sub subscription.
//   - Config: The top-level aggregate loaded from TOML.
package cloud

// VideoModel configures one named text-to-video generation model and the
// polling policy used against it. MaxSceneSeconds is the model's hard
// per-call duration ceiling; the planner never produces a scene longer than
// this.
type VideoModel struct {
	Model               string `toml:"model"`                 // The model identifier (e.g., "veo-3.1-generate-preview").
	MaxSceneSeconds     int    `toml:"max_scene_seconds"`     // Per-call generation ceiling in seconds.
	PollIntervalSeconds int    `toml:"poll_interval_seconds"` // Sleep between operation polls.
	SceneTimeoutSeconds int    `toml:"scene_timeout_seconds"` // Per-scene wait budget before the scene is failed.
	RateLimit           int    `toml:"rate_limit"`            // Submission burst allowance per second.
}

// Storage configures where finished reels are uploaded. An empty
// ArtifactBucket disables the upload step entirely.
type Storage struct {
	ArtifactBucket string `toml:"artifact_bucket"`
}

// PromptTemplates holds optional overrides for the continuity composer's
// prompt text. Empty values fall back to the built-in defaults.
type PromptTemplates struct {
	Scene string `toml:"scene"` // Go text/template for the full per-scene prompt.
	Style string `toml:"style"` // The fixed style clause carried verbatim across all scenes of a run.
}

// TopicSubscription configures a single Pub/Sub subscription.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The subscription ID.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Ack deadline guidance for the handler.
}

// Config is the root configuration aggregate, loaded from a base TOML file
// plus an environment-specific override.
type Config struct {
	Application struct {
		Name            string `toml:"name"`              // Service name, attached to telemetry.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID.
		GoogleLocation  string `toml:"location"`          // The Vertex AI location.
		ThreadPoolSize  int    `toml:"thread_pool_size"`  // Concurrency bound for scene generation workers.
		WorkspaceRoot   string `toml:"workspace_root"`    // Root for per-run workspaces; empty means the OS temp dir.
		FfmpegPath      string `toml:"ffmpeg_path"`       // Path to the ffmpeg executable; empty means "ffmpeg" on PATH.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`
	VideoModels        map[string]VideoModel        `toml:"video_models"`
}

// NewConfig returns a Config with its maps initialized so the TOML decoder
// can populate them without nil checks.
func NewConfig() *Config {
	return &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		VideoModels:        make(map[string]VideoModel),
	}
}
