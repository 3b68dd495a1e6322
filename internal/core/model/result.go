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

// Package model defines the core data structures for the reel synthesis
// pipeline. This file holds the result object returned to callers. Failures
// are reported inside the result rather than as raised errors so that batch
// and automated callers can branch on `success` the same way the rest of the
// product's API responses behave.
package model

// ReelMetadata summarizes one pipeline run for callers and for honest
// partial-success reporting ("video generated, but scene 3 failed").
type ReelMetadata struct {
	ModelName                string `json:"model_name"`                 // The video model used for all scenes in the run.
	RequestedDurationSeconds int    `json:"requested_duration_seconds"` // The caller's target length.
	SceneCount               int    `json:"scene_count"`                // The number of scenes the planner produced.
	FileSizeBytes            int64  `json:"file_size_bytes,omitempty"`  // Size of the stitched output; zero when the stitch failed.
}

// PipelineResult is the terminal object of a pipeline run.
//
// Invariants:
//   - Success is true only when at least one scene succeeded AND the stitch
//     step produced an output file.
//   - Success false never carries an OutputPath.
//   - ScenePaths and FailedScenes are populated even on stitch failure so the
//     caller can recover the individual clips manually.
type PipelineResult struct {
	Success      bool         `json:"success"`
	OutputPath   string       `json:"output_path,omitempty"`   // The stitched reel file.
	ArtifactURI  string       `json:"artifact_uri,omitempty"`  // GCS location when artifact upload is configured.
	ScenePaths   []string     `json:"scene_paths"`             // Successful clips in stitch order.
	FailedScenes []int        `json:"failed_scenes"`           // Scene numbers that produced no clip.
	Metadata     ReelMetadata `json:"metadata"`
	Error        string       `json:"error,omitempty"` // Human-readable failure description when Success is false.
}
