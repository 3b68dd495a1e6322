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
// pipeline. This file, `transient.go`, holds the in-memory objects that travel
// through one pipeline run: the caller's request and script, the planned
// scene descriptors, and the per-scene generation results. None of these are
// persisted; the run's only durable outputs are the scene clip files and the
// stitched reel, whose locations are reported in the PipelineResult.
package model

import "strings"

// SceneStatus is the terminal state of a single scene generation attempt.
type SceneStatus string

const (
	// SceneSucceeded means the scene clip was generated and written to disk.
	SceneSucceeded SceneStatus = "succeeded"
	// SceneFailed means generation failed after its wait budget; the scene
	// produced no file and is excluded from stitching.
	SceneFailed SceneStatus = "failed"
)

// ScriptScene is one caller-authored story beat: what the viewer should see
// and, optionally, what is said over it. The planner distributes beats across
// its own time-sliced scenes, so the number of beats need not match the number
// of generated scenes.
type ScriptScene struct {
	Visual   string `json:"visual"`             // Description of what is on screen for this beat.
	Dialogue string `json:"dialogue,omitempty"` // Spoken line or voice-over for this beat, if any.
}

// ScriptData is the optional structured script a caller (typically the
// conversational agent layer) supplies alongside the base prompt. When
// present, Scenes is non-empty and steers the per-scene prompts; when absent,
// the composer synthesizes continuation clauses instead.
type ScriptData struct {
	Hook   string         `json:"hook,omitempty"`   // Attention-grabbing opening line.
	Script string         `json:"script,omitempty"` // Full narration text. Informational only; never split automatically.
	Scenes []*ScriptScene `json:"scenes,omitempty"` // Ordered story beats.
}

// HasBeats reports whether the script carries at least one usable beat.
func (s *ScriptData) HasBeats() bool {
	return s != nil && len(s.Scenes) > 0
}

// ReelRequest is the caller input for one pipeline run. It arrives either as
// the JSON body of POST /api/v1/reels or as the payload of a Pub/Sub reel
// request message.
type ReelRequest struct {
	Prompt          string      `json:"prompt" binding:"required"`           // Topic / context description for the whole reel.
	DurationSeconds int         `json:"duration_seconds" binding:"required"` // Target length of the finished reel.
	Script          *ScriptData `json:"script,omitempty"`                    // Optional structured script.
	OutputPath      string      `json:"output_path,omitempty"`               // Optional destination for the stitched file; empty means a path inside the run workspace.
}

// SceneDescriptor is one planned time slice of the reel. Descriptors tile
// [0, total) contiguously: descriptor i ends exactly where descriptor i+1
// starts, and the durations sum to the requested total. DurationSeconds never
// exceeds the video model's per-call ceiling.
type SceneDescriptor struct {
	SceneNumber     int          // 1-based ordinal; defines stitch order.
	StartTime       float64      // Seconds from the start of the reel.
	EndTime         float64      // Seconds from the start of the reel.
	DurationSeconds float64      // EndTime - StartTime.
	Beat            *ScriptScene // The script beat assigned to this slice, if any.
	Prompt          string       // Final self-contained generation prompt, filled in by the continuity composer.
}

// SceneResult is the outcome of one scene generation attempt. Exactly one of
// FilePath (succeeded) or Err (failed) is set.
type SceneResult struct {
	SceneNumber int         `json:"scene_number"`
	Status      SceneStatus `json:"status"`
	FilePath    string      `json:"file_path,omitempty"`
	Err         string      `json:"error,omitempty"`
}

// Succeeded reports whether this scene produced a clip file.
func (r *SceneResult) Succeeded() bool {
	return r.Status == SceneSucceeded
}

// MergeBeats collapses a run of beats into a single beat. Visuals are joined
// in order; empty dialogues are dropped so the merged dialogue reads as one
// passage. Used by the planner when the caller authored more beats than the
// duration allows scenes.
func MergeBeats(beats []*ScriptScene) *ScriptScene {
	visuals := make([]string, 0, len(beats))
	dialogues := make([]string, 0, len(beats))
	for _, b := range beats {
		if v := strings.TrimSpace(b.Visual); v != "" {
			visuals = append(visuals, v)
		}
		if d := strings.TrimSpace(b.Dialogue); d != "" {
			dialogues = append(dialogues, d)
		}
	}
	return &ScriptScene{
		Visual:   strings.Join(visuals, " "),
		Dialogue: strings.Join(dialogues, " "),
	}
}
