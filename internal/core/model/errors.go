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
// pipeline. This file defines the pipeline's error taxonomy. Scene-scoped
// errors are captured into SceneResult values and never propagate past the
// generator; the sentinels and types here cover the run-fatal cases the
// orchestrator folds into the PipelineResult.
package model

import (
	"fmt"
	"time"
)

var (
	// ErrInvalidDuration rejects a request whose target duration is not a
	// positive number of seconds. Fatal, surfaced immediately, never retried.
	ErrInvalidDuration = fmt.Errorf("total duration must be a positive number of seconds")

	// ErrNoScenesAvailable means every scene of the run failed, so there is
	// nothing to stitch.
	ErrNoScenesAvailable = fmt.Errorf("no scene clips available to stitch: all scenes failed")

	// ErrStitchToolUnavailable means the concatenation tool is missing from
	// the host. Deliberately distinct from a generic stitch failure: it is a
	// deployment problem with an actionable fix, not a content problem.
	ErrStitchToolUnavailable = fmt.Errorf("ffmpeg not found on host: install ffmpeg and ensure it is on PATH")
)

// SceneTimeoutError marks a scene whose generation did not complete within
// the per-scene wait budget. It fails that scene only, never the run.
type SceneTimeoutError struct {
	SceneNumber int
	Budget      time.Duration
}

func (e *SceneTimeoutError) Error() string {
	return fmt.Sprintf("scene %d timed out after %s waiting for video generation", e.SceneNumber, e.Budget)
}

// StitchError wraps a failure of the concatenation step itself. The scene
// clips survive it; the orchestrator still reports their paths so the caller
// can recover manually.
type StitchError struct {
	Err error
}

func (e *StitchError) Error() string {
	return fmt.Sprintf("failed to stitch scene clips: %v", e.Err)
}

func (e *StitchError) Unwrap() error {
	return e.Err
}
