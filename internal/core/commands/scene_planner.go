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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// scene planner, the first step of the reel pipeline. Video models cap how
// many seconds a single call may produce, so a reel longer than the cap has
// to be built from several scenes. The planner slices the requested duration
// into the fewest scenes that fit under the cap and assigns the caller's
// script beats to those slices.
//
// Planning is pure arithmetic with no I/O, so the core lives in PlanScenes
// as a plain function and the command is a thin adapter around it.
package commands

import (
	"math"

	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// roundMillis rounds a duration in seconds to millisecond precision. Scene
// boundaries are kept at this precision so durations written into prompts
// stay readable and the per-scene values still sum exactly to the total.
func roundMillis(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}

// PlanScenes slices totalSeconds into the minimum number of contiguous scenes
// whose durations each fit under maxSceneSeconds, and distributes the
// script's beats over those scenes.
//
// The slices tile [0, total) exactly: every scene starts where the previous
// one ended and the final scene ends at the requested total. All scenes share
// one duration, rounded to milliseconds, except the last, which absorbs the
// rounding residue (e.g. 32s under a 6s cap plans as five 5.333s scenes plus
// one 5.335s scene). When a long plan's accumulated residue would push the
// final scene past the cap, the shared duration is nudged up a millisecond at
// a time until the final scene fits.
//
// Beat assignment: with at least as many beats as scenes, scene i takes beat
// i and the final scene takes all remaining beats merged into one. With fewer
// beats than scenes, the leading scenes take one beat each and the trailing
// scenes repeat the final beat's visual without its dialogue, so a spoken
// line is never generated twice.
//
// Inputs:
//   - totalSeconds: The requested reel length.
//   - maxSceneSeconds: The video model's per-call duration ceiling.
//   - script: The caller's optional structured script; may be nil.
//
// Outputs:
//   - scenes: The ordered scene descriptors, prompts not yet composed.
//   - err: model.ErrInvalidDuration when either duration input is not positive.
func PlanScenes(totalSeconds int, maxSceneSeconds int, script *model.ScriptData) ([]*model.SceneDescriptor, error) {
	if totalSeconds <= 0 || maxSceneSeconds <= 0 {
		return nil, model.ErrInvalidDuration
	}

	total := float64(totalSeconds)
	sceneCount := int(math.Ceil(total / float64(maxSceneSeconds)))
	perScene := roundMillis(total / float64(sceneCount))
	// Millisecond rounding can shave a hair off the shared duration, and over
	// enough scenes the shaved residue accumulates on the final scene. Nudge
	// the shared duration back up until the final slice fits under the cap; at
	// perScene == cap the final slice is within the cap by construction.
	for roundMillis(total-perScene*float64(sceneCount-1)) > float64(maxSceneSeconds) &&
		perScene < float64(maxSceneSeconds) {
		perScene = roundMillis(perScene + 0.001)
	}

	scenes := make([]*model.SceneDescriptor, 0, sceneCount)
	start := 0.0
	for i := 1; i <= sceneCount; i++ {
		duration := perScene
		if i == sceneCount {
			// The final scene absorbs the rounding residue so the slices sum
			// exactly to the requested total.
			duration = roundMillis(total - start)
		}
		scenes = append(scenes, &model.SceneDescriptor{
			SceneNumber:     i,
			StartTime:       roundMillis(start),
			EndTime:         roundMillis(start + duration),
			DurationSeconds: duration,
		})
		start += duration
	}

	if script.HasBeats() {
		assignBeats(scenes, script.Scenes)
	}

	return scenes, nil
}

// assignBeats maps script beats onto planned scenes per the distribution
// rules described on PlanScenes.
func assignBeats(scenes []*model.SceneDescriptor, beats []*model.ScriptScene) {
	sceneCount := len(scenes)
	if len(beats) >= sceneCount {
		for i := 0; i < sceneCount-1; i++ {
			scenes[i].Beat = beats[i]
		}
		scenes[sceneCount-1].Beat = model.MergeBeats(beats[sceneCount-1:])
		return
	}

	for i, beat := range beats {
		scenes[i].Beat = beat
	}
	final := beats[len(beats)-1]
	for i := len(beats); i < sceneCount; i++ {
		// Visual only: repeating the dialogue would put the same spoken line
		// in multiple clips.
		scenes[i].Beat = &model.ScriptScene{Visual: final.Visual}
	}
}

// ScenePlanner is the command wrapper around PlanScenes. It consumes the
// parsed ReelRequest, publishes it under a named key for later steps, and
// pipes the planned descriptors to the next command.
type ScenePlanner struct {
	cor.BaseCommand
	maxSceneSeconds int
}

// NewScenePlanner builds the planner for a model with the given per-call
// duration ceiling.
func NewScenePlanner(name string, maxSceneSeconds int) *ScenePlanner {
	return &ScenePlanner{BaseCommand: *cor.NewBaseCommand(name), maxSceneSeconds: maxSceneSeconds}
}

// Execute plans the scene slices for the request on the context.
func (s *ScenePlanner) Execute(context cor.Context) {
	request := context.Get(s.GetInputParam()).(*model.ReelRequest)

	scenes, err := PlanScenes(request.DurationSeconds, s.maxSceneSeconds, request.Script)
	if err != nil {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), err)
		return
	}

	trace.SpanFromContext(context.GetContext()).SetAttributes(
		attribute.Int("scene_count", len(scenes)),
		attribute.Int("duration_seconds", request.DurationSeconds),
	)

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetReelRequestParameterName(), request)
	context.Add(s.GetOutputParam(), scenes)
	context.Add(cor.CtxOut, scenes)
}
