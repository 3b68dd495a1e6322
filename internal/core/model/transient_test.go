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

// Package model_test contains unit tests for the pipeline's data models.
package model_test

import (
	"testing"

	"github.com/reelforge/reelforge/internal/core/model"
	"github.com/stretchr/testify/assert"
)

// TestMergeBeats verifies that merging joins visuals in order and drops
// empty dialogues so the merged dialogue reads as one passage.
func TestMergeBeats(t *testing.T) {
	merged := model.MergeBeats([]*model.ScriptScene{
		{Visual: "A door opens", Dialogue: "Hello."},
		{Visual: "A figure steps in"},
		{Visual: "The lights flicker", Dialogue: "Who's there?"},
	})

	assert.Equal(t, "A door opens A figure steps in The lights flicker", merged.Visual)
	assert.Equal(t, "Hello. Who's there?", merged.Dialogue)
}

// TestMergeBeatsTrimsWhitespace verifies that padded beat text does not leak
// stray spaces into the merged beat.
func TestMergeBeatsTrimsWhitespace(t *testing.T) {
	merged := model.MergeBeats([]*model.ScriptScene{
		{Visual: "  first  "},
		{Visual: "second", Dialogue: "  spoken  "},
	})

	assert.Equal(t, "first second", merged.Visual)
	assert.Equal(t, "spoken", merged.Dialogue)
}

// TestHasBeats covers the nil-receiver and empty-script cases the planner
// relies on.
func TestHasBeats(t *testing.T) {
	var script *model.ScriptData
	assert.False(t, script.HasBeats())
	assert.False(t, (&model.ScriptData{}).HasBeats())
	assert.True(t, (&model.ScriptData{Scenes: []*model.ScriptScene{{Visual: "x"}}}).HasBeats())
}

// TestSceneResultSucceeded verifies the success predicate matches the status
// field.
func TestSceneResultSucceeded(t *testing.T) {
	ok := &model.SceneResult{SceneNumber: 1, Status: model.SceneSucceeded, FilePath: "/tmp/scene_01.mp4"}
	failed := &model.SceneResult{SceneNumber: 2, Status: model.SceneFailed, Err: "boom"}

	assert.True(t, ok.Succeeded())
	assert.False(t, failed.Succeeded())
}

// TestExampleRequestIsValid keeps the canonical example request usable as
// test and documentation input.
func TestExampleRequestIsValid(t *testing.T) {
	request := model.GetExampleRequest()

	assert.NotEmpty(t, request.Prompt)
	assert.Greater(t, request.DurationSeconds, 0)
	assert.True(t, request.Script.HasBeats())
}
