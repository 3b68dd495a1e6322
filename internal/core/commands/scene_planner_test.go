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

// Package commands_test contains unit tests for the pipeline commands. This
// file covers the scene planner: slice arithmetic, the tiling invariant, and
// beat distribution.
package commands_test

import (
	goctx "context"
	"testing"

	"github.com/reelforge/reelforge/internal/core/commands"
	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertTiling checks the structural invariant every plan must satisfy:
// scenes are contiguous, 1-indexed in order, each under the cap, and their
// durations sum to the requested total.
func assertTiling(t *testing.T, scenes []*model.SceneDescriptor, totalSeconds int, maxSceneSeconds int) {
	t.Helper()

	cursor := 0.0
	sum := 0.0
	for i, s := range scenes {
		assert.Equal(t, i+1, s.SceneNumber)
		assert.InDelta(t, cursor, s.StartTime, 0.0001)
		assert.InDelta(t, s.StartTime+s.DurationSeconds, s.EndTime, 0.0001)
		assert.LessOrEqual(t, s.DurationSeconds, float64(maxSceneSeconds)+0.0001)
		cursor = s.EndTime
		sum += s.DurationSeconds
	}
	assert.InDelta(t, float64(totalSeconds), sum, 0.0001)
	assert.InDelta(t, float64(totalSeconds), scenes[len(scenes)-1].EndTime, 0.0001)
}

// TestPlanScenesEvenSplit verifies the 30s/6s case: five scenes of exactly
// six seconds.
func TestPlanScenesEvenSplit(t *testing.T) {
	scenes, err := commands.PlanScenes(30, 6, nil)
	require.NoError(t, err)
	require.Len(t, scenes, 5)

	for _, s := range scenes {
		assert.InDelta(t, 6.0, s.DurationSeconds, 0.0001)
	}
	assertTiling(t, scenes, 30, 6)
}

// TestPlanScenesResidueOnFinalScene verifies the 32s/6s case: the rounding
// residue lands on the final scene (five at 5.333s, one at 5.335s).
func TestPlanScenesResidueOnFinalScene(t *testing.T) {
	scenes, err := commands.PlanScenes(32, 6, nil)
	require.NoError(t, err)
	require.Len(t, scenes, 6)

	for _, s := range scenes[:5] {
		assert.InDelta(t, 5.333, s.DurationSeconds, 0.0001)
	}
	assert.InDelta(t, 5.335, scenes[5].DurationSeconds, 0.0001)
	assertTiling(t, scenes, 32, 6)
}

// TestPlanScenesManyScenesStayUnderCap verifies the accumulated rounding
// residue of a long plan cannot push the final scene past the cap: 284s under
// a 5s cap would otherwise end on a 5.008s scene.
func TestPlanScenesManyScenesStayUnderCap(t *testing.T) {
	scenes, err := commands.PlanScenes(284, 5, nil)
	require.NoError(t, err)
	require.Len(t, scenes, 57)

	for _, s := range scenes[:56] {
		assert.InDelta(t, 4.983, s.DurationSeconds, 0.0001)
	}
	assert.InDelta(t, 4.952, scenes[56].DurationSeconds, 0.0001)
	assertTiling(t, scenes, 284, 5)
}

// TestPlanScenesSingleScene verifies a duration at or under the cap plans as
// one scene.
func TestPlanScenesSingleScene(t *testing.T) {
	scenes, err := commands.PlanScenes(6, 6, nil)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.InDelta(t, 6.0, scenes[0].DurationSeconds, 0.0001)
	assertTiling(t, scenes, 6, 6)
}

// TestPlanScenesInvalidDuration verifies non-positive inputs are rejected
// with the dedicated sentinel.
func TestPlanScenesInvalidDuration(t *testing.T) {
	_, err := commands.PlanScenes(0, 6, nil)
	assert.ErrorIs(t, err, model.ErrInvalidDuration)

	_, err = commands.PlanScenes(-5, 6, nil)
	assert.ErrorIs(t, err, model.ErrInvalidDuration)

	_, err = commands.PlanScenes(30, 0, nil)
	assert.ErrorIs(t, err, model.ErrInvalidDuration)
}

// TestPlanScenesBeatsMergedIntoFinalScene verifies that surplus beats are
// merged into the final scene rather than dropped.
func TestPlanScenesBeatsMergedIntoFinalScene(t *testing.T) {
	script := &model.ScriptData{Scenes: []*model.ScriptScene{
		{Visual: "one", Dialogue: "first line"},
		{Visual: "two"},
		{Visual: "three", Dialogue: "last line"},
	}}

	// 12s under a 6s cap plans two scenes for three beats.
	scenes, err := commands.PlanScenes(12, 6, script)
	require.NoError(t, err)
	require.Len(t, scenes, 2)

	assert.Equal(t, "one", scenes[0].Beat.Visual)
	assert.Equal(t, "two three", scenes[1].Beat.Visual)
	assert.Equal(t, "last line", scenes[1].Beat.Dialogue)
}

// TestPlanScenesBeatShortfallRepeatsVisualOnly verifies that when there are
// fewer beats than scenes, trailing scenes repeat the final beat's visual
// without repeating its dialogue.
func TestPlanScenesBeatShortfallRepeatsVisualOnly(t *testing.T) {
	script := &model.ScriptData{Scenes: []*model.ScriptScene{
		{Visual: "opening", Dialogue: "hello"},
		{Visual: "closing", Dialogue: "goodbye"},
	}}

	// 24s under a 6s cap plans four scenes for two beats.
	scenes, err := commands.PlanScenes(24, 6, script)
	require.NoError(t, err)
	require.Len(t, scenes, 4)

	assert.Equal(t, "hello", scenes[0].Beat.Dialogue)
	assert.Equal(t, "goodbye", scenes[1].Beat.Dialogue)
	for _, s := range scenes[2:] {
		assert.Equal(t, "closing", s.Beat.Visual)
		assert.Empty(t, s.Beat.Dialogue)
	}
}

// TestScenePlannerCommand verifies the command wrapper: it pipes the planned
// descriptors and publishes the request for later steps.
func TestScenePlannerCommand(t *testing.T) {
	planner := commands.NewScenePlanner("plan-scenes", 6)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	request := &model.ReelRequest{Prompt: "a lighthouse at dusk", DurationSeconds: 18}
	chainCtx.Add(cor.CtxIn, request)

	planner.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	scenes := chainCtx.Get(cor.CtxOut).([]*model.SceneDescriptor)
	assert.Len(t, scenes, 3)
	assert.Same(t, request, chainCtx.Get(commands.GetReelRequestParameterName()))
}

// TestScenePlannerCommandRejectsInvalidRequest verifies a bad duration lands
// in the error map instead of producing descriptors.
func TestScenePlannerCommandRejectsInvalidRequest(t *testing.T) {
	planner := commands.NewScenePlanner("plan-scenes", 6)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	chainCtx.Add(cor.CtxIn, &model.ReelRequest{Prompt: "x", DurationSeconds: -1})

	planner.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}
