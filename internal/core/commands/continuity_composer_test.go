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
// file covers the continuity composer: deterministic prompts, the verbatim
// continuity anchor, scene position markers, and dialogue embedding.
package commands_test

import (
	goctx "context"
	"fmt"
	"testing"
	"text/template"

	"github.com/reelforge/reelforge/internal/core/commands"
	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func composeAll(t *testing.T, request *model.ReelRequest, styleClause string) []*model.SceneDescriptor {
	t.Helper()

	planner := commands.NewScenePlanner("plan-scenes", 6)
	tmpl, err := template.New("scene-prompt").Parse(commands.DefaultScenePromptTemplate)
	require.NoError(t, err)
	composer := commands.NewContinuityComposer("compose-scene-prompts", tmpl, styleClause)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	chainCtx.Add(cor.CtxIn, request)

	chain := cor.NewBaseChain("compose-test")
	chain.AddCommand(planner)
	chain.AddCommand(composer)
	chain.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	return chainCtx.Get(cor.CtxIn).([]*model.SceneDescriptor)
}

// TestComposerRepeatsAnchorVerbatim verifies that every scene prompt carries
// the subject and style clause byte-for-byte, which is the mechanism holding
// independently generated scenes visually together.
func TestComposerRepeatsAnchorVerbatim(t *testing.T) {
	request := &model.ReelRequest{Prompt: "  A lighthouse keeper on a stormy coast  ", DurationSeconds: 18}
	scenes := composeAll(t, request, "")

	require.Len(t, scenes, 3)
	for _, s := range scenes {
		assert.Contains(t, s.Prompt, "A lighthouse keeper on a stormy coast")
		assert.Contains(t, s.Prompt, commands.DefaultStyleClause)
	}
}

// TestComposerSceneMarkers verifies the position marker and the
// opening-versus-continuation clauses.
func TestComposerSceneMarkers(t *testing.T) {
	request := &model.ReelRequest{Prompt: "a drone flight over a glacier", DurationSeconds: 18}
	scenes := composeAll(t, request, "")

	for i, s := range scenes {
		assert.Contains(t, s.Prompt, fmt.Sprintf("scene %d of %d", i+1, len(scenes)))
	}
	assert.Contains(t, scenes[0].Prompt, "opening shot")
	for _, s := range scenes[1:] {
		assert.Contains(t, s.Prompt, "Continuing directly from the previous shot")
		assert.NotContains(t, s.Prompt, "opening shot")
	}
}

// TestComposerEmbedsBeatAndDialogue verifies beat visuals drive the action
// line and dialogue is embedded as a quoted spoken line.
func TestComposerEmbedsBeatAndDialogue(t *testing.T) {
	request := &model.ReelRequest{
		Prompt:          "a street magician",
		DurationSeconds: 12,
		Script: &model.ScriptData{Scenes: []*model.ScriptScene{
			{Visual: "The magician fans a deck of cards", Dialogue: "Pick one."},
			{Visual: "A card floats in midair"},
		}},
	}
	scenes := composeAll(t, request, "")

	require.Len(t, scenes, 2)
	assert.Contains(t, scenes[0].Prompt, "The magician fans a deck of cards")
	assert.Contains(t, scenes[0].Prompt, `"Pick one."`)
	assert.Contains(t, scenes[1].Prompt, "A card floats in midair")
	assert.NotContains(t, scenes[1].Prompt, "Pick one.")
}

// TestComposerStyleOverride verifies a configured style clause replaces the
// default in every prompt.
func TestComposerStyleOverride(t *testing.T) {
	request := &model.ReelRequest{Prompt: "a pottery wheel", DurationSeconds: 12}
	scenes := composeAll(t, request, "grainy 16mm film, muted colors")

	for _, s := range scenes {
		assert.Contains(t, s.Prompt, "grainy 16mm film, muted colors")
		assert.NotContains(t, s.Prompt, commands.DefaultStyleClause)
	}
}

// TestComposerDeterministic verifies the same request composes the same
// prompts on every run.
func TestComposerDeterministic(t *testing.T) {
	request := model.GetExampleRequest()

	first := composeAll(t, request, "")
	second := composeAll(t, request, "")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Prompt, second[i].Prompt)
	}
}
