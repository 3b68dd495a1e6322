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
// continuity composer, which turns each planned scene slice into a
// self-contained generation prompt.
//
// Scenes are generated by independent model calls that share no state, so
// visual coherence has to come entirely from the prompt text. The composer
// repeats a fixed continuity anchor (the subject and a style clause) verbatim
// in every scene prompt, marks each scene's position in the whole
// ("Scene 2 of 5"), and tells every scene after the first to continue
// directly from the previous shot. Composition is deterministic: the same
// request always yields the same prompts.
package commands

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
)

// DefaultStyleClause is the style anchor used when the configuration does not
// override it. It is carried verbatim into every scene prompt of a run.
const DefaultStyleClause = "cinematic, realistic lighting, smooth camera motion, consistent color grading"

// DefaultScenePromptTemplate is the built-in prompt layout. Deployments can
// replace it through the [prompt_templates] config section; the template is
// executed with a flat string vocabulary.
const DefaultScenePromptTemplate = "This is scene {{.SCENE_NUMBER}} of {{.SCENE_COUNT}} in one continuous video, " +
	"covering seconds {{.TIME_START}} to {{.TIME_END}}. " +
	"{{.CONTINUITY}} " +
	"Subject: {{.SUBJECT}}. " +
	"{{.ACTION}} " +
	"Keep the exact same subject appearance, setting, lighting, and camera treatment as the adjacent scenes. " +
	"Style: {{.STYLE}}."

const (
	openingClause      = "This is the opening shot of the video."
	continuationClause = "Continuing directly from the previous shot, without any cut or scene change."
)

// ContinuityAnchor is the prompt material repeated verbatim across every
// scene of one run. Keeping it byte-identical between scenes is what lets the
// model reproduce the same subject and look call after call.
type ContinuityAnchor struct {
	Subject string // The caller's base prompt, trimmed.
	Style   string // The fixed style clause.
}

// NewContinuityAnchor derives the run's anchor from the request and the
// configured style clause (empty means DefaultStyleClause).
func NewContinuityAnchor(request *model.ReelRequest, styleClause string) *ContinuityAnchor {
	style := strings.TrimSpace(styleClause)
	if style == "" {
		style = DefaultStyleClause
	}
	return &ContinuityAnchor{
		Subject: strings.TrimSpace(request.Prompt),
		Style:   style,
	}
}

// ComposeScenePrompt renders the final prompt for one scene. The action line
// comes from the scene's assigned beat when one exists; otherwise a neutral
// progression line keeps the model moving the story forward. Beat dialogue is
// embedded as a quoted spoken line.
//
// Inputs:
//   - tmpl: The parsed prompt template.
//   - anchor: The run's continuity anchor.
//   - scene: The planned slice to compose for.
//   - sceneCount: The total number of scenes in the run.
//
// Outputs:
//   - string: The rendered prompt.
//   - error: Non-nil when the template fails to execute.
func ComposeScenePrompt(tmpl *template.Template, anchor *ContinuityAnchor, scene *model.SceneDescriptor, sceneCount int) (string, error) {
	continuity := continuationClause
	if scene.SceneNumber == 1 {
		continuity = openingClause
	}

	action := "The action progresses naturally within the same scene."
	if scene.Beat != nil {
		var b strings.Builder
		b.WriteString(strings.TrimSpace(scene.Beat.Visual))
		if dialogue := strings.TrimSpace(scene.Beat.Dialogue); dialogue != "" {
			fmt.Fprintf(&b, " The subject says: %q.", dialogue)
		}
		action = b.String()
	}

	vocabulary := make(map[string]string)
	vocabulary["SCENE_NUMBER"] = fmt.Sprintf("%d", scene.SceneNumber)
	vocabulary["SCENE_COUNT"] = fmt.Sprintf("%d", sceneCount)
	vocabulary["TIME_START"] = fmt.Sprintf("%g", scene.StartTime)
	vocabulary["TIME_END"] = fmt.Sprintf("%g", scene.EndTime)
	vocabulary["CONTINUITY"] = continuity
	vocabulary["SUBJECT"] = anchor.Subject
	vocabulary["ACTION"] = action
	vocabulary["STYLE"] = anchor.Style

	var doc bytes.Buffer
	if err := tmpl.Execute(&doc, vocabulary); err != nil {
		return "", err
	}
	return doc.String(), nil
}

// ContinuityComposer is the command that fills in the Prompt field of every
// planned scene descriptor.
type ContinuityComposer struct {
	cor.BaseCommand
	promptTemplate *template.Template
	styleClause    string
}

// NewContinuityComposer builds the composer from a parsed template and an
// optional style clause override.
func NewContinuityComposer(name string, prompt *template.Template, styleClause string) *ContinuityComposer {
	return &ContinuityComposer{
		BaseCommand:    *cor.NewBaseCommand(name),
		promptTemplate: prompt,
		styleClause:    styleClause,
	}
}

// IsExecutable additionally requires the parsed request published by the
// planner, which supplies the anchor material.
func (c *ContinuityComposer) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(GetReelRequestParameterName()) != nil
}

// Execute composes a prompt for every scene in place and pipes the same
// descriptor slice onward.
func (c *ContinuityComposer) Execute(context cor.Context) {
	scenes := context.Get(c.GetInputParam()).([]*model.SceneDescriptor)
	request := context.Get(GetReelRequestParameterName()).(*model.ReelRequest)

	anchor := NewContinuityAnchor(request, c.styleClause)
	for _, scene := range scenes {
		prompt, err := ComposeScenePrompt(c.promptTemplate, anchor, scene, len(scenes))
		if err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("failed to compose prompt for scene %d: %w", scene.SceneNumber, err))
			return
		}
		scene.Prompt = prompt
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), scenes)
	context.Add(cor.CtxOut, scenes)
}
