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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the reel synthesis workflow: plan the scene slices, compose a continuity
// prompt per scene, generate the clips concurrently, stitch them losslessly,
// and optionally upload the result.
//
// The workflow owns the per-run workspace: every run gets its own
// reel-<uuid> directory under the configured workspace root, scene clips and
// manifests live inside it, and a canceled run removes the whole directory.
// Results are reported in a PipelineResult rather than raised, so partial
// outcomes (some scenes failed but the reel stitched) reach the caller with
// full detail.
package workflow

import (
	goctx "context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/reelforge/reelforge/internal/cloud"
	"github.com/reelforge/reelforge/internal/core/commands"
	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
)

// RunState labels the phase a pipeline run is in. States only move forward;
// a run ends in done or failed.
type RunState string

const (
	RunStatePlanning   RunState = "planning"
	RunStateGenerating RunState = "generating"
	RunStateStitching  RunState = "stitching"
	RunStateDone       RunState = "done"
	RunStateFailed     RunState = "failed"
)

// uploadCommandName identifies the artifact upload step in the chain's error
// map. Upload runs after the stitch, so its errors never retract a finished
// reel.
const uploadCommandName = "upload-reel-artifact"

// ReelPipelineWorkflow orchestrates one reel synthesis run end to end. It is
// both a cor.Command (so a Pub/Sub listener can drive it from a raw message)
// and a direct Run entry point for the HTTP handler.
type ReelPipelineWorkflow struct {
	cor.BaseCommand
	config        *cloud.Config
	videoModel    cloud.VideoGenerationModel
	storageClient *storage.Client
	modelConfig   cloud.VideoModel
	sceneTemplate *template.Template
	parser        *commands.ReelRequestParser
	chain         cor.Chain
}

// NewReelPipelineWorkflow is the constructor for the workflow.
//
// Inputs:
//   - config: The application's overall configuration.
//   - videoModel: The video generation model to run scenes against.
//   - storageClient: The GCS client for artifact upload; may be nil when no
//     artifact bucket is configured.
//   - modelConfigName: The key into config.VideoModels for the model's
//     planning and polling parameters.
//
// Outputs:
//   - A pointer to the fully initialized workflow.
func NewReelPipelineWorkflow(
	config *cloud.Config,
	videoModel cloud.VideoGenerationModel,
	storageClient *storage.Client,
	modelConfigName string) *ReelPipelineWorkflow {

	promptText := config.PromptTemplates.Scene
	if promptText == "" {
		promptText = commands.DefaultScenePromptTemplate
	}
	sceneTemplate, err := template.New("scene-prompt").Parse(promptText)
	if err != nil {
		panic(err) // The app cannot run with a broken prompt template.
	}

	pipeline := &ReelPipelineWorkflow{
		BaseCommand:   *cor.NewBaseCommand("reel-pipeline"),
		config:        config,
		videoModel:    videoModel,
		storageClient: storageClient,
		modelConfig:   config.VideoModels[modelConfigName],
		sceneTemplate: sceneTemplate,
		parser:        commands.NewReelRequestParser("parse-reel-request"),
	}
	pipeline.initializeChain()
	return pipeline
}

// initializeChain builds the command sequence for one run. The chain's
// default piping carries the main data flow (request, descriptors, results,
// output path); the workspace and output path parameters are seeded by Run.
func (w *ReelPipelineWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	out.AddCommand(newStateMarker(RunStatePlanning))

	// Step 1: Slice the requested duration into scenes under the model's
	// per-call ceiling and distribute the script beats across them.
	out.AddCommand(commands.NewScenePlanner("plan-scenes", w.modelConfig.MaxSceneSeconds))

	// Step 2: Render a self-contained prompt per scene, repeating the run's
	// continuity anchor verbatim so independent model calls stay coherent.
	out.AddCommand(commands.NewContinuityComposer("compose-scene-prompts", w.sceneTemplate, w.config.PromptTemplates.Style))

	out.AddCommand(newStateMarker(RunStateGenerating))

	// Step 3: Generate every scene through the worker pool. Individual scene
	// failures are recorded per scene, not raised.
	out.AddCommand(commands.NewSceneGenerator(
		"generate-scenes",
		w.videoModel,
		w.config.Application.ThreadPoolSize,
		time.Duration(w.modelConfig.PollIntervalSeconds)*time.Second,
		time.Duration(w.modelConfig.SceneTimeoutSeconds)*time.Second))

	out.AddCommand(newStateMarker(RunStateStitching))

	// Step 4: Concatenate the successful clips losslessly with FFmpeg.
	out.AddCommand(commands.NewClipStitcher("stitch-scenes", w.config.Application.FfmpegPath))

	// Step 5: Optionally copy the finished reel to the artifact bucket. Skipped
	// entirely when no bucket is configured.
	out.AddCommand(commands.NewReelArtifactUpload(uploadCommandName, w.storageClient, w.config.Storage.ArtifactBucket))

	w.chain = out
}

// Execute adapts the workflow to the message-driven entry point: parse the
// raw JSON payload on the chain input, run the pipeline, and record an error
// when the run failed so the message stays unacked.
func (w *ReelPipelineWorkflow) Execute(context cor.Context) {
	w.parser.Execute(context)
	if context.HasErrors() {
		return
	}
	request := context.Get(cor.CtxOut).(*model.ReelRequest)

	result := w.Run(context.GetContext(), request)
	context.Add(w.GetOutputParam(), result)
	context.Add(cor.CtxOut, result)
	if !result.Success {
		context.AddError(w.GetName(), errors.New(result.Error))
	}
}

// Run executes the full pipeline for one request and reports the outcome.
// Failures land in the result, never as a returned error, so callers branch
// on result.Success.
//
// Inputs:
//   - ctx: The run's Go context. Cancellation stops the chain at the next
//     command boundary and removes the run workspace.
//   - request: The validated reel request.
//
// Outputs:
//   - *model.PipelineResult: The terminal outcome, including per-scene detail.
func (w *ReelPipelineWorkflow) Run(ctx goctx.Context, request *model.ReelRequest) *model.PipelineResult {
	workspace, err := w.createWorkspace()
	if err != nil {
		return w.failedResult(request, fmt.Errorf("failed to create run workspace: %w", err))
	}

	outputPath := request.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(workspace, "reel.mp4")
	}

	slog.InfoContext(ctx, "starting reel run",
		"workspace", workspace,
		"duration_seconds", request.DurationSeconds,
		"model", w.videoModel.ModelName())

	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, request)
	chainCtx.Add(commands.GetReelRequestParameterName(), request)
	chainCtx.Add(commands.GetWorkspaceParameterName(), workspace)
	chainCtx.Add(commands.GetReelOutputParameterName(), outputPath)

	w.chain.Execute(chainCtx)

	if ctx.Err() != nil {
		// A canceled run leaves nothing behind.
		_ = os.RemoveAll(workspace)
		slog.WarnContext(ctx, "reel run canceled", "workspace", workspace)
		return w.failedResult(request, fmt.Errorf("run canceled: %w", ctx.Err()))
	}

	result := w.assembleResult(chainCtx, request, outputPath)
	state := RunStateDone
	if !result.Success {
		state = RunStateFailed
	}
	slog.InfoContext(ctx, "reel run finished",
		"state", string(state),
		"output", result.OutputPath,
		"failed_scenes", result.FailedScenes)
	return result
}

// createWorkspace makes the run's private directory under the configured
// workspace root (the OS temp dir when unset).
func (w *ReelPipelineWorkflow) createWorkspace() (string, error) {
	root := w.config.Application.WorkspaceRoot
	if root == "" {
		root = os.TempDir()
	}
	workspace := filepath.Join(root, "reel-"+uuid.NewString())
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", err
	}
	return workspace, nil
}

// assembleResult folds the chain's state into the caller-facing result.
// Success requires at least one successful scene, an output file on disk, and
// no recorded error from any step up to and including the stitch; a failed
// upload alone does not retract the reel. Scene paths and failures are
// reported even when the stitch failed, so the clips remain recoverable.
func (w *ReelPipelineWorkflow) assembleResult(chainCtx cor.Context, request *model.ReelRequest, outputPath string) *model.PipelineResult {
	result := &model.PipelineResult{
		ScenePaths:   make([]string, 0),
		FailedScenes: make([]int, 0),
		Metadata: model.ReelMetadata{
			ModelName:                w.videoModel.ModelName(),
			RequestedDurationSeconds: request.DurationSeconds,
		},
	}

	if sceneResults, ok := chainCtx.Get(commands.GetSceneResultsParameterName()).([]*model.SceneResult); ok {
		result.Metadata.SceneCount = len(sceneResults)
		for _, r := range sceneResults {
			if r.Succeeded() {
				result.ScenePaths = append(result.ScenePaths, r.FilePath)
			} else {
				result.FailedScenes = append(result.FailedScenes, r.SceneNumber)
			}
		}
	}

	if uri, ok := chainCtx.Get(commands.GetArtifactURIParameterName()).(string); ok {
		result.ArtifactURI = uri
	}

	stat, statErr := os.Stat(outputPath)

	fatal := false
	if chainCtx.HasErrors() {
		messages := make([]string, 0, len(chainCtx.GetErrors()))
		for name, err := range chainCtx.GetErrors() {
			messages = append(messages, fmt.Sprintf("%s: %v", name, err))
			// An upload error does not retract a stitched reel, but any
			// error up to and including the stitch does.
			if name != uploadCommandName {
				fatal = true
			}
		}
		result.Error = strings.Join(messages, "; ")
	}

	// A file at the output path is not proof of a stitch: ffmpeg can fail
	// after creating a partial file, and a caller-supplied path may hold a
	// stale reel from an earlier run.
	if statErr == nil && len(result.ScenePaths) > 0 && !fatal {
		result.Success = true
		result.OutputPath = outputPath
		result.Metadata.FileSizeBytes = stat.Size()
	}

	return result
}

// failedResult builds the terminal result for a run that never got to (or
// through) the chain.
func (w *ReelPipelineWorkflow) failedResult(request *model.ReelRequest, err error) *model.PipelineResult {
	return &model.PipelineResult{
		Success:      false,
		ScenePaths:   make([]string, 0),
		FailedScenes: make([]int, 0),
		Error:        err.Error(),
		Metadata: model.ReelMetadata{
			ModelName:                w.videoModel.ModelName(),
			RequestedDurationSeconds: request.DurationSeconds,
		},
	}
}

// stateMarker is a pass-through command that logs the run's phase change.
// It forwards the chain input untouched.
type stateMarker struct {
	cor.BaseCommand
	state RunState
}

func newStateMarker(state RunState) *stateMarker {
	return &stateMarker{BaseCommand: *cor.NewBaseCommand("state-" + string(state)), state: state}
}

func (s *stateMarker) IsExecutable(context cor.Context) bool {
	return context.GetContext() != nil
}

func (s *stateMarker) Execute(context cor.Context) {
	slog.InfoContext(context.GetContext(), "run state", "state", string(s.state))
	if in := context.Get(cor.CtxIn); in != nil {
		context.Add(cor.CtxOut, in)
	}
}
