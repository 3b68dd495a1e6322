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
// scene generator, the pipeline's long-running middle step.
//
// Each planned scene becomes one job for a worker pool: submit the scene's
// prompt to the video model, poll the returned operation until it finishes or
// the per-scene wait budget runs out, then write the clip bytes to the run
// workspace. Scene failures are isolated: a failed scene is recorded in its
// SceneResult and the other workers keep going. The command records a chain
// error only when every scene failed, because a partial reel can still be
// stitched and delivered.
//
// Clip files are written as temp-then-rename so a crash mid-write can never
// leave a plausible-looking partial clip for the stitcher to pick up.
package commands

import (
	goctx "context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/reelforge/reelforge/internal/cloud"
	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SceneGenerator is the command that turns scene descriptors into clip files
// through a pool of concurrent workers.
type SceneGenerator struct {
	cor.BaseCommand
	videoModel      cloud.VideoGenerationModel // The submit/poll model wrapper.
	numberOfWorkers int                        // The number of concurrent generation workers.
	pollInterval    time.Duration              // Sleep between operation polls.
	sceneTimeout    time.Duration              // Per-scene wait budget, covering submit through download.
}

// NewSceneGenerator is the constructor for the SceneGenerator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - videoModel: The video generation model to submit scenes to.
//   - numberOfWorkers: The size of the worker pool.
//   - pollInterval: How long to wait between polls of a pending operation.
//   - sceneTimeout: The wait budget for one scene before it is failed.
//
// Outputs:
//   - *SceneGenerator: A pointer to the newly instantiated command.
func NewSceneGenerator(
	name string,
	videoModel cloud.VideoGenerationModel,
	numberOfWorkers int,
	pollInterval time.Duration,
	sceneTimeout time.Duration) *SceneGenerator {
	return &SceneGenerator{
		BaseCommand:     *cor.NewBaseCommand(name),
		videoModel:      videoModel,
		numberOfWorkers: numberOfWorkers,
		pollInterval:    pollInterval,
		sceneTimeout:    sceneTimeout,
	}
}

// IsExecutable requires the composed scene descriptors plus the workspace
// directory seeded by the workflow.
func (s *SceneGenerator) IsExecutable(context cor.Context) bool {
	return s.BaseCommand.IsExecutable(context) &&
		context.Get(GetWorkspaceParameterName()) != nil
}

// Execute fans the scenes out over the worker pool, waits for every scene to
// reach a terminal state, and pipes the ordered results onward.
func (s *SceneGenerator) Execute(context cor.Context) {
	scenes := context.Get(s.GetInputParam()).([]*model.SceneDescriptor)
	workspace := context.Get(GetWorkspaceParameterName()).(string)

	var wg sync.WaitGroup
	jobs := make(chan *GenerationJob, len(scenes))
	results := make(chan *model.SceneResult, len(scenes))

	for w := 1; w <= s.numberOfWorkers; w++ {
		wg.Add(1)
		go s.generationWorker(jobs, results, &wg)
	}

	for _, scene := range scenes {
		jobs <- s.createJob(context.GetContext(), scene, workspace)
	}
	close(jobs)

	wg.Wait()
	close(results)

	sceneResults := make([]*model.SceneResult, 0, len(scenes))
	succeeded := 0
	for r := range results {
		if r.Succeeded() {
			succeeded++
		}
		sceneResults = append(sceneResults, r)
	}
	// Workers finish in whatever order the model does; stitch order is by
	// scene number.
	sort.Slice(sceneResults, func(i, j int) bool {
		return sceneResults[i].SceneNumber < sceneResults[j].SceneNumber
	})

	context.Add(GetSceneResultsParameterName(), sceneResults)
	context.Add(s.GetOutputParam(), sceneResults)
	context.Add(cor.CtxOut, sceneResults)

	if succeeded == 0 {
		s.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(s.GetName(), fmt.Errorf("all %d scenes failed to generate", len(scenes)))
		return
	}
	s.GetSuccessCounter().Add(context.GetContext(), 1)
}

// GenerationJob packages everything one worker needs to produce one scene.
type GenerationJob struct {
	ctx       goctx.Context
	span      trace.Span
	scene     *model.SceneDescriptor
	workspace string
}

// Close ends the job's span with the given status.
func (j *GenerationJob) Close(status codes.Code, description string) {
	j.span.SetStatus(status, description)
	j.span.End()
}

// createJob opens a span for one scene and bundles its inputs.
func (s *SceneGenerator) createJob(ctx goctx.Context, scene *model.SceneDescriptor, workspace string) *GenerationJob {
	sceneCtx, sceneSpan := s.Tracer.Start(ctx, fmt.Sprintf("%s_scene_%d", s.GetName(), scene.SceneNumber))
	sceneSpan.SetAttributes(
		attribute.Int("scene_number", scene.SceneNumber),
		attribute.Float64("start", scene.StartTime),
		attribute.Float64("end", scene.EndTime),
		attribute.String("model", s.videoModel.ModelName()),
	)
	return &GenerationJob{ctx: sceneCtx, span: sceneSpan, scene: scene, workspace: workspace}
}

// generationWorker drains the jobs channel, producing one SceneResult per
// job. It exits when the channel closes.
func (s *SceneGenerator) generationWorker(jobs <-chan *GenerationJob, results chan<- *model.SceneResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		result := s.runScene(j)
		if result.Succeeded() {
			j.Close(codes.Ok, "scene generated")
		} else {
			j.Close(codes.Error, result.Err)
		}
		results <- result
	}
}

// runScene drives one scene from submission through clip file, enforcing the
// per-scene wait budget.
func (s *SceneGenerator) runScene(job *GenerationJob) *model.SceneResult {
	scene := job.scene
	ctx, cancel := goctx.WithTimeout(job.ctx, s.sceneTimeout)
	defer cancel()

	opName, err := s.videoModel.Submit(ctx, scene.Prompt, scene.DurationSeconds)
	if err != nil {
		return s.failScene(scene, err)
	}

	for {
		status, err := s.videoModel.Poll(ctx, opName)
		if err != nil {
			return s.failScene(scene, err)
		}

		switch status.State {
		case cloud.VideoOperationSucceeded:
			path, err := writeSceneFile(job.workspace, scene.SceneNumber, status.VideoBytes)
			if err != nil {
				return s.failScene(scene, err)
			}
			return &model.SceneResult{
				SceneNumber: scene.SceneNumber,
				Status:      model.SceneSucceeded,
				FilePath:    path,
			}
		case cloud.VideoOperationFailed:
			return s.failScene(scene, fmt.Errorf("video generation failed: %s", status.FailureReason))
		default:
			// Still pending; wait out the poll interval unless the budget or
			// the run expires first.
			select {
			case <-ctx.Done():
				return s.failScene(scene, ctx.Err())
			case <-time.After(s.pollInterval):
			}
		}
	}
}

// failScene normalizes an error into a failed SceneResult, translating a
// blown budget into the dedicated timeout error.
func (s *SceneGenerator) failScene(scene *model.SceneDescriptor, err error) *model.SceneResult {
	if errors.Is(err, goctx.DeadlineExceeded) {
		err = &model.SceneTimeoutError{SceneNumber: scene.SceneNumber, Budget: s.sceneTimeout}
	}
	return &model.SceneResult{
		SceneNumber: scene.SceneNumber,
		Status:      model.SceneFailed,
		Err:         err.Error(),
	}
}

// writeSceneFile persists clip bytes as scene_NN.<ext> inside the workspace,
// sniffing the container format from the bytes and defaulting to mp4. The
// write goes to a temp file first and is renamed into place once complete.
func writeSceneFile(workspace string, sceneNumber int, data []byte) (string, error) {
	ext := "mp4"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
	}

	finalPath := filepath.Join(workspace, fmt.Sprintf("scene_%02d.%s", sceneNumber, ext))

	tmp, err := os.CreateTemp(workspace, fmt.Sprintf("scene_%02d_*.part", sceneNumber))
	if err != nil {
		return "", fmt.Errorf("failed to create scene temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write scene clip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close scene clip: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize scene clip: %w", err)
	}
	return finalPath, nil
}
