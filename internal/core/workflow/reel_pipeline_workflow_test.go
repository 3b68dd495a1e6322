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

// Package workflow_test contains end-to-end tests for the reel pipeline
// workflow, run against the fake video model and the fake concat tool so no
// network or FFmpeg install is required.
package workflow_test

import (
	goctx "context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reelforge/reelforge/internal/cloud"
	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
	"github.com/reelforge/reelforge/internal/core/workflow"
	test "github.com/reelforge/reelforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestWorkflow builds a pipeline over the fake model with its own
// workspace root, so parallel tests never share run directories.
func newTestWorkflow(t *testing.T, outcomes map[int]test.FakeOutcome, ffmpegPath string) (*workflow.ReelPipelineWorkflow, *cloud.Config) {
	t.Helper()

	cfg := *test.GetConfig()
	cfg.Application.WorkspaceRoot = t.TempDir()
	cfg.Application.FfmpegPath = ffmpegPath

	fake := test.NewFakeVideoModel(outcomes)
	return workflow.NewReelPipelineWorkflow(&cfg, fake, nil, "default"), &cfg
}

// TestWorkflowHappyPath verifies a full run: two scenes generated, stitched
// in order, with complete metadata.
func TestWorkflowHappyPath(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, cfg := newTestWorkflow(t, nil, tool)

	request := &model.ReelRequest{Prompt: "a kite festival on a windy beach", DurationSeconds: 12}
	result := wf.Run(goctx.Background(), request)

	require.True(t, result.Success, "run failed: %s", result.Error)
	assert.Empty(t, result.Error)
	require.NotEmpty(t, result.OutputPath)
	assert.Equal(t, filepath.Dir(filepath.Dir(result.OutputPath)), cfg.Application.WorkspaceRoot)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "clip-data-1clip-data-2", string(data))

	assert.Len(t, result.ScenePaths, 2)
	assert.Empty(t, result.FailedScenes)
	assert.Equal(t, 2, result.Metadata.SceneCount)
	assert.Equal(t, 12, result.Metadata.RequestedDurationSeconds)
	assert.Equal(t, "fake-video-model", result.Metadata.ModelName)
	assert.Equal(t, int64(len(data)), result.Metadata.FileSizeBytes)
}

// TestWorkflowPartialFailureStillDelivers verifies a run with one failed
// scene still stitches the survivors and reports the failure honestly.
func TestWorkflowPartialFailureStillDelivers(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, map[int]test.FakeOutcome{
		2: {Fail: true, FailureReason: "safety filter"},
	}, tool)

	request := &model.ReelRequest{Prompt: "a night market", DurationSeconds: 12}
	result := wf.Run(goctx.Background(), request)

	require.True(t, result.Success, "run failed: %s", result.Error)
	assert.Equal(t, []int{2}, result.FailedScenes)
	assert.Len(t, result.ScenePaths, 1)

	data, err := os.ReadFile(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "clip-data-1", string(data))
}

// TestWorkflowAllScenesFail verifies a run where nothing generates reports
// failure with no output path.
func TestWorkflowAllScenesFail(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, map[int]test.FakeOutcome{
		1: {Fail: true},
		2: {Fail: true},
	}, tool)

	request := &model.ReelRequest{Prompt: "a night market", DurationSeconds: 12}
	result := wf.Run(goctx.Background(), request)

	assert.False(t, result.Success)
	assert.Empty(t, result.OutputPath)
	assert.Contains(t, result.Error, "all 2 scenes failed")
	assert.Empty(t, result.ScenePaths)
	assert.Equal(t, []int{1, 2}, result.FailedScenes)
}

// TestWorkflowStitchToolMissing verifies the scene clips stay recoverable
// when the host has no stitching tool.
func TestWorkflowStitchToolMissing(t *testing.T) {
	wf, _ := newTestWorkflow(t, nil, filepath.Join(t.TempDir(), "no-such-ffmpeg"))

	request := &model.ReelRequest{Prompt: "a night market", DurationSeconds: 12}
	result := wf.Run(goctx.Background(), request)

	assert.False(t, result.Success)
	assert.Empty(t, result.OutputPath)
	assert.Contains(t, result.Error, "ffmpeg not found")

	// Both clips were generated and are reported for manual recovery.
	require.Len(t, result.ScenePaths, 2)
	for _, p := range result.ScenePaths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

// TestWorkflowStitchFailureNotMaskedByPartialOutput verifies a stitch tool
// that leaves a partial file behind and exits non-zero yields a failed
// result, not a success pointing at the partial file.
func TestWorkflowStitchFailureNotMaskedByPartialOutput(t *testing.T) {
	tool := test.WriteBrokenConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, nil, tool)

	request := &model.ReelRequest{Prompt: "a night market", DurationSeconds: 12}
	result := wf.Run(goctx.Background(), request)

	assert.False(t, result.Success)
	assert.Empty(t, result.OutputPath)
	assert.Contains(t, result.Error, "failed to stitch")

	// The clips survive for manual recovery.
	require.Len(t, result.ScenePaths, 2)
	for _, p := range result.ScenePaths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

// TestWorkflowStaleOutputNotReportedAsSuccess verifies a pre-existing file at
// the requested output path does not turn a failed stitch into a success.
func TestWorkflowStaleOutputNotReportedAsSuccess(t *testing.T) {
	wf, _ := newTestWorkflow(t, nil, filepath.Join(t.TempDir(), "no-such-ffmpeg"))

	outputPath := filepath.Join(t.TempDir(), "reel.mp4")
	require.NoError(t, os.WriteFile(outputPath, []byte("stale reel"), 0o644))

	request := &model.ReelRequest{Prompt: "a night market", DurationSeconds: 12, OutputPath: outputPath}
	result := wf.Run(goctx.Background(), request)

	assert.False(t, result.Success)
	assert.Empty(t, result.OutputPath)
	assert.Contains(t, result.Error, "ffmpeg not found")
}

// TestWorkflowInvalidDuration verifies a bad request fails fast without
// touching the model.
func TestWorkflowInvalidDuration(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, nil, tool)

	request := &model.ReelRequest{Prompt: "anything", DurationSeconds: -3}
	result := wf.Run(goctx.Background(), request)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "positive number of seconds")
	assert.Equal(t, 0, result.Metadata.SceneCount)
}

// TestWorkflowHonorsRequestedOutputPath verifies an explicit output path is
// used instead of the workspace default.
func TestWorkflowHonorsRequestedOutputPath(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, nil, tool)

	outputPath := filepath.Join(t.TempDir(), "final-reel.mp4")
	request := &model.ReelRequest{Prompt: "a pottery wheel", DurationSeconds: 6, OutputPath: outputPath}
	result := wf.Run(goctx.Background(), request)

	require.True(t, result.Success, "run failed: %s", result.Error)
	assert.Equal(t, outputPath, result.OutputPath)
	_, err := os.Stat(outputPath)
	assert.NoError(t, err)
}

// TestWorkflowCanceledRunRemovesWorkspace verifies cancellation before the
// chain starts produces a failed result and leaves no run directory behind.
func TestWorkflowCanceledRunRemovesWorkspace(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, cfg := newTestWorkflow(t, nil, tool)

	ctx, cancel := goctx.WithCancel(goctx.Background())
	cancel()

	request := &model.ReelRequest{Prompt: "a pottery wheel", DurationSeconds: 6}
	result := wf.Run(ctx, request)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "run canceled")

	entries, err := os.ReadDir(cfg.Application.WorkspaceRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestWorkflowExecuteFromMessage verifies the Pub/Sub entry point: a raw
// JSON payload on the chain input runs the pipeline and leaves the context
// error-free so the message gets acked.
func TestWorkflowExecuteFromMessage(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, nil, tool)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	chainCtx.Add(cor.CtxIn, test.GetTestReelMessageText())

	wf.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	result := chainCtx.Get(cor.CtxOut).(*model.PipelineResult)
	assert.True(t, result.Success, "run failed: %s", result.Error)
	assert.Equal(t, 12, result.Metadata.RequestedDurationSeconds)
}

// TestWorkflowExecuteRejectsMalformedMessage verifies a broken payload
// records an error so the message is redelivered rather than lost.
func TestWorkflowExecuteRejectsMalformedMessage(t *testing.T) {
	tool := test.WriteFakeConcatTool(t, t.TempDir())
	wf, _ := newTestWorkflow(t, nil, tool)

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(goctx.Background())
	chainCtx.Add(cor.CtxIn, "{not json")

	wf.Execute(chainCtx)

	assert.True(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}
