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
// clip stitcher, the final media step of the reel pipeline.
//
// Stitching uses FFmpeg's concat demuxer with stream copy: a manifest file
// lists the clips in scene order and FFmpeg joins them without re-encoding.
// All clips come from the same model with the same settings, so their codecs
// match and a lossless copy is both correct and fast. The manifest is a
// temporary file registered with the run's cleanup ledger.
//
// The stitcher consumes SceneResults, not descriptors: it joins whatever
// scenes actually succeeded, in scene-number order, and only fails the run
// when there is nothing at all to join or FFmpeg itself errors.
package commands

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
)

// ClipStitcher is the command that concatenates scene clips into the final
// reel file.
type ClipStitcher struct {
	cor.BaseCommand
	commandPath string // The FFmpeg executable; a bare name is resolved on PATH.
}

// NewClipStitcher builds the stitcher. An empty commandPath means "ffmpeg".
func NewClipStitcher(name string, commandPath string) *ClipStitcher {
	if commandPath == "" {
		commandPath = "ffmpeg"
	}
	return &ClipStitcher{BaseCommand: *cor.NewBaseCommand(name), commandPath: commandPath}
}

// IsExecutable additionally requires the output path seeded by the workflow.
func (c *ClipStitcher) IsExecutable(context cor.Context) bool {
	return c.BaseCommand.IsExecutable(context) &&
		context.Get(GetReelOutputParameterName()) != nil
}

// Execute joins the successful scene clips into the reel file named by the
// output parameter, then pipes that path onward.
func (c *ClipStitcher) Execute(context cor.Context) {
	results := context.Get(c.GetInputParam()).([]*model.SceneResult)
	outputPath := context.Get(GetReelOutputParameterName()).(string)

	clipPaths := make([]string, 0, len(results))
	for _, r := range results {
		if r.Succeeded() {
			clipPaths = append(clipPaths, r.FilePath)
		}
	}
	if len(clipPaths) == 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.ErrNoScenesAvailable)
		return
	}

	// Resolve the tool up front so a missing install surfaces as its own
	// actionable error instead of a generic exec failure.
	resolved, err := exec.LookPath(c.commandPath)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.ErrStitchToolUnavailable)
		return
	}

	manifestPath, err := writeConcatManifest(context, outputPath, clipPaths)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.StitchError{Err: err})
		return
	}

	args := []string{"-y", "-hide_banner", "-f", "concat", "-safe", "0", "-i", manifestPath, "-c", "copy", outputPath}
	cmd := exec.CommandContext(context.GetContext(), resolved, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.StitchError{
			Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())),
		})
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), outputPath)
	context.Add(cor.CtxOut, outputPath)
}

// writeConcatManifest writes the concat demuxer input file next to the reel
// output, one "file '<path>'" line per clip in order.
func writeConcatManifest(context cor.Context, outputPath string, clipPaths []string) (string, error) {
	manifest, err := os.CreateTemp(filepath.Dir(outputPath), "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat manifest: %w", err)
	}
	// On the ledger from the moment it exists, so a failed write or a failed
	// FFmpeg run still leaves nothing behind after cleanup.
	context.AddTempFile(manifest.Name())

	var b strings.Builder
	for _, p := range clipPaths {
		// The concat demuxer escapes a single quote by closing the quoted
		// string around it.
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(p, "'", `'\''`))
	}
	if _, err := manifest.WriteString(b.String()); err != nil {
		_ = manifest.Close()
		return "", fmt.Errorf("failed to write concat manifest: %w", err)
	}
	if err := manifest.Close(); err != nil {
		return "", fmt.Errorf("failed to close concat manifest: %w", err)
	}
	return manifest.Name(), nil
}
