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
// well-known context keys commands use to share data beyond the chain's
// default input/output piping. The orchestrating workflow seeds some of them
// (workspace, output path); commands publish the rest so later steps and the
// final result assembly can read them even after an intermediate failure.
package commands

// GetWorkspaceParameterName returns the context key for the run's workspace
// directory. The workflow seeds it before executing the chain.
func GetWorkspaceParameterName() string { return "__WORKSPACE__" }

// GetReelRequestParameterName returns the context key the parsed request is
// published under, so any command can reach the caller's original input.
func GetReelRequestParameterName() string { return "__REEL_REQUEST__" }

// GetSceneResultsParameterName returns the context key for the full per-scene
// result list. Published in addition to the chain output so the workflow can
// report scene outcomes even when a later stitch step fails.
func GetSceneResultsParameterName() string { return "__SCENE_RESULTS__" }

// GetReelOutputParameterName returns the context key naming the destination
// path for the stitched reel. The workflow seeds it.
func GetReelOutputParameterName() string { return "__REEL_OUTPUT__" }

// GetArtifactURIParameterName returns the context key the uploader publishes
// the Cloud Storage URI of the finished reel under.
func GetArtifactURIParameterName() string { return "__ARTIFACT_URI__" }
