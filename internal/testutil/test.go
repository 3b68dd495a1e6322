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

// Package test provides utility functions and mock data to support the
// application's test suite: a cached test configuration, a scriptable fake
// video model, and a fake concat tool that honors the FFmpeg command line
// the stitcher produces. Everything here runs without network access or a
// real FFmpeg install.
package test

import (
	goctx "context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/reelforge/reelforge/internal/cloud"
)

// StateManager caches the test configuration so it is built once per test
// run.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is non-nil. Convenience to cut
// boilerplate in test bodies.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// SetupOS points the configuration loader at the test runtime so any
// checked-in override files are honored.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is the singleton accessor for the test configuration. It loads
// whatever TOML files the environment points at, then fills in working
// defaults for everything tests need, so packages can run from their own
// directories without a configs/ copy.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)

		if config.Application.Name == "" {
			config.Application.Name = "reelforge-test"
		}
		if config.Application.ThreadPoolSize == 0 {
			config.Application.ThreadPoolSize = 2
		}
		if config.Application.WorkspaceRoot == "" {
			config.Application.WorkspaceRoot = os.TempDir()
		}
		if _, ok := config.VideoModels["default"]; !ok {
			config.VideoModels["default"] = cloud.VideoModel{
				Model:               "fake-video-model",
				MaxSceneSeconds:     6,
				PollIntervalSeconds: 0,
				SceneTimeoutSeconds: 5,
				RateLimit:           10,
			}
		}
		state.config = config
	}
	return state.config
}

// GetTestReelMessageText returns a JSON payload shaped like a reel request
// published to the intake subscription.
func GetTestReelMessageText() string {
	return `{
  "prompt": "A barista crafting latte art in a sunlit cafe",
  "duration_seconds": 12,
  "script": {
    "hook": "Watch milk turn into art.",
    "scenes": [
      { "visual": "Close-up of espresso pouring into a ceramic cup", "dialogue": "It starts with a perfect shot." },
      { "visual": "Steamed milk swirling into a rosetta pattern" }
    ]
  }
}`
}

// FakeOutcome scripts how the fake model treats one scene.
type FakeOutcome struct {
	Fail          bool          // Terminal failure instead of success.
	FailureReason string        // Reason reported on failure.
	PendingPolls  int           // Number of polls that report pending before the terminal state.
	SubmitDelay   time.Duration // Artificial latency before Submit returns.
	Bytes         []byte        // Clip bytes on success; defaults to a per-scene marker.
}

// FakeVideoModel is a scriptable in-memory implementation of
// cloud.VideoGenerationModel. Outcomes are keyed by scene number, which the
// fake recovers from the "scene N of M" marker every composed prompt
// carries. Scenes without an explicit outcome succeed immediately.
type FakeVideoModel struct {
	Name     string
	Outcomes map[int]FakeOutcome

	mu         sync.Mutex
	operations map[string]*fakeOperation
	submits    int
}

type fakeOperation struct {
	scene     int
	outcome   FakeOutcome
	pollsDone int
}

var scenePromptMarker = regexp.MustCompile(`scene (\d+) of`)

// NewFakeVideoModel builds a fake with the given per-scene outcomes.
func NewFakeVideoModel(outcomes map[int]FakeOutcome) *FakeVideoModel {
	return &FakeVideoModel{
		Name:       "fake-video-model",
		Outcomes:   outcomes,
		operations: make(map[string]*fakeOperation),
	}
}

// ModelName implements cloud.VideoGenerationModel.
func (f *FakeVideoModel) ModelName() string { return f.Name }

// SubmitCount reports how many submissions the fake accepted.
func (f *FakeVideoModel) SubmitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

// Submit implements cloud.VideoGenerationModel by parsing the scene number
// out of the prompt and registering a scripted operation for it.
func (f *FakeVideoModel) Submit(ctx goctx.Context, prompt string, durationSeconds float64) (string, error) {
	m := scenePromptMarker.FindStringSubmatch(prompt)
	if m == nil {
		return "", fmt.Errorf("prompt carries no scene marker: %q", prompt)
	}
	scene, _ := strconv.Atoi(m[1])

	outcome := f.Outcomes[scene]
	if outcome.SubmitDelay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(outcome.SubmitDelay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	opName := fmt.Sprintf("operations/fake-%d", scene)
	f.operations[opName] = &fakeOperation{scene: scene, outcome: outcome}
	return opName, nil
}

// Poll implements cloud.VideoGenerationModel against the scripted outcomes.
func (f *FakeVideoModel) Poll(ctx goctx.Context, opName string) (*cloud.VideoOperationStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.operations[opName]
	if !ok {
		return nil, fmt.Errorf("unknown video operation: %s", opName)
	}

	if op.pollsDone < op.outcome.PendingPolls {
		op.pollsDone++
		return &cloud.VideoOperationStatus{State: cloud.VideoOperationPending}, nil
	}

	if op.outcome.Fail {
		reason := op.outcome.FailureReason
		if reason == "" {
			reason = "scripted failure"
		}
		return &cloud.VideoOperationStatus{State: cloud.VideoOperationFailed, FailureReason: reason}, nil
	}

	data := op.outcome.Bytes
	if data == nil {
		data = []byte(fmt.Sprintf("clip-data-%d", op.scene))
	}
	return &cloud.VideoOperationStatus{State: cloud.VideoOperationSucceeded, VideoBytes: data}, nil
}

// WriteFakeConcatTool writes an executable shell script into dir that speaks
// just enough of FFmpeg's concat command line for the stitcher: it reads the
// manifest named after -i and appends each listed file to the final argument.
// Returns the script path.
func WriteFakeConcatTool(t *testing.T, dir string) string {
	t.Helper()

	script := `#!/bin/sh
manifest=""
prev=""
out=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then manifest="$a"; fi
  prev="$a"
  out="$a"
done
: > "$out"
sed -n "s/^file '\(.*\)'$/\1/p" "$manifest" | while IFS= read -r f; do
  cat "$f" >> "$out"
done
`
	path := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake concat tool: %v", err)
	}
	return path
}

// WriteBrokenConcatTool writes an executable shell script into dir that
// mimics a concat tool dying mid-copy: it leaves a partial output file behind
// and exits non-zero. Returns the script path.
func WriteBrokenConcatTool(t *testing.T, dir string) string {
	t.Helper()

	script := `#!/bin/sh
out=""
for a in "$@"; do out="$a"; done
printf 'partial' > "$out"
exit 1
`
	path := filepath.Join(dir, "broken-ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write broken concat tool: %v", err)
	}
	return path
}
