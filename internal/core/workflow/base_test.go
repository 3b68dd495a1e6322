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
// workflow. This file provides the shared setup for the suite: structured
// logging and an OpenTelemetry-bridged logger, so test runs produce the same
// record shape the server does.
package workflow_test

import (
	"os"
	"testing"

	"github.com/reelforge/reelforge/internal/telemetry"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "github.com/reelforge/reelforge/tests/workflow"

var logger = otelslog.NewLogger(tName)

// TestMain initializes logging once for the whole package before the tests
// run. The pipeline under test runs entirely against local fakes, so no cloud
// clients are created here.
func TestMain(m *testing.M) {
	telemetry.SetupLogging()
	logger.Info("completed test setup")

	os.Exit(m.Run())
}
