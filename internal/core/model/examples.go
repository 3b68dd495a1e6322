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

// Package model defines the core data structures for the reel synthesis
// pipeline. This file provides canonical example values. They document the
// request shape for API consumers and give the test suite a realistic,
// shared fixture.
package model

// GetExampleScript returns a small, fully populated script of the kind the
// conversational agent layer produces for a 30-second product reel.
func GetExampleScript() *ScriptData {
	return &ScriptData{
		Hook:   "Your morning coffee, but make it effortless.",
		Script: "A barista pours a perfect latte while the cafe wakes up around her.",
		Scenes: []*ScriptScene{
			{Visual: "A barista in a denim apron steams milk behind a sunlit counter", Dialogue: "Every morning starts the same way."},
			{Visual: "Close-up of espresso streaming into a ceramic cup", Dialogue: "Except here, it starts better."},
			{Visual: "The barista slides the finished latte across the counter to a smiling customer"},
		},
	}
}

// GetExampleRequest returns a complete reel request built on the example
// script.
func GetExampleRequest() *ReelRequest {
	return &ReelRequest{
		Prompt:          "A cozy neighborhood cafe at sunrise, warm and inviting",
		DurationSeconds: 30,
		Script:          GetExampleScript(),
	}
}
