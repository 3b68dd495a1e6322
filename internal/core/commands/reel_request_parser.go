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
// parser that turns a raw Pub/Sub message payload into a validated
// ReelRequest. The HTTP surface binds and validates through gin instead, so
// this command only fronts the message-driven entry point.
package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reelforge/reelforge/internal/core/cor"
	"github.com/reelforge/reelforge/internal/core/model"
)

// ReelRequestParser decodes a JSON reel request from the chain input.
type ReelRequestParser struct {
	cor.BaseCommand
}

// NewReelRequestParser is the constructor for the parser command.
func NewReelRequestParser(name string) *ReelRequestParser {
	return &ReelRequestParser{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute unmarshals and validates the request, then pipes it onward. A
// malformed or invalid message records an error, which leaves the message
// unacked for redelivery.
func (c *ReelRequestParser) Execute(context cor.Context) {
	payload := context.Get(c.GetInputParam()).(string)

	request := &model.ReelRequest{}
	if err := json.Unmarshal([]byte(payload), request); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to parse reel request: %w", err))
		return
	}

	if strings.TrimSpace(request.Prompt) == "" {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("reel request is missing a prompt"))
		return
	}
	if request.DurationSeconds <= 0 {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), model.ErrInvalidDuration)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetReelRequestParameterName(), request)
	context.Add(c.GetOutputParam(), request)
	context.Add(cor.CtxOut, request)
}
