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

// Package cor (Chain of Responsibility) provides the building blocks for
// assembling pipeline workflows out of small, independently testable
// commands. A Chain runs Commands in order, piping each command's primary
// output into the next command's primary input through a shared Context.
// Errors are collected on the Context rather than returned, which lets a
// workflow inspect everything that happened after the chain stops.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the reserved context keys that carry the primary data
// flow between adjacent commands in a chain.
const (
	// CtxIn is the default input key. The chain fills it with the previous
	// command's output before each step.
	CtxIn = "__IN__"
	// CtxOut is the default output key a command writes its primary result to.
	CtxOut = "__OUT__"
)

// Context is the shared state for one workflow execution: a property bag for
// data, an error map keyed by command name, and a list of temporary files to
// delete when the run is over. It also carries the standard Go context so
// cancellation and trace propagation reach every command.
type Context interface {
	// SetContext sets the Go context used for cancellation and tracing.
	SetContext(ctx context.Context)

	// GetContext returns the current Go context.
	GetContext() context.Context

	// Add stores a key-value pair and returns the Context for chaining.
	Add(key string, value interface{}) Context

	// Get returns the value stored under key, or nil.
	Get(key string) interface{}

	// Remove deletes the value stored under key.
	Remove(key string)

	// AddError records an error under the name of the command that hit it.
	AddError(key string, err error)

	// GetErrors returns every error recorded during the run.
	GetErrors() map[string]error

	// HasErrors reports whether any command has recorded an error.
	HasErrors() bool

	// AddTempFile registers a file for deletion when Close is called.
	AddTempFile(file string)

	// GetTempFiles returns the registered temporary file paths.
	GetTempFiles() []string

	// Close deletes every registered temporary file. Defer it at the start
	// of a workflow.
	Close()
}

// Executable is anything with core execution logic driven by a Context.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of pipeline work.
type Command interface {
	Executable

	// GetName identifies the command in logs, traces, and the error map.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter counts successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter counts failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands and is itself a Command, so chains
// nest. Execution stops at the first recorded error unless ContinueOnFailure
// is set, and at the first cancellation of the run's Go context regardless.
type Chain interface {
	Command

	// ContinueOnFailure configures whether later commands still run after an
	// earlier one records an error.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
