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
// optional last step of the reel pipeline: streaming the stitched reel to a
// Cloud Storage bucket. The step is a no-op when no artifact bucket is
// configured, so local-only deployments simply leave the bucket unset. The
// local file is left in place either way; upload is an additional copy, not
// a move.
package commands

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/reelforge/reelforge/internal/core/cor"
)

// ReelArtifactUpload uploads the stitched reel to the configured bucket under
// a reels/ prefix and publishes the resulting gs:// URI.
type ReelArtifactUpload struct {
	cor.BaseCommand
	client *storage.Client
	bucket string
}

// NewReelArtifactUpload is the constructor for the upload command.
func NewReelArtifactUpload(name string, client *storage.Client, bucket string) *ReelArtifactUpload {
	return &ReelArtifactUpload{BaseCommand: *cor.NewBaseCommand(name), client: client, bucket: bucket}
}

// IsExecutable gates the step on an artifact bucket being configured, which
// is how the upload is switched off entirely.
func (c *ReelArtifactUpload) IsExecutable(context cor.Context) bool {
	return c.bucket != "" && c.client != nil && c.BaseCommand.IsExecutable(context)
}

// Execute streams the reel file to the bucket.
func (c *ReelArtifactUpload) Execute(context cor.Context) {
	path := context.Get(c.GetInputParam()).(string)
	objectName := "reels/" + filepath.Base(path)

	dat, err := os.Open(path)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to open reel %s: %w", path, err))
		return
	}
	defer func() {
		_ = dat.Close()
	}()

	obj := c.client.Bucket(c.bucket).Object(objectName)
	writer := obj.NewWriter(context.GetContext())

	if written, err := io.Copy(writer, dat); err != nil {
		log.Printf("failed to copy to GCS or partial write: %d total bytes, %v\n", written, err)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		_ = writer.Close()
		return
	}
	// Close finalizes the object; an upload is not durable until it returns.
	if err := writer.Close(); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to finalize GCS upload: %w", err))
		return
	}

	uri := fmt.Sprintf("gs://%s/%s", c.bucket, objectName)
	log.Printf("uploaded reel to %s", uri)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetArtifactURIParameterName(), uri)
	context.Add(c.GetOutputParam(), uri)
	context.Add(cor.CtxOut, uri)
}
