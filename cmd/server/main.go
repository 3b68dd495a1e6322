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

// Package main is the entry point for the reel synthesis server.
//
// The application runs a Gin web server exposing the reel synthesis API and,
// in parallel, listens on a Pub/Sub subscription for message-driven reel
// requests. Both entry points drive the same pipeline workflow. The server
// is instrumented with OpenTelemetry for logging, tracing, and metrics.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/reelforge/reelforge/internal/core/model"
	"github.com/reelforge/reelforge/internal/telemetry"
)

// main wires logging, telemetry, state, routes, and listeners, then serves
// until an interrupt arrives and shuts down gracefully.
func main() {
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config := GetConfig()

	_, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	apiV1 := r.Group("/api/v1")
	{
		ReelRouter(apiV1)
		HealthRouter(apiV1)
	}

	srv := &http.Server{
		Addr:        ":8080",
		Handler:     r,
		ReadTimeout: 20 * time.Second,
		// Reel synthesis requests are long-running; the write timeout has to
		// cover a full pipeline run, not a typical request.
		WriteTimeout: 30 * time.Minute,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen: ", "error", err)
		}
	}()
	slog.Info("Server Ready on port 8080")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}

// ReelRouter registers the reel synthesis endpoint.
//
// POST /reels accepts a JSON ReelRequest and runs the full pipeline
// synchronously, returning the PipelineResult. The result reports failures
// in its body rather than through status codes, so a run whose scenes partly
// failed still returns 200 with the detail; only an invalid request body is
// a 400.
func ReelRouter(r *gin.RouterGroup) {
	reels := r.Group("/reels")
	{
		reels.POST("", func(c *gin.Context) {
			var request model.ReelRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			result := state.reelPipeline.Run(c.Request.Context(), &request)
			c.JSON(http.StatusOK, result)
		})
	}
}

// HealthRouter registers the liveness endpoint. It reports whether the
// stitching tool is present so a misconfigured host is visible before the
// first run fails.
func HealthRouter(r *gin.RouterGroup) {
	r.GET("/healthz", func(c *gin.Context) {
		ffmpeg := state.config.Application.FfmpegPath
		if ffmpeg == "" {
			ffmpeg = "ffmpeg"
		}
		_, err := exec.LookPath(ffmpeg)
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"stitch_tool":      ffmpeg,
			"stitch_available": err == nil,
		})
	})
}
