// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianCAD/services/llm"
	"github.com/AleutianAI/AleutianCAD/services/schematic/config"
	"github.com/AleutianAI/AleutianCAD/services/schematic/document"
	"github.com/AleutianAI/AleutianCAD/services/schematic/history"
	"github.com/AleutianAI/AleutianCAD/services/schematic/planner"
	"github.com/AleutianAI/AleutianCAD/services/schematic/server"
	"github.com/AleutianAI/AleutianCAD/services/schematic/writer"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	// Tracing is opt-in for the demo server: without a collector endpoint
	// the SDK is not installed and spans are no-ops.
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("cadserver")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// buildLLMClient selects the backend from settings. Any failure here means
// the server runs without a backend and the planner serves demo plans.
func buildLLMClient(settings *config.Settings) llm.LLMClient {
	var client llm.LLMClient
	var err error
	switch settings.Backend {
	case "openai":
		var key string
		key, err = settings.APIKey()
		if err == nil {
			client, err = llm.NewOpenAIClient(key, settings.Model)
		}
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		client, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "claude", "anthropic":
		client, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic (Claude) LLM backend")
	case "llamacpp", "local":
		client, err = llm.NewLocalLlamaCppClient()
		slog.Info("Using Local Llama.cpp LLM backend")
	default:
		slog.Warn("no LLM backend configured, planner serves demo plans")
		return nil
	}
	if err != nil {
		slog.Warn("LLM backend unavailable, planner serves demo plans", "error", err)
		return nil
	}
	return client
}

func main() {
	port := os.Getenv("CADSERVER_PORT")
	if port == "" {
		port = "12230"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	settings, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Println("Configuring the LLM Client")
	var temp *float32
	if settings.Temperature != 0 {
		t := settings.Temperature
		temp = &t
	}
	p := planner.New(planner.Config{
		Client:      buildLLMClient(settings),
		Model:       settings.Model,
		Temperature: temp,
		Logger:      logger,
	})

	hist, err := history.Open(history.DefaultConfig(
		filepath.Join(config.ConfigDir(), "history")))
	if err != nil {
		log.Fatalf("failed to open history store: %v", err)
	}
	defer hist.Close()

	// The live document. SCHEMATIC_PATH makes it durable across restarts;
	// without it the server works on a fresh in-memory sheet.
	doc := document.NewMem()
	schematicPath := os.Getenv("SCHEMATIC_PATH")
	if schematicPath != "" {
		loaded, err := document.LoadMem(schematicPath)
		switch {
		case err == nil:
			doc = loaded
			slog.Info("loaded schematic", "path", schematicPath)
		case os.IsNotExist(err):
			slog.Info("schematic does not exist yet, starting empty", "path", schematicPath)
		default:
			log.Fatalf("failed to load schematic %s: %v", schematicPath, err)
		}
	}

	state := server.NewState(doc, writer.New(writer.Config{Logger: logger}), p, hist, logger)

	// The plan endpoint fronts a paid API: 30 requests a minute, small burst.
	planLimiter := rate.NewLimiter(rate.Every(2*time.Second), 5)

	router := gin.Default()
	router.Use(otelgin.Middleware("cadserver"))
	server.SetupRoutes(router, state, planLimiter)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("Starting the cadserver on port ", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	stop()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if schematicPath != "" {
		if err := state.Document().SerializeToPath(shutdownCtx, schematicPath); err != nil {
			slog.Error("failed to persist schematic on shutdown", "error", err)
		}
	}
}
