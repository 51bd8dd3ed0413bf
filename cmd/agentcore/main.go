// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	agentcorehttp "agentcore/api/http"
	"agentcore/api/http/middleware"
	"agentcore/approval"
	"agentcore/checkpoint"
	"agentcore/event"
	"agentcore/intent"
	"agentcore/lifecycle"
	"agentcore/memory"
	"agentcore/mode"
	appconfig "agentcore/pkg/config"
	"agentcore/pkg/effects"
	"agentcore/pkg/evidence"
	logpkg "agentcore/pkg/log"
	"agentcore/pkg/redaction"
	"agentcore/pkg/tracing"
	"agentcore/scope"
	"agentcore/state"
	"agentcore/tool"
)

func main() {
	configPath := os.Getenv("AGENTCORE_CONFIG")
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logpkg.NewLogger(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}

	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    cfg.Tracing.ServiceName,
			ExportEndpoint: cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
		})
		if err != nil {
			logger.Error("tracing disabled: init failed", "error", err)
		} else {
			tp = provider
		}
	}

	eventStore, err := buildEventStore(context.Background(), cfg.EventStore)
	if err != nil {
		log.Fatalf("building event store: %v", err)
	}
	bus := event.NewBus(eventStore, logger)

	if ptr, err := state.LoadPointer(cfg.State.Dir); err != nil {
		logger.Error("loading active-task pointer", "error", err)
	} else if offer := state.ComputeRecoveryOffer(ptr); offer.Offered {
		logger.Warn("previous run did not exit cleanly",
			"task_id", offer.TaskID, "status", string(offer.Status), "reason", offer.Reason)
	}

	// Keep the on-disk active-task pointer current with every appended
	// event, so a crash leaves an accurate recovery offer behind.
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		events, err := bus.Store().GetByTask(ctx, e.TaskID)
		if err != nil {
			logger.Error("reducing task for pointer update", "task_id", e.TaskID, "error", err)
			return
		}
		if err := state.SavePointer(cfg.State.Dir, state.PointerFromState(state.ReduceForTask(e.TaskID, events))); err != nil {
			logger.Error("saving active-task pointer", "task_id", e.TaskID, "error", err)
		}
	})

	checkpointStore, err := buildCheckpointStore(context.Background(), cfg.CheckpointStore)
	if err != nil {
		log.Fatalf("building checkpoint store: %v", err)
	}

	memoryStore, err := buildMemoryStore(cfg.Memory.SolutionStore)
	if err != nil {
		log.Fatalf("building memory store: %v", err)
	}

	modeMgr := mode.NewManager(bus)
	scopeMgr := scope.NewManager(bus, cfg.RateLimits.ToolCalls.QPS, cfg.RateLimits.ToolCalls.Burst)
	approvalMgr := approval.NewManager(bus, logger)
	memoryMgr := memory.NewManager(memoryStore, bus, cfg.Memory.TopK, cfg.Memory.RecencyDecayHours)
	lifecycleCtl := lifecycle.NewController(bus)
	intentRouter := intent.NewRouter()

	evidenceStore := evidence.NewStore()
	evidenceBuilder := evidence.NewBuilder(evidenceStore)
	effectSystem := effects.NewMemorySystem()

	redactionPolicy := redaction.LoadPolicyFromConfig(toRedactionPolicyConfig(cfg.Redaction))

	workspaceRoot, err := os.Getwd()
	if err != nil {
		log.Fatalf("resolving workspace root: %v", err)
	}
	toolExecutor := tool.NewExecutor(bus, modeMgr, scopeMgr, approvalMgr, checkpointStore, evidenceBuilder, redactionPolicy, effectSystem, workspaceRoot)

	handler := agentcorehttp.NewHandler(bus, intentRouter, lifecycleCtl, modeMgr, scopeMgr, approvalMgr, memoryMgr, toolExecutor, workspaceRoot)
	mw := middleware.New(logger)
	router := agentcorehttp.NewRouter(handler, mw)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	if cfg.API.Host != "" && cfg.API.Host != "0.0.0.0" {
		addr = fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	}
	server := router.Build(addr)

	go func() {
		server.Spin()
	}()
	logger.Info("agentcore listening", "addr", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		logger.Error("shutdown error", "error", err)
	}
	if tp != nil {
		_ = tp.Shutdown(ctx)
	}
	if err := state.MarkCleanExit(cfg.State.Dir); err != nil {
		logger.Error("marking clean exit", "error", err)
	}
	logger.Info("agentcore shut down")
}

func buildEventStore(ctx context.Context, cfg appconfig.EventStoreConfig) (event.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return event.NewMemoryStore(), nil
	case "file":
		return event.NewFileStore(cfg.Path)
	case "postgres":
		return event.NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown event_store.type %q", cfg.Type)
	}
}

func buildCheckpointStore(ctx context.Context, cfg appconfig.CheckpointStoreConfig) (checkpoint.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return checkpoint.NewMemoryStore(), nil
	case "postgres":
		return checkpoint.NewPostgresStore(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown checkpoint_store.type %q", cfg.Type)
	}
}

func buildMemoryStore(cfg appconfig.SolutionStoreConfig) (memory.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.NewMemoryStore(), nil
	case "redis":
		return memory.NewRedisStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown memory.solution_store.type %q", cfg.Type)
	}
}

func toRedactionPolicyConfig(cfg appconfig.RedactionConfig) redaction.PolicyConfig {
	policies := make([]redaction.ToolPolicyConfig, 0, len(cfg.Policies))
	for _, p := range cfg.Policies {
		fields := make([]redaction.FieldMaskConfig, 0, len(p.Fields))
		for _, f := range p.Fields {
			fields = append(fields, redaction.FieldMaskConfig{
				Path: f.Path,
				Mode: redaction.RedactionMode(f.Mode),
				Salt: f.Salt,
			})
		}
		policies = append(policies, redaction.ToolPolicyConfig{Tool: p.Tool, Fields: fields})
	}
	return redaction.PolicyConfig{Enable: cfg.Enable, Policies: policies}
}
