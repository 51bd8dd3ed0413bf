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

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"agentcore/api/http/middleware"
)

// Router assembles agentcore's Hertz engine from a Handler and middleware.
type Router struct {
	handler *Handler
	mw      *middleware.Middleware
}

// NewRouter creates a Router. mw may be nil, in which case default
// middleware (permissive CORS, access log to the package default logger)
// is used.
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	if mw == nil {
		mw = middleware.New(nil)
	}
	return &Router{handler: handler, mw: mw}
}

// Build creates a Hertz engine bound to addr and registers every route.
// opts is forwarded to server.Default, e.g. for tracer wiring.
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	allOpts := append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(allOpts...)

	h.Use(r.mw.AccessLog())
	h.Use(r.mw.CORS())

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.GET("/metrics", r.handler.Metrics)

	tasks := api.Group("/tasks")
	{
		tasks.POST("/:task_id/intent", r.handler.SubmitIntent)
		tasks.POST("/:task_id/clarification", r.handler.AnswerClarification)
		tasks.POST("/:task_id/scope-expansion/resolve", r.handler.ResolveScopeExpansion)
		tasks.POST("/:task_id/pause", r.handler.PauseTask)
		tasks.POST("/:task_id/resume", r.handler.ResumeTask)
		tasks.POST("/:task_id/stop", r.handler.StopTask)
		tasks.POST("/:task_id/cancel", r.handler.CancelTask)
		tasks.POST("/:task_id/plan/supersede", r.handler.SupersedePlan)
		tasks.GET("/:task_id/state", r.handler.GetTaskState)
		tasks.GET("/:task_id/events", r.handler.GetTaskEvents)
		tasks.GET("/:task_id/events/normalized", r.handler.GetNormalizedEvents)
		tasks.POST("/:task_id/memory/facts", r.handler.UpdateFacts)
		tasks.GET("/:task_id/memory/facts", r.handler.GetFacts)
		tasks.GET("/:task_id/evidence/export", r.handler.ExportEvidence)
		tasks.POST("/:task_id/tools/execute", r.handler.ExecuteTool)
	}

	evidence := api.Group("/evidence")
	evidence.POST("/verify", r.handler.VerifyEvidence)

	approvals := api.Group("/approvals")
	approvals.POST("/:approval_id/resolve", r.handler.ResolveApproval)

	plan := api.Group("/plan")
	plan.POST("/detect", r.handler.DetectPlan)

	solutions := api.Group("/memory/solutions")
	{
		solutions.POST("/", r.handler.CaptureSolution)
		solutions.GET("/", r.handler.QuerySolutions)
	}

	return h
}
