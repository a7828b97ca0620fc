// Package httpapi exposes the execution and scheduling subsystem's HTTP
// surface: running/triggering/testing a workflow, reading its execution
// history, managing jobs, and upgrading the per-workflow execution feed to a
// WebSocket.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/floworc/engine/internal/config"
	"github.com/floworc/engine/internal/domain"
	"github.com/floworc/engine/internal/logger"
	"github.com/floworc/engine/internal/ws"
)

// WorkflowLoader loads a workflow graph by ID.
type WorkflowLoader interface {
	FindByID(ctx context.Context, id string) (*domain.Workflow, error)
}

// Executor runs a workflow to completion.
type Executor interface {
	Run(ctx context.Context, workflow *domain.Workflow, triggerData map[string]any) (*domain.Execution, error)
}

// ExecutionHistory reads back past executions and their logs.
type ExecutionHistory interface {
	ListExecutions(ctx context.Context, workflowID string) ([]*domain.Execution, error)
	ListLogs(ctx context.Context, executionID string) ([]*domain.ExecutionLog, error)
}

// JobManager is the subset of the scheduler's query surface the HTTP layer
// needs.
type JobManager interface {
	ListByUser(userID string) []*domain.Job
	Cancel(ctx context.Context, id string) error
}

// Server wires the HTTP surface's dependencies and builds the gin router.
type Server struct {
	Workflows  WorkflowLoader
	Executor   Executor
	History    ExecutionHistory
	Jobs       JobManager
	WSHandler  *ws.Handler
	Logger     *logger.Logger
	JWT        config.JWTConfig
	CORS       []string
}

// NewRouter builds the gin.Engine for the HTTP surface.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())

	r.GET("/ws/executions/:workflow_id", func(c *gin.Context) {
		s.WSHandler.ServeHTTP(c.Writer, c.Request, c.Param("workflow_id"))
	})

	api := r.Group("/")
	if s.JWT.SecretKey != "" {
		api.Use(AuthMiddleware(s.JWT.SecretKey, s.JWT.Algorithm))
	}

	api.POST("/workflows/:id/run", s.handleRun)
	api.POST("/workflows/:id/trigger", s.handleRun)
	api.POST("/workflows/:id/test", s.handleTest)
	api.GET("/workflows/:id/history", s.handleHistory)
	api.GET("/jobs", s.handleListJobs)
	api.DELETE("/jobs/:id", s.handleCancelJob)

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.CORS))
	allowAll := false
	for _, o := range s.CORS {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRun(c *gin.Context) {
	workflowID := c.Param("id")

	var triggerData map[string]any
	if err := c.ShouldBindJSON(&triggerData); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	workflow, err := s.Workflows.FindByID(c.Request.Context(), workflowID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	exec, err := s.Executor.Run(c.Request.Context(), workflow, triggerData)
	if err != nil && exec == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exec)
}

// handleTest runs the workflow the same way handleRun does, but against a
// caller-supplied sample payload meant for dry runs against a staging
// e-mail/HTTP collaborator rather than production data. The executor itself
// has no separate test mode; callers are expected to point their configured
// collaborators at sandboxes when exercising this endpoint.
func (s *Server) handleTest(c *gin.Context) {
	s.handleRun(c)
}

func (s *Server) handleHistory(c *gin.Context) {
	workflowID := c.Param("id")
	executions, err := s.History.ListExecutions(c.Request.Context(), workflowID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type executionWithLogs struct {
		*domain.Execution
		Logs []*domain.ExecutionLog `json:"logs"`
	}

	out := make([]executionWithLogs, 0, len(executions))
	for _, e := range executions {
		logs, err := s.History.ListLogs(c.Request.Context(), e.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, executionWithLogs{Execution: e, Logs: logs})
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListJobs(c *gin.Context) {
	userID := userIDFromContext(c)
	c.JSON(http.StatusOK, s.Jobs.ListByUser(userID))
}

func (s *Server) handleCancelJob(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.Jobs.Cancel(ctx, id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
