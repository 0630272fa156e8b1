// Package controller exposes the runner HTTP endpoints.
package controller

import (
	"context"

	"autograder/internal/runner/sandbox/result"
	"autograder/internal/runner/sandbox/spec"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ExecuteRequest is the wire shape of one execution call.
type ExecuteRequest struct {
	AssignmentID string `json:"assignment_id" binding:"required"`
	StudentID    string `json:"student_id" binding:"required"`
	Source       string `json:"source" binding:"required"`
}

// Executor is the service capability the controller needs.
type Executor interface {
	Execute(ctx context.Context, source spec.SubmissionSource) (result.ExecutionResult, error)
}

// ExecuteController handles submission execution requests.
type ExecuteController struct {
	service Executor
}

func NewExecuteController(service Executor) *ExecuteController {
	return &ExecuteController{service: service}
}

// Execute runs one submission and returns its ExecutionResult. Submission
// misbehavior (timeout, crash, disallowed import) is a 200 with the outcome
// in the body; only caller and system errors map to error statuses.
func (c *ExecuteController) Execute(ctx *gin.Context) {
	var req ExecuteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, appErr.Wrap(err, appErr.InvalidParams))
		return
	}

	res, err := c.service.Execute(ctx.Request.Context(), spec.SubmissionSource{
		Code:         req.Source,
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
	})
	if err != nil {
		response.Error(ctx, err)
		return
	}
	response.Success(ctx, res)
}

// Health reports service liveness.
func (c *ExecuteController) Health(ctx *gin.Context) {
	response.Success(ctx, gin.H{"status": "ok"})
}
