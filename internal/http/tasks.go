package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
)

// TasksController exposes the overdue sweep schedule and task status to
// staff.
type TasksController struct {
	sweep SweepScheduler
	tasks TaskStatusReader
}

func NewTasksController(sweep SweepScheduler, tasks TaskStatusReader) *TasksController {
	return &TasksController{sweep: sweep, tasks: tasks}
}

type SweepStatus struct {
	Scheduled bool       `json:"scheduled"`
	Running   bool       `json:"running"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// SweepStatus reports whether the overdue sweep is scheduled and when it
// fires next.
// GET /catalog/sweep/
func (tc *TasksController) SweepStatus(c *gin.Context) {
	status := SweepStatus{}
	if tc.sweep != nil {
		status.Scheduled = true
		status.Running = tc.sweep.IsRunning()
		status.NextRun = tc.sweep.NextRun()
	}
	c.JSON(http.StatusOK, status)
}

// RunSweep enqueues an overdue sweep outside the schedule.
// POST /catalog/sweep/run/
func (tc *TasksController) RunSweep(c *gin.Context) {
	if tc.sweep == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "overdue sweep is not enabled"})
		return
	}

	ids, err := tc.sweep.RunNow()
	if err != nil {
		respondInternalError(c, err, "run overdue sweep")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_ids": ids,
		"message":  "task enqueued",
	})
}

// GetTaskStatus returns the state of a background task.
// GET /catalog/task/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is not enabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	taskID := c.Param("id")
	status, err := tc.tasks.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	if status == backlite.TaskStatusNotFound {
		respondNotFound(c, "task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
