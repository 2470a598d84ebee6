package runhistory

import (
	"time"

	"github.com/google/uuid"
)

// Run records one Debug() session from launch to exit.
type Run struct {
	ID          uuid.UUID
	RootPID     uint32
	CommandLine string
	StartedAt   time.Time
	FinishedAt  *time.Time
	ExitCode    *int
	CrashCount  int
	Status      Status
}

// Status is the lifecycle state of a Run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCrashed   Status = "crashed"
)

// Dump records a single minidump captured during a Run.
type Dump struct {
	ID             uuid.UUID
	RunID          uuid.UUID
	PID            uint32
	ExceptionKind  string
	ExceptionCode  string
	CapturedAt     time.Time
	ContentHash    string
	Location       string
}
