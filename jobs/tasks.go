package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/qarzbook/qarzbook/internal/jobs"
	"github.com/qarzbook/qarzbook/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	TaskIrregularScan    = "ledger:irregular_scan"
	TaskDiscrepancyCheck = "ledger:discrepancy_check"
	TaskExportSnapshot   = "ledger:export_snapshot"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// LedgerSource is the ledger view a job works on. Reload is called before each
// run so the worker sees writes made by the API process.
type LedgerSource interface {
	Reload(ctx context.Context) error
	Snapshot() ledger.State
}

// IrregularScanPayload tunes the irregular payment scan. Zero uses the
// configured sigma.
type IrregularScanPayload struct {
	Sigma float64 `json:"sigma,omitempty"`
}

// ExportSnapshotPayload names the day the snapshot is filed under. Empty means
// today.
type ExportSnapshotPayload struct {
	Date string `json:"date,omitempty"`
}

// NewIrregularScanTask builds an irregular payment scan task.
func NewIrregularScanTask(sigma float64) (*asynq.Task, error) {
	return newTask(TaskIrregularScan, IrregularScanPayload{Sigma: sigma})
}

// NewDiscrepancyCheckTask builds a balance discrepancy check task.
func NewDiscrepancyCheckTask() (*asynq.Task, error) {
	return newTask(TaskDiscrepancyCheck, struct{}{})
}

// NewExportSnapshotTask builds an export snapshot task.
func NewExportSnapshotTask(date string) (*asynq.Task, error) {
	return newTask(TaskExportSnapshot, ExportSnapshotPayload{Date: date})
}

// NewTaskByName builds a task with its default payload from a short or full task
// name, as typed on the command line.
func NewTaskByName(name string) (*asynq.Task, error) {
	full := name
	if !strings.Contains(name, ":") {
		full = "ledger:" + name
	}
	switch full {
	case TaskIrregularScan:
		return NewIrregularScanTask(0)
	case TaskDiscrepancyCheck:
		return NewDiscrepancyCheckTask()
	case TaskExportSnapshot:
		return NewExportSnapshotTask("")
	default:
		return nil, fmt.Errorf("jobs: unsupported job %s", name)
	}
}

func newTask(typename string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typename, data), nil
}
