package lvc

import "time"

// OperationRecord is one row of the operation journal.
type OperationRecord struct {
	ID         int64      `json:"id"`
	Operation  string     `json:"operation"`
	Parameters string     `json:"parameters"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
}

// GCRunRecord is the stored summary of one collection pass.
type GCRunRecord struct {
	ID              int64     `json:"id"`
	OperationID     int64     `json:"operation_id"`
	RanAt           time.Time `json:"ran_at"`
	DryRun          bool      `json:"dry_run"`
	Aggressive      bool      `json:"aggressive"`
	RemovedObjects  int       `json:"removed_objects"`
	FreedBytes      int64     `json:"freed_bytes"`
	PrunedSnapshots int       `json:"pruned_snapshots"`
}

// Journal records the CLI operations that mutated a repository.
type Journal interface {
	// CreateOperation inserts a running operation and returns it with its assigned ID.
	CreateOperation(operation, parameters string, startedAt time.Time) (*OperationRecord, error)

	// FinishOperation sets the final status and finish time of an operation.
	FinishOperation(id int64, status string, finishedAt time.Time) error

	// RecordGC stores the summary of a collection pass run by an operation.
	RecordGC(operationID int64, report *GCReport, aggressive bool, at time.Time) error

	// ListGCRuns returns up to limit collection summaries, newest first.
	ListGCRuns(limit int) ([]*GCRunRecord, error)

	// ListOperations returns up to limit operations, newest first.
	ListOperations(limit int) ([]*OperationRecord, error)

	// Close closes the underlying connection.
	Close() error
}
