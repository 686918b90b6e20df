package database

import (
	"time"

	"lvc-go/internal/lvc"
)

// NopJournal discards every record. It backs journal type "none".
type NopJournal struct {
	nextID int64
}

func (n *NopJournal) CreateOperation(operation, parameters string, startedAt time.Time) (*lvc.OperationRecord, error) {
	n.nextID++
	return &lvc.OperationRecord{ID: n.nextID, Operation: operation, Parameters: parameters, StartedAt: startedAt, Status: "running"}, nil
}

func (n *NopJournal) FinishOperation(int64, string, time.Time) error { return nil }

func (n *NopJournal) RecordGC(int64, *lvc.GCReport, bool, time.Time) error { return nil }

func (n *NopJournal) ListOperations(int) ([]*lvc.OperationRecord, error) { return nil, nil }

func (n *NopJournal) ListGCRuns(int) ([]*lvc.GCRunRecord, error) { return nil, nil }

func (n *NopJournal) Close() error { return nil }

var _ lvc.Journal = (*NopJournal)(nil)
