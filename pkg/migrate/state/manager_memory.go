package state

import (
	"sync"
	"time"
)

// MemoryManager : Manager kept for the lifetime of the process
type MemoryManager struct {
	mu     sync.Mutex
	runs   []*RunLog
	tables map[string][]*TableRunLog
	now    func() time.Time
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		tables: make(map[string][]*TableRunLog),
		now:    time.Now,
	}
}

func (m *MemoryManager) OnShutDownEv() {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.lastRun()
	if run == nil || run.Status != Started {
		return
	}
	run.Status = Aborted
	run.UpdatedAt = m.currentTime()
	for _, t := range m.tables[run.RunID] {
		if t.Status == Started {
			t.Status = Aborted
			t.UpdatedAt = m.currentTime()
		}
	}
}

func (m *MemoryManager) GetRunLog(runID string) *RunLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRun(m.run(runID))
}

func (m *MemoryManager) GetTableRunLogs(runID string) []*TableRunLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]*TableRunLog, 0, len(m.tables[runID]))
	for _, t := range m.tables[runID] {
		cp := *t
		res = append(res, &cp)
	}
	return res
}

func (m *MemoryManager) InitRunLog(runID string, totalTableCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, &RunLog{
		RunID:                 runID,
		TotalTablesForThisRun: totalTableCount,
		Status:                Started,
		Base:                  Base{CreatedAt: m.currentTime(), UpdatedAt: m.currentTime()},
	})
}

func (m *MemoryManager) FailedRunLog(runID string, err error) {
	m.updateRunStatus(runID, Failed, err)
}

func (m *MemoryManager) PassedRunLog(runID string) {
	m.updateRunStatus(runID, Success, nil)
}

func (m *MemoryManager) InitTableRunLog(runID string, dbName string, tableName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[runID] = append(m.tables[runID], &TableRunLog{
		ParentRunID: runID,
		DBName:      dbName,
		TableName:   tableName,
		Status:      Started,
		Base:        Base{CreatedAt: m.currentTime(), UpdatedAt: m.currentTime()},
	})
}

func (m *MemoryManager) FailedTableRun(runID string, dbName string, tableName string, err error) {
	m.updateTableRunStatus(runID, dbName, tableName, Failed, TableCounts{}, err)
}

func (m *MemoryManager) PassedTableRun(runID string, dbName string, tableName string, counts TableCounts) {
	m.updateTableRunStatus(runID, dbName, tableName, Success, counts, nil)
}

func (m *MemoryManager) updateRunStatus(runID string, status RunLogState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.run(runID)
	if run == nil {
		return
	}
	run.Status = status
	run.UpdatedAt = m.currentTime()
	if err != nil {
		run.ErrMsg = err.Error()
	}
	if status == Failed {
		for _, t := range m.tables[runID] {
			if t.Status == Started {
				t.Status = Aborted
			}
		}
	}
}

func (m *MemoryManager) updateTableRunStatus(runID string, dbName string, tableName string, status RunLogState, counts TableCounts, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables[runID] {
		if t.DBName != dbName || t.TableName != tableName {
			continue
		}
		t.Status = status
		t.RowWritten = counts.Written
		t.RowSkipped = counts.Skipped
		t.RowFailed = counts.Failed
		t.UpdatedAt = m.currentTime()
		if err != nil {
			t.ErrMsg = err.Error()
		}
	}
}

func (m *MemoryManager) lastRun() *RunLog {
	if len(m.runs) == 0 {
		return nil
	}
	return m.runs[len(m.runs)-1]
}

func (m *MemoryManager) run(runID string) *RunLog {
	for _, r := range m.runs {
		if r.RunID == runID {
			return r
		}
	}
	return nil
}

func (m *MemoryManager) currentTime() *time.Time {
	now := m.now()
	return &now
}

func copyRun(r *RunLog) *RunLog {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
