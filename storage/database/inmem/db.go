// Package inmemdb keeps every table in memory. It backs the tests and the API's demo mode.
package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/Shyamyemuka/goldenspire-learn/core"
	"github.com/Shyamyemuka/goldenspire-learn/core/approval"
	"github.com/Shyamyemuka/goldenspire-learn/core/auth"
	"github.com/Shyamyemuka/goldenspire-learn/core/course"
	"github.com/Shyamyemuka/goldenspire-learn/core/notification"
	"github.com/Shyamyemuka/goldenspire-learn/core/profile"
)

type tables struct {
	accounts      map[string]auth.Account
	sessions      map[string]auth.Session
	profiles      map[string]profile.Profile
	pending       map[string]approval.PendingApproval
	userRoles     map[string]approval.UserRole
	approvalLogs  map[string]approval.ApprovalLog
	notifications map[string]notification.Notification
	courses       map[string]course.Course
	enrollments   map[string]course.Enrollment
	assignments   map[string]course.Assignment
	submissions   map[string]course.Submission
}

func newTables() tables {
	return tables{
		accounts:      make(map[string]auth.Account),
		sessions:      make(map[string]auth.Session),
		profiles:      make(map[string]profile.Profile),
		pending:       make(map[string]approval.PendingApproval),
		userRoles:     make(map[string]approval.UserRole),
		approvalLogs:  make(map[string]approval.ApprovalLog),
		notifications: make(map[string]notification.Notification),
		courses:       make(map[string]course.Course),
		enrollments:   make(map[string]course.Enrollment),
		assignments:   make(map[string]course.Assignment),
		submissions:   make(map[string]course.Submission),
	}
}

type DB struct {
	mu sync.RWMutex
	tables
	// seq orders rows inserted within the same instant
	seq     map[string]int64
	nextSeq int64
	// failures holds one-shot errors returned by the named repository method
	failures map[string]error

	txMu sync.Mutex
}

func Open() *DB {
	return &DB{
		tables:   newTables(),
		seq:      make(map[string]int64),
		failures: make(map[string]error),
	}
}

// FailNext makes the next call to the named repository method (e.g. "CreateUserRole") fail with err.
func (db *DB) FailNext(method string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.failures[method] = err
}

// fail returns and clears the injected failure of method. Callers hold db.mu.
func (db *DB) fail(method string) error {
	if err, ok := db.failures[method]; ok {
		delete(db.failures, method)
		return err
	}
	return nil
}

// stamp records insertion order. Callers hold db.mu.
func (db *DB) stamp(id string) {
	if _, ok := db.seq[id]; !ok {
		db.nextSeq++
		db.seq[id] = db.nextSeq
	}
}

// newestFirst sorts ids by their creation time then insertion order, newest first.
func (db *DB) newestFirst(ids []string, createdAt func(id string) int64) {
	sort.SliceStable(ids, func(i, j int) bool {
		ti, tj := createdAt(ids[i]), createdAt(ids[j])
		if ti != tj {
			return ti > tj
		}
		return db.seq[ids[i]] > db.seq[ids[j]]
	})
}

// Counts reports table sizes, for assertions.
func (db *DB) Counts() map[string]int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return map[string]int{
		"accounts":      len(db.accounts),
		"sessions":      len(db.sessions),
		"profiles":      len(db.profiles),
		"pending":       len(db.pending),
		"user_roles":    len(db.userRoles),
		"approval_logs": len(db.approvalLogs),
		"notifications": len(db.notifications),
		"courses":       len(db.courses),
		"enrollments":   len(db.enrollments),
		"assignments":   len(db.assignments),
		"submissions":   len(db.submissions),
	}
}

// txn is the executor handed to a transaction's fn. Repository writes made with it record how to
// undo themselves; writes made without it are never rolled back.
type txn struct {
	core.DBExecutor // never called
	undo            []func()
}

// txnFrom returns the transaction among exec, if any.
func txnFrom(exec []core.DBExecutor) *txn {
	for _, e := range exec {
		if tx, ok := e.(*txn); ok {
			return tx
		}
	}
	return nil
}

// put sets m[id]. Callers hold db.mu.
func put[V any](exec []core.DBExecutor, m map[string]V, id string, v V) {
	remember(exec, m, id)
	m[id] = v
}

// del removes m[id]. Callers hold db.mu.
func del[V any](exec []core.DBExecutor, m map[string]V, id string) {
	remember(exec, m, id)
	delete(m, id)
}

func remember[V any](exec []core.DBExecutor, m map[string]V, id string) {
	tx := txnFrom(exec)
	if tx == nil {
		return
	}
	old, existed := m[id]
	tx.undo = append(tx.undo, func() {
		if existed {
			m[id] = old
		} else {
			delete(m, id)
		}
	})
}

type transactor struct {
	db *DB
}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor serializes transactions. When fn fails, the rows fn wrote through its executor are
// restored; writes made outside the transaction in the meantime are kept.
func NewTransactor(db *DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	tx := new(txn)
	rollback := func() {
		t.db.mu.Lock()
		defer t.db.mu.Unlock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		rollback()
	}
	return err
}
