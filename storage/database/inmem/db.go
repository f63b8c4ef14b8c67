// Package inmemdb provides in-memory repositories for tests and local dev.
package inmemdb

import (
	"errors"
	"sync"

	"github.com/trezcool/kazi/core/payment"
	"github.com/trezcool/kazi/core/review"
	"github.com/trezcool/kazi/core/submission"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

// errInjectedFailure is returned by repos whose Fail* switches are flipped
// in tests.
var errInjectedFailure = errors.New("injected write failure")

type DB struct {
	mutex       sync.RWMutex
	users       map[string]*user.User
	tasks       map[string]*task.Task
	submissions map[string]*submission.Submission
	reviews     map[string]*review.Review
	payments    map[string]*payment.Payment
}

func NewDB() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		tasks:       make(map[string]*task.Task),
		submissions: make(map[string]*submission.Submission),
		reviews:     make(map[string]*review.Review),
		payments:    make(map[string]*payment.Payment),
	}
}

// Reset drops all rows; used between tests.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users = make(map[string]*user.User)
	db.tasks = make(map[string]*task.Task)
	db.submissions = make(map[string]*submission.Submission)
	db.reviews = make(map[string]*review.Review)
	db.payments = make(map[string]*payment.Payment)
}
