// Package dummydb is an in-memory storage backend. It backs the test suites
// and TestMode runs; data does not survive a restart.
package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/birthday"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
)

// DB holds all the tables behind one lock so that multi-table operations
// stay atomic.
type DB struct {
	sync.RWMutex
	pkCount int

	users       map[int]*user.User
	classes     map[int]*school.Classroom
	students    map[int]*school.Student
	enrollments map[int]*school.ClassEnrollment
	attendance  map[int]*attendance.Attendance
	assignments map[int]*assignment.Assignment
	submissions map[int]*assignment.Submission
	emailJobs   map[int]*birthday.EmailJob
	settings    map[int]*setting.Setting
}

func Open() (*DB, error) {
	db := &DB{
		users:       make(map[int]*user.User),
		classes:     make(map[int]*school.Classroom),
		students:    make(map[int]*school.Student),
		enrollments: make(map[int]*school.ClassEnrollment),
		attendance:  make(map[int]*attendance.Attendance),
		assignments: make(map[int]*assignment.Assignment),
		submissions: make(map[int]*assignment.Submission),
		emailJobs:   make(map[int]*birthday.EmailJob),
		settings:    make(map[int]*setting.Setting),
	}
	return db, nil
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}
