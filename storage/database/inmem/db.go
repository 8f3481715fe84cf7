package inmemdb

import (
	"sync"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

type (
	DB struct {
		course   *courseTable
		session  *sessionTable
		record   *recordTable
		document *documentTable
		excuse   *excuseTable
		settings *settingsTable
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*attendance.Course
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*attendance.Session
	}

	recordTable struct {
		sync.RWMutex
		table     map[string]*attendance.Record
		bySession map[string]string // session ID -> record ID
	}

	documentTable struct {
		sync.RWMutex
		table map[string]*attendance.Document
	}

	excuseTable struct {
		sync.RWMutex
		table map[string]*attendance.Excuse
	}

	settingsTable struct {
		sync.RWMutex
		row attendance.Settings
	}
)

func Open() (*DB, error) {
	db := &DB{
		course:   &courseTable{table: make(map[string]*attendance.Course)},
		session:  &sessionTable{table: make(map[string]*attendance.Session)},
		record:   &recordTable{table: make(map[string]*attendance.Record), bySession: make(map[string]string)},
		document: &documentTable{table: make(map[string]*attendance.Document)},
		excuse:   &excuseTable{table: make(map[string]*attendance.Excuse)},
		settings: &settingsTable{row: attendance.DefaultSettings()},
	}
	return db, nil
}

// Seed loads courses, sessions and records into the DB, replacing rows with the same ID.
func (db *DB) Seed(data attendance.MockData) {
	db.course.Lock()
	for i := range data.Courses {
		c := data.Courses[i]
		db.course.table[c.ID] = &c
	}
	db.course.Unlock()

	db.session.Lock()
	for i := range data.Sessions {
		sess := data.Sessions[i]
		db.session.table[sess.ID] = &sess
	}
	db.session.Unlock()

	db.record.Lock()
	for i := range data.Records {
		rec := data.Records[i]
		db.record.table[rec.ID] = &rec
		if rec.SessionID != "" {
			db.record.bySession[rec.SessionID] = rec.ID
		}
	}
	db.record.Unlock()
}

// Reset drops every row and restores the default settings.
func (db *DB) Reset() {
	fresh, _ := Open()
	db.course.Lock()
	db.course.table = fresh.course.table
	db.course.Unlock()
	db.session.Lock()
	db.session.table = fresh.session.table
	db.session.Unlock()
	db.record.Lock()
	db.record.table, db.record.bySession = fresh.record.table, fresh.record.bySession
	db.record.Unlock()
	db.document.Lock()
	db.document.table = fresh.document.table
	db.document.Unlock()
	db.excuse.Lock()
	db.excuse.table = fresh.excuse.table
	db.excuse.Unlock()
	db.settings.Lock()
	db.settings.row = fresh.settings.row
	db.settings.Unlock()
}
