package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) QueryCourses(ctx context.Context) ([]attendance.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := repo.db.course
	tbl.RLock()
	defer tbl.RUnlock()

	courses := make([]attendance.Course, 0, len(tbl.table))
	for _, c := range tbl.table {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *attendanceRepository) GetCourse(ctx context.Context, id string) (attendance.Course, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Course{}, err
	}
	tbl := repo.db.course
	tbl.RLock()
	defer tbl.RUnlock()

	if c, ok := tbl.table[id]; ok {
		return *c, nil
	}
	// fall back to the course code
	for _, c := range tbl.table {
		if strings.EqualFold(c.Code, id) {
			return *c, nil
		}
	}
	return attendance.Course{}, attendance.ErrCourseNotFound
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := repo.db.record
	tbl.RLock()
	defer tbl.RUnlock()

	records := make([]attendance.Record, 0, len(tbl.table))
	for _, rec := range tbl.table {
		if filter.CourseID != "" && rec.CourseID != filter.CourseID {
			continue
		}
		if !filter.Range.Contains(rec.Date) {
			continue
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return chronological(records[i].Date, records[i].StartTime, records[i].ID, records[j].Date, records[j].StartTime, records[j].ID)
	})
	return records, nil
}

func (repo *attendanceRepository) QuerySessions(ctx context.Context, filter attendance.SessionFilter) ([]attendance.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var marked map[string]string
	if filter.Unmarked {
		repo.db.record.RLock()
		marked = make(map[string]string, len(repo.db.record.bySession))
		for sessID, recID := range repo.db.record.bySession {
			marked[sessID] = recID
		}
		repo.db.record.RUnlock()
	}

	tbl := repo.db.session
	tbl.RLock()
	defer tbl.RUnlock()

	sessions := make([]attendance.Session, 0)
	for _, sess := range tbl.table {
		if filter.CourseID != "" && sess.CourseID != filter.CourseID {
			continue
		}
		if !filter.Range.Contains(sess.Date) {
			continue
		}
		if _, ok := marked[sess.ID]; ok {
			continue
		}
		sessions = append(sessions, *sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return chronological(sessions[i].Date, sessions[i].StartTime, sessions[i].ID, sessions[j].Date, sessions[j].StartTime, sessions[j].ID)
	})
	return sessions, nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, id string) (attendance.Session, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Session{}, err
	}
	tbl := repo.db.session
	tbl.RLock()
	defer tbl.RUnlock()

	if sess, ok := tbl.table[id]; ok {
		return *sess, nil
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) CreateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Record{}, err
	}
	tbl := repo.db.record
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.bySession[rec.SessionID]; ok {
		return attendance.Record{}, attendance.ErrDuplicateMark
	}
	tbl.table[rec.ID] = &rec
	tbl.bySession[rec.SessionID] = rec.ID
	return rec, nil
}

func (repo *attendanceRepository) GetSettings(ctx context.Context) (attendance.Settings, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Settings{}, err
	}
	repo.db.settings.RLock()
	defer repo.db.settings.RUnlock()
	return repo.db.settings.row, nil
}

func (repo *attendanceRepository) SaveSettings(ctx context.Context, s attendance.Settings) (attendance.Settings, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Settings{}, err
	}
	repo.db.settings.Lock()
	defer repo.db.settings.Unlock()
	repo.db.settings.row = s
	return s, nil
}

func (repo *attendanceRepository) CreateDocument(ctx context.Context, doc attendance.Document) (attendance.Document, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Document{}, err
	}
	tbl := repo.db.document
	tbl.Lock()
	defer tbl.Unlock()
	tbl.table[doc.ID] = &doc
	return doc, nil
}

func (repo *attendanceRepository) GetDocuments(ctx context.Context, ids ...string) ([]attendance.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := repo.db.document
	tbl.RLock()
	defer tbl.RUnlock()

	docs := make([]attendance.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := tbl.table[id]
		if !ok {
			return nil, attendance.ErrDocumentNotFound
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (repo *attendanceRepository) CreateExcuse(ctx context.Context, ex attendance.Excuse) (attendance.Excuse, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Excuse{}, err
	}
	tbl := repo.db.excuse
	tbl.Lock()
	defer tbl.Unlock()
	tbl.table[ex.ID] = &ex
	return ex, nil
}

func (repo *attendanceRepository) QueryExcuses(ctx context.Context) ([]attendance.Excuse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := repo.db.excuse
	tbl.RLock()
	defer tbl.RUnlock()

	excuses := make([]attendance.Excuse, 0, len(tbl.table))
	for _, ex := range tbl.table {
		excuses = append(excuses, *ex)
	}
	// newest first
	sort.Slice(excuses, func(i, j int) bool { return excuses[i].SubmittedOn.After(excuses[j].SubmittedOn) })
	return excuses, nil
}

// chronological reports whether (d1, t1) comes before (d2, t2). Times are HH:MM.
// chronological orders by date, start time, then ID.
func chronological(d1 time.Time, t1, id1 string, d2 time.Time, t2, id2 string) bool {
	if !d1.Equal(d2) {
		return d1.Before(d2)
	}
	if t1 != t2 {
		return t1 < t2
	}
	return id1 < id2
}
