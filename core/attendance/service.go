package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"net/mail"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrCourseNotFound   = errors.New("course not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrDuplicateMark    = errors.New("session already marked")

	allowedDocumentTypes = []string{"application/pdf", "image/jpeg", "image/png"}
)

// MarkError is returned when a session cannot be marked.
type MarkError struct {
	SessionID string
	Err       error // ErrInvalidSession | ErrDuplicateMark
}

func (e *MarkError) Error() string {
	return fmt.Sprintf("marking session %q: %v", e.SessionID, e.Err)
}

func (e *MarkError) Unwrap() error { return e.Err }

type (
	// Repository is the Record Store.
	Repository interface {
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryRecords returns records ordered by date and start time.
		QueryRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
		QuerySessions(ctx context.Context, filter SessionFilter) ([]Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		// CreateRecord fails with ErrDuplicateMark if the session already has a record.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetSettings(ctx context.Context) (Settings, error)
		SaveSettings(ctx context.Context, s Settings) (Settings, error)
		CreateDocument(ctx context.Context, doc Document) (Document, error)
		// GetDocuments fails with ErrDocumentNotFound if any id is unknown.
		GetDocuments(ctx context.Context, ids ...string) ([]Document, error)
		CreateExcuse(ctx context.Context, ex Excuse) (Excuse, error)
		QueryExcuses(ctx context.Context) ([]Excuse, error)
	}

	Service interface {
		ListCourses(ctx context.Context) ([]CourseAttendance, error)
		GetCourseAttendance(ctx context.Context, courseID string) (CourseAttendance, error)
		GetOverallStats(ctx context.Context) (Stats, error)
		GetCalendarEvents(ctx context.Context, r DateRange) ([]CalendarEvent, error)
		GetCalendar(ctx context.Context, r DateRange) ([]CalendarDay, error)
		GetWeekSchedule(ctx context.Context, anchor time.Time) (WeekSchedule, error)
		// GetMonthlyStats covers every course when courseID is empty.
		GetMonthlyStats(ctx context.Context, courseID string) ([]MonthlyStat, error)
		// GetRequirement uses the overall percentage when courseID is empty.
		GetRequirement(ctx context.Context, courseID string) (RequirementStatus, error)
		GetSettings(ctx context.Context) (Settings, error)
		UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error)
		StageDocument(ctx context.Context, filename string, r io.Reader) (Document, error)
		SubmitExcuse(ctx context.Context, input NewExcuse) (Excuse, error)
		ListExcuses(ctx context.Context) ([]Excuse, error)
		MarkAttendance(ctx context.Context, req MarkRequest) (Record, error)
		// SendReminders notifies about classes starting within the reminder time.
		SendReminders(ctx context.Context) (int, error)
		ExportRecords(ctx context.Context, courseID string, w io.Writer) error
	}

	Options struct {
		Student          core.Identity
		Advisor          mail.Address
		ExcuseOffice     mail.Address
		MinRequired      float64
		ExcuseWindowDays int
		MaxDocumentSize  int64
		Latency          core.Latency
	}

	service struct {
		repo       Repository
		notifier   Notifier
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		opts       Options

		mu       sync.Mutex
		reminded map[string]bool // session IDs
	}
)

var _ Service = (*service)(nil)

func OptionsFromConfig(conf *core.Config) Options {
	return Options{
		Student:          conf.Student,
		Advisor:          conf.Advisor,
		ExcuseOffice:     conf.Attendance.ExcuseOffice,
		MinRequired:      conf.Attendance.MinRequired,
		ExcuseWindowDays: conf.Attendance.ExcuseWindowDays,
		MaxDocumentSize:  conf.Attendance.MaxDocumentSize,
		Latency:          core.NewLatency(conf.Latency.Delay, conf.Latency.FailureRate),
	}
}

func NewService(
	repo Repository,
	notifier Notifier,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	opts Options,
) Service {
	return &service{
		repo:       repo,
		notifier:   notifier,
		logger:     logger,
		validate:   validate,
		translator: translator,
		opts:       opts,
		reminded:   make(map[string]bool),
	}
}

func (svc *service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

func (svc *service) today() time.Time {
	return DateOf(NowFunc())
}

func (svc *service) courseIndex(courses []Course) map[string]Course {
	idx := make(map[string]Course, len(courses))
	for _, c := range courses {
		idx[c.ID] = c
	}
	return idx
}

func (svc *service) buildCourses(ctx context.Context, courses []Course, thresholds Thresholds) ([]CourseAttendance, error) {
	today := svc.today()
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	upcoming, err := svc.repo.QuerySessions(ctx, SessionFilter{Range: DateRange{From: today}, Unmarked: true})
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	recsByCourse := make(map[string][]Record, len(courses))
	for _, rec := range records {
		recsByCourse[rec.CourseID] = append(recsByCourse[rec.CourseID], rec)
	}
	sessByCourse := make(map[string][]Session, len(courses))
	for _, sess := range upcoming {
		sessByCourse[sess.CourseID] = append(sessByCourse[sess.CourseID], sess)
	}

	result := make([]CourseAttendance, 0, len(courses))
	for _, c := range courses {
		result = append(result, BuildCourseAttendance(c, recsByCourse[c.ID], sessByCourse[c.ID], today, thresholds))
	}
	return result, nil
}

func (svc *service) ListCourses(ctx context.Context) ([]CourseAttendance, error) {
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting settings")
	}
	courses, err := svc.repo.QueryCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return svc.buildCourses(ctx, courses, settings.Thresholds())
}

func (svc *service) GetCourseAttendance(ctx context.Context, courseID string) (CourseAttendance, error) {
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return CourseAttendance{}, errors.Wrap(err, "getting settings")
	}
	return svc.courseAttendance(ctx, courseID, settings.Thresholds())
}

func (svc *service) courseAttendance(ctx context.Context, courseID string, thresholds Thresholds) (CourseAttendance, error) {
	c, err := svc.repo.GetCourse(ctx, core.CleanString(courseID))
	if err != nil {
		return CourseAttendance{}, err
	}
	today := svc.today()
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{CourseID: c.ID})
	if err != nil {
		return CourseAttendance{}, errors.Wrap(err, "querying records")
	}
	upcoming, err := svc.repo.QuerySessions(ctx, SessionFilter{CourseID: c.ID, Range: DateRange{From: today}, Unmarked: true})
	if err != nil {
		return CourseAttendance{}, errors.Wrap(err, "querying sessions")
	}
	return BuildCourseAttendance(c, records, upcoming, today, thresholds), nil
}

func (svc *service) GetOverallStats(ctx context.Context) (Stats, error) {
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "getting settings")
	}
	courses, err := svc.repo.QueryCourses(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying courses")
	}
	cas, err := svc.buildCourses(ctx, courses, settings.Thresholds())
	if err != nil {
		return Stats{}, err
	}
	return ComputeOverallStats(cas, settings.Thresholds()), nil
}

func (svc *service) GetCalendarEvents(ctx context.Context, r DateRange) ([]CalendarEvent, error) {
	if !r.From.IsZero() && !r.To.IsZero() && DateOf(r.From).After(DateOf(r.To)) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "end date must not be before start date"})
	}

	courses, err := svc.repo.QueryCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{Range: r})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}

	// only sessions from today on are upcoming
	upcomingRange := r
	if today := svc.today(); upcomingRange.From.IsZero() || upcomingRange.From.Before(today) {
		upcomingRange.From = today
	}
	var upcoming []Session
	if upcomingRange.To.IsZero() || !DateOf(upcomingRange.From).After(DateOf(upcomingRange.To)) {
		upcoming, err = svc.repo.QuerySessions(ctx, SessionFilter{Range: upcomingRange, Unmarked: true})
		if err != nil {
			return nil, errors.Wrap(err, "querying sessions")
		}
	}

	events := EventsFromRecords(records)
	events = append(events, EventsFromSessions(upcoming, svc.courseIndex(courses))...)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].StartTime < events[j].StartTime
	})
	return events, nil
}

func (svc *service) GetCalendar(ctx context.Context, r DateRange) ([]CalendarDay, error) {
	events, err := svc.GetCalendarEvents(ctx, r)
	if err != nil {
		return nil, err
	}
	return CalendarDays(GroupByDate(events)), nil
}

func (svc *service) GetWeekSchedule(ctx context.Context, anchor time.Time) (WeekSchedule, error) {
	if anchor.IsZero() {
		anchor = NowFunc()
	}
	week := WeekWindow(anchor)
	events, err := svc.GetCalendarEvents(ctx, DateRange{From: week[0], To: week[6]})
	if err != nil {
		return WeekSchedule{}, err
	}
	return BuildWeekSchedule(anchor, events), nil
}

func (svc *service) GetMonthlyStats(ctx context.Context, courseID string) ([]MonthlyStat, error) {
	courseID = core.CleanString(courseID)
	if courseID != "" {
		if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
			return nil, err
		}
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{CourseID: courseID})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return MonthlyStats(records), nil
}

func (svc *service) GetRequirement(ctx context.Context, courseID string) (RequirementStatus, error) {
	if core.CleanString(courseID) == "" {
		stats, err := svc.GetOverallStats(ctx)
		if err != nil {
			return RequirementStatus{}, err
		}
		return Requirement(stats.OverallPercentage, svc.opts.MinRequired), nil
	}
	ca, err := svc.GetCourseAttendance(ctx, courseID)
	if err != nil {
		return RequirementStatus{}, err
	}
	return Requirement(ca.AttendancePercentage, svc.opts.MinRequired), nil
}

func (svc *service) GetSettings(ctx context.Context) (Settings, error) {
	return svc.repo.GetSettings(ctx)
}

func (svc *service) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	current, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return Settings{}, errors.Wrap(err, "getting settings")
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated := patch.Apply(current)
	if err := svc.validateStruct(updated); err != nil {
		return current, err
	}

	if err := svc.opts.Latency.Wait(ctx); err != nil {
		return current, errors.Wrap(err, "saving settings")
	}
	return svc.repo.SaveSettings(ctx, updated)
}

func (svc *service) StageDocument(ctx context.Context, filename string, r io.Reader) (Document, error) {
	filename = filepath.Base(core.CleanString(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return Document{}, core.NewValidationError(nil, core.FieldError{Field: "filename", Error: "this field is required"})
	}

	content, err := ioutil.ReadAll(io.LimitReader(r, svc.opts.MaxDocumentSize+1))
	if err != nil {
		return Document{}, errors.Wrap(err, "reading document")
	}
	switch size := int64(len(content)); {
	case size == 0:
		return Document{}, core.NewValidationError(nil, core.FieldError{Field: "document", Error: "file is empty"})
	case size > svc.opts.MaxDocumentSize:
		return Document{}, core.NewValidationError(nil, core.FieldError{
			Field: "document",
			Error: fmt.Sprintf("file exceeds the maximum size of %d bytes", svc.opts.MaxDocumentSize),
		})
	}

	mtype := mimetype.Detect(content)
	allowed := false
	for _, t := range allowedDocumentTypes {
		if mtype.Is(t) {
			allowed = true
			break
		}
	}
	if !allowed {
		return Document{}, core.NewValidationError(nil, core.FieldError{
			Field: "document",
			Error: fmt.Sprintf("unsupported file type %s; only PDF, JPEG and PNG are allowed", mtype.String()),
		})
	}

	// upload scan
	if err := svc.opts.Latency.Wait(ctx); err != nil {
		return Document{}, errors.Wrap(err, "staging document")
	}

	return svc.repo.CreateDocument(ctx, Document{
		ID:          uuid.New().String(),
		Filename:    filename,
		ContentType: mtype.String(),
		Size:        int64(len(content)),
		StagedAt:    NowFunc().UTC(),
		Content:     content,
	})
}

func (svc *service) SubmitExcuse(ctx context.Context, input NewExcuse) (Excuse, error) {
	input.Clean()
	if err := svc.validateStruct(input); err != nil {
		return Excuse{}, err
	}

	var flds []core.FieldError
	today := svc.today()
	date, err := ParseDate(input.Date)
	switch {
	case err != nil:
		flds = append(flds, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	case date.After(today):
		flds = append(flds, core.FieldError{Field: "date", Error: "date cannot be in the future"})
	case date.Before(today.AddDate(0, 0, -svc.opts.ExcuseWindowDays)):
		flds = append(flds, core.FieldError{
			Field: "date",
			Error: fmt.Sprintf("date must be within the last %d days", svc.opts.ExcuseWindowDays),
		})
	}

	c, err := svc.repo.GetCourse(ctx, input.CourseID)
	if err != nil {
		if errors.Cause(err) != ErrCourseNotFound {
			return Excuse{}, err
		}
		flds = append(flds, core.FieldError{Field: "course_id", Error: ErrCourseNotFound.Error()})
	}

	var docs []Document
	if len(input.DocumentIDs) > 0 {
		docs, err = svc.repo.GetDocuments(ctx, input.DocumentIDs...)
		if err != nil {
			if errors.Cause(err) != ErrDocumentNotFound {
				return Excuse{}, err
			}
			flds = append(flds, core.FieldError{Field: "document_ids", Error: "unknown document"})
		}
	}

	if len(flds) > 0 {
		return Excuse{}, core.NewValidationError(nil, flds...)
	}

	if err := svc.opts.Latency.Wait(ctx); err != nil {
		return Excuse{}, errors.Wrap(err, "submitting excuse")
	}

	ex, err := svc.repo.CreateExcuse(ctx, Excuse{
		ID:          uuid.New().String(),
		CourseID:    c.ID,
		CourseCode:  c.Code,
		Date:        date,
		Reason:      input.Reason,
		Status:      ExcusePending,
		SubmittedOn: NowFunc().UTC(),
		Documents:   docs,
	})
	if err != nil {
		return Excuse{}, errors.Wrap(err, "creating excuse")
	}

	if settings, err := svc.repo.GetSettings(ctx); err == nil {
		svc.notify(ctx, settings, Notification{
			Kind:        NotifyExcuseReceived,
			Subject:     "Excuse received: " + c.Code,
			Message:     fmt.Sprintf("Your excuse for %s on %s is pending review.", c.Code, DateKey(date)),
			Template:    "excuse_received",
			Data:        ExcuseData{CourseCode: c.Code, Date: DateKey(date)},
			Bcc:         addressList(svc.opts.ExcuseOffice),
			Attachments: docs,
		})
	}
	return ex, nil
}

func (svc *service) ListExcuses(ctx context.Context) ([]Excuse, error) {
	return svc.repo.QueryExcuses(ctx)
}

func (svc *service) MarkAttendance(ctx context.Context, req MarkRequest) (Record, error) {
	req.Clean()
	if err := svc.validateStruct(req); err != nil {
		return Record{}, err
	}

	sess, err := svc.repo.GetSession(ctx, req.SessionID)
	if err != nil {
		if errors.Cause(err) == ErrSessionNotFound {
			return Record{}, &MarkError{SessionID: req.SessionID, Err: ErrInvalidSession}
		}
		return Record{}, err
	}
	c, err := svc.repo.GetCourse(ctx, sess.CourseID)
	if err != nil {
		return Record{}, err
	}
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return Record{}, errors.Wrap(err, "getting settings")
	}
	before, err := svc.courseAttendance(ctx, c.ID, settings.Thresholds())
	if err != nil {
		return Record{}, err
	}

	if err := svc.opts.Latency.Wait(ctx); err != nil {
		return Record{}, errors.Wrap(err, "marking attendance")
	}

	markedByName := req.MarkedBy
	if markedByName == "" {
		markedByName = markedBy(req.Method, c.Lecturer)
	}
	rec, err := svc.repo.CreateRecord(ctx, Record{
		ID:            uuid.New().String(),
		SessionID:     sess.ID,
		CourseID:      c.ID,
		CourseCode:    c.Code,
		CourseName:    c.Name,
		Date:          sess.Date,
		StartTime:     sess.StartTime,
		EndTime:       sess.EndTime,
		Duration:      sess.Duration,
		Status:        req.Status,
		MarkedBy:      markedByName,
		MarkingMethod: req.Method,
		SessionType:   sess.SessionType,
		Location:      sess.Location,
		Notes:         req.Notes,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateMark) {
			return Record{}, &MarkError{SessionID: sess.ID, Err: ErrDuplicateMark}
		}
		return Record{}, errors.Wrap(err, "creating record")
	}
	svc.logger.Debug(
		fmt.Sprintf("session %s marked %s", rec.SessionID, rec.Status),
		map[string]interface{}{"course": c.Code, "method": rec.MarkingMethod},
		svc.opts.Student,
	)

	after, err := svc.courseAttendance(ctx, c.ID, settings.Thresholds())
	if err != nil {
		return rec, nil // the record is saved; the alert is best effort
	}
	if after.WarningLevel.AtRisk() && after.WarningLevel.Worse(before.WarningLevel) {
		status := Requirement(after.AttendancePercentage, svc.opts.MinRequired)
		svc.notify(ctx, settings, Notification{
			Kind:     NotifyAttendanceWarning,
			Subject:  fmt.Sprintf("Attendance %s: %s", after.WarningLevel, c.Code),
			Message:  fmt.Sprintf("Your attendance in %s dropped to %.1f%%.", c.Code, after.AttendancePercentage),
			Template: "attendance_warning",
			Cc:       addressList(svc.opts.Advisor),
			Data: WarningData{
				CourseCode:  c.Code,
				CourseName:  c.Name,
				Percentage:  after.AttendancePercentage,
				Level:       string(after.WarningLevel),
				Requirement: status.Message,
			},
		})
	}
	return rec, nil
}

func (svc *service) SendReminders(ctx context.Context) (int, error) {
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting settings")
	}
	if !settings.AnyNotifications() {
		return 0, nil
	}

	now := WallClock(NowFunc())
	until := now.Add(time.Duration(settings.ReminderTime) * time.Minute)
	sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{
		Range:    DateRange{From: DateOf(now), To: DateOf(until)},
		Unmarked: true,
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying sessions")
	}
	courses, err := svc.repo.QueryCourses(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying courses")
	}
	idx := svc.courseIndex(courses)

	var sent int
	for _, sess := range sessions {
		startsAt := sess.StartsAt()
		if !startsAt.After(now) || startsAt.After(until) || !svc.markReminded(sess.ID) {
			continue
		}
		c := idx[sess.CourseID]
		svc.notify(ctx, settings, Notification{
			Kind:     NotifyClassReminder,
			Subject:  fmt.Sprintf("%s %s at %s", c.Code, sess.SessionType, sess.StartTime),
			Message:  fmt.Sprintf("%s %s starts at %s in %s.", c.Code, sess.SessionType, sess.StartTime, sess.Location),
			Template: "class_reminder",
			Data: ReminderData{
				CourseCode:  c.Code,
				SessionType: string(sess.SessionType),
				StartTime:   sess.StartTime,
				Location:    sess.Location,
			},
		})
		sent++
	}
	return sent, nil
}

// addressList returns addr as a recipient list, empty when it has no address.
func addressList(addr mail.Address) []mail.Address {
	if addr.Address == "" {
		return nil
	}
	return []mail.Address{addr}
}

// markReminded reports whether the session was not reminded yet and flags it.
func (svc *service) markReminded(sessionID string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.reminded[sessionID] {
		return false
	}
	svc.reminded[sessionID] = true
	return true
}

var exportHeader = []string{
	"date", "course_code", "course_name", "session_type", "start_time", "end_time",
	"duration", "status", "marking_method", "marked_by", "location", "notes",
}

func (svc *service) ExportRecords(ctx context.Context, courseID string, w io.Writer) error {
	courseID = core.CleanString(courseID)
	if courseID != "" {
		if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
			return err
		}
	}
	records, err := svc.repo.QueryRecords(ctx, RecordFilter{CourseID: courseID})
	if err != nil {
		return errors.Wrap(err, "querying records")
	}

	// export job
	if err := svc.opts.Latency.Wait(ctx); err != nil {
		return errors.Wrap(err, "exporting records")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			DateKey(rec.Date), rec.CourseCode, rec.CourseName, string(rec.SessionType),
			rec.StartTime, rec.EndTime, strconv.Itoa(rec.Duration), string(rec.Status),
			string(rec.MarkingMethod), rec.MarkedBy, rec.Location, rec.Notes,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing export")
}
