package attendance

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
)

type ExcuseStatus string

const (
	ExcusePending  ExcuseStatus = "pending"
	ExcuseApproved ExcuseStatus = "approved"
	ExcuseRejected ExcuseStatus = "rejected"
)

// IsFinal reports whether a reviewer already decided on the excuse.
func (s ExcuseStatus) IsFinal() bool {
	return s == ExcuseApproved || s == ExcuseRejected
}

// Document is a file staged to support an excuse.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StagedAt    time.Time `json:"staged_at"`
	Content     []byte    `json:"-"`
}

// Excuse is a justification for an absence, reviewed outside of this service.
type Excuse struct {
	ID            string       `json:"id"`
	CourseID      string       `json:"course_id"`
	CourseCode    string       `json:"course_code"`
	Date          time.Time    `json:"date"`
	Reason        string       `json:"reason"`
	Status        ExcuseStatus `json:"status"`
	SubmittedOn   time.Time    `json:"submitted_on"`
	Documents     []Document   `json:"documents,omitempty"`
	ReviewedBy    string       `json:"reviewed_by,omitempty"`
	ReviewedOn    *time.Time   `json:"reviewed_on,omitempty"`
	ReviewComment string       `json:"review_comment,omitempty"`
}

// NewExcuse contains information needed to submit an Excuse.
type NewExcuse struct {
	CourseID    string   `json:"course_id" validate:"required"`
	Date        string   `json:"date" validate:"required"` // 2006-01-02
	Reason      string   `json:"reason" validate:"required,notblank,max=1000"`
	DocumentIDs []string `json:"document_ids" validate:"omitempty,max=5,dive,required"`
}

func (ne *NewExcuse) Clean() {
	ne.CourseID = core.CleanString(ne.CourseID)
	ne.Date = core.CleanString(ne.Date)
	ne.Reason = core.CleanString(ne.Reason)
}

// ExcuseForm drives the submission of an excuse the way a client form does:
// a failed submit leaves the input untouched, a successful one keeps the confirmation
// visible for a while and then clears the form.
type ExcuseForm struct {
	svc           Service
	confirmWindow time.Duration

	mu        sync.Mutex
	input     NewExcuse
	submitted *Excuse
	clearTask *core.Task
	clearGen  int
}

func NewExcuseForm(svc Service, confirmWindow time.Duration) *ExcuseForm {
	return &ExcuseForm{svc: svc, confirmWindow: confirmWindow}
}

func (f *ExcuseForm) SetCourse(courseID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.CourseID = courseID
}

func (f *ExcuseForm) SetDate(date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Date = date
}

func (f *ExcuseForm) SetReason(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Reason = reason
}

// Input returns a copy of the current form input.
func (f *ExcuseForm) Input() NewExcuse {
	f.mu.Lock()
	defer f.mu.Unlock()
	in := f.input
	in.DocumentIDs = append([]string(nil), f.input.DocumentIDs...)
	return in
}

// Confirmation returns the last submitted excuse while it is still displayed.
func (f *ExcuseForm) Confirmation() *Excuse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Attach stages a document and adds it to the form.
func (f *ExcuseForm) Attach(ctx context.Context, filename string, r io.Reader) (Document, error) {
	doc, err := f.svc.StageDocument(ctx, filename, r)
	if err != nil {
		return Document{}, err
	}
	f.mu.Lock()
	f.input.DocumentIDs = append(f.input.DocumentIDs, doc.ID)
	f.mu.Unlock()
	return doc, nil
}

// Detach removes a staged document from the form.
func (f *ExcuseForm) Detach(docID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.input.DocumentIDs[:0]
	for _, id := range f.input.DocumentIDs {
		if id != docID {
			ids = append(ids, id)
		}
	}
	f.input.DocumentIDs = ids
}

func (f *ExcuseForm) Submit(ctx context.Context) (Excuse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	in := f.input
	in.DocumentIDs = append([]string(nil), f.input.DocumentIDs...)
	ex, err := f.svc.SubmitExcuse(ctx, in)
	if err != nil {
		return Excuse{}, err
	}

	f.submitted = &ex
	if f.clearTask != nil {
		f.clearTask.Cancel()
	}
	f.clearGen++
	gen := f.clearGen
	f.clearTask = core.Go(context.Background(), f.confirmWindow, func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		if gen != f.clearGen { // superseded by a later submit
			return nil
		}
		f.input = NewExcuse{}
		f.submitted = nil
		return nil
	})
	return ex, nil
}

// Close aborts the pending clear, if any.
func (f *ExcuseForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearTask != nil {
		f.clearTask.Cancel()
		f.clearTask = nil
	}
	f.clearGen++
}
