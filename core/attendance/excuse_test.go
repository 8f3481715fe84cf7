package attendance_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
	"github.com/lord-charles/AMS-TURBO-REPO-sub003/tests"
)

const confirmWindow = 30 * time.Millisecond

func fillForm(form *ExcuseForm) {
	form.SetCourse(testutil.CS301)
	form.SetDate(DateKey(testutil.Day(-6)))
	form.SetReason("Fever, doctor's note attached")
}

func TestExcuseForm_failedSubmitKeepsInput(t *testing.T) {
	env := testutil.Setup(t)
	form := NewExcuseForm(env.Svc, confirmWindow)
	defer form.Close()

	fillForm(form)
	form.SetReason("  ")
	want := form.Input()

	_, err := form.Submit(context.Background())
	requireValidationError(t, err, "reason")
	assert.Nil(t, form.Confirmation())

	time.Sleep(2 * confirmWindow)
	assert.Equal(t, want, form.Input())
}

func TestExcuseForm_successClearsAfterWindow(t *testing.T) {
	env := testutil.Setup(t)
	form := NewExcuseForm(env.Svc, confirmWindow)
	defer form.Close()

	fillForm(form)
	doc, err := form.Attach(context.Background(), "note.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, form.Input().DocumentIDs)

	ex, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, ex.Documents, 1)

	conf := form.Confirmation()
	require.NotNil(t, conf)
	assert.Equal(t, ex.ID, conf.ID)
	assert.Equal(t, testutil.CS301, form.Input().CourseID, "input is kept while the confirmation shows")

	assert.Eventually(t, func() bool {
		return form.Confirmation() == nil && form.Input().CourseID == ""
	}, 20*confirmWindow, confirmWindow/3)
	assert.Equal(t, NewExcuse{}, form.Input())
}

func TestExcuseForm_closeCancelsClear(t *testing.T) {
	env := testutil.Setup(t)
	form := NewExcuseForm(env.Svc, confirmWindow)

	fillForm(form)
	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	form.Close()

	time.Sleep(3 * confirmWindow)
	assert.NotNil(t, form.Confirmation())
	assert.Equal(t, testutil.CS301, form.Input().CourseID)
}

func TestExcuseForm_detach(t *testing.T) {
	env := testutil.Setup(t)
	form := NewExcuseForm(env.Svc, confirmWindow)
	defer form.Close()
	ctx := context.Background()

	doc1, err := form.Attach(ctx, "a.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)
	doc2, err := form.Attach(ctx, "b.png", bytes.NewReader(pngContent))
	require.NoError(t, err)

	_, err = form.Attach(ctx, "c.txt", bytes.NewReader([]byte("hello")))
	requireValidationError(t, err, "document")

	form.Detach(strings.ToUpper(doc1.ID))
	assert.Equal(t, []string{doc1.ID, doc2.ID}, form.Input().DocumentIDs, "Detach() must match the exact ID")
	form.Detach(doc1.ID)
	assert.Equal(t, []string{doc2.ID}, form.Input().DocumentIDs)
	form.Detach("unknown")
	assert.Equal(t, []string{doc2.ID}, form.Input().DocumentIDs)
}
