package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateMockData(t *testing.T) {
	now := time.Date(2024, time.October, 16, 11, 30, 0, 0, time.UTC)
	data := GenerateMockData(now, 42, 8, 2)

	assert.Len(t, data.Courses, len(mockCourses))
	assert.NotEmpty(t, data.Sessions)
	assert.NotEmpty(t, data.Records)

	today := DateOf(now)
	sessions := make(map[string]Session, len(data.Sessions))
	for _, sess := range data.Sessions {
		assert.True(t, sess.SessionType.Valid())
		sessions[sess.ID] = sess
	}
	assert.Len(t, sessions, len(data.Sessions), "session IDs must be unique")

	marked := make(map[string]bool, len(data.Records))
	for _, rec := range data.Records {
		sess, ok := sessions[rec.SessionID]
		if !assert.True(t, ok, "record %s without session", rec.ID) {
			continue
		}
		assert.False(t, marked[rec.SessionID], "session %s marked twice", rec.SessionID)
		marked[rec.SessionID] = true

		assert.True(t, rec.Date.Before(today), "record %s is not in the past", rec.ID)
		assert.Equal(t, sess.Date, rec.Date)
		assert.Equal(t, sess.CourseID, rec.CourseID)
		assert.True(t, rec.Status.Valid())
		assert.True(t, rec.MarkingMethod.Valid())
		assert.NotEmpty(t, rec.MarkedBy)
	}
	for _, sess := range data.Sessions {
		if !sess.Date.Before(today) {
			assert.False(t, marked[sess.ID], "future session %s is marked", sess.ID)
		}
	}
}

func TestGenerateMockData_deterministic(t *testing.T) {
	now := time.Date(2024, time.October, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, GenerateMockData(now, 7, 4, 1), GenerateMockData(now, 7, 4, 1))
	assert.NotEqual(t, GenerateMockData(now, 7, 4, 1).Records, GenerateMockData(now, 8, 4, 1).Records)
}

func TestSession_StartsAt(t *testing.T) {
	sess := Session{Date: oct(16), StartTime: "14:30"}
	assert.Equal(t, oct(16).Add(14*time.Hour+30*time.Minute), sess.StartsAt())

	sess.StartTime = "bogus"
	assert.Equal(t, oct(16), sess.StartsAt())
}
