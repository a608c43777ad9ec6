package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"tmpl-backend/internal/core/types"
	"tmpl-backend/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	return db
}

func newSubmission(name string) *database.Submission {
	return &database.Submission{
		Id:           uuid.New(),
		OriginalName: name,
		SizeBytes:    1024,
		Pages:        3,
		Parameters: datatypes.NewJSONType(types.JobParameters{
			ModelVariant:     "abstracts",
			TopicCount:       50,
			DistanceFunction: "euclidean",
			ResultCount:      10,
		}),
		Status:       database.SubmissionQueued,
		CreationTime: time.Now().UTC(),
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	sub := newSubmission("paper.pdf")
	require.NoError(t, database.CreateSubmission(ctx, db, sub))

	require.NoError(t, database.MarkSubmissionRunning(ctx, db, sub.Id, "ws-1"))

	running, err := database.GetSubmission(ctx, db, sub.Id)
	require.NoError(t, err)
	assert.Equal(t, database.SubmissionRunning, running.Status)
	assert.Equal(t, "ws-1", running.WorkspaceId.String)
	assert.True(t, running.StartTime.Valid)
	assert.False(t, running.CompletionTime.Valid)
	assert.Equal(t, 50, running.Parameters.Data().TopicCount)

	exit := 0
	require.NoError(t, database.FinishSubmission(ctx, db, sub.Id, database.SubmissionOutcome{
		Status:     database.SubmissionCompleted,
		ExitStatus: &exit,
		Duration:   1500 * time.Millisecond,
	}))

	done, err := database.GetSubmission(ctx, db, sub.Id)
	require.NoError(t, err)
	assert.Equal(t, database.SubmissionCompleted, done.Status)
	assert.True(t, done.ExitStatus.Valid)
	assert.Equal(t, int64(0), done.ExitStatus.Int64)
	assert.False(t, done.ErrorKind.Valid)
	assert.Equal(t, int64(1500), done.DurationMs)
	assert.True(t, done.CompletionTime.Valid)
}

func TestFinishSubmissionRecordsFailure(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	sub := newSubmission("bad.pdf")
	require.NoError(t, database.CreateSubmission(ctx, db, sub))

	require.NoError(t, database.FinishSubmission(ctx, db, sub.Id, database.SubmissionOutcome{
		Status:    database.SubmissionFailed,
		ErrorKind: "timeout",
	}))

	failed, err := database.GetSubmission(ctx, db, sub.Id)
	require.NoError(t, err)
	assert.Equal(t, database.SubmissionFailed, failed.Status)
	assert.Equal(t, "timeout", failed.ErrorKind.String)
	assert.False(t, failed.ExitStatus.Valid)
}

func TestGetSubmissionNotFound(t *testing.T) {
	db := setupDB(t)

	_, err := database.GetSubmission(context.Background(), db, uuid.New())
	assert.ErrorIs(t, err, database.ErrSubmissionNotFound)
}

func TestListSubmissionsNewestFirst(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		sub := newSubmission(name)
		sub.CreationTime = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, database.CreateSubmission(ctx, db, sub))
		ids = append(ids, sub.Id)
	}

	subs, err := database.ListSubmissions(ctx, db, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, ids[2], subs[0].Id)
	assert.Equal(t, ids[1], subs[1].Id)
}

func TestMigrationRollback(t *testing.T) {
	db := setupDB(t)

	require.True(t, db.Migrator().HasTable(&database.Submission{}))
	require.NoError(t, database.GetMigrator(db).RollbackLast())
	assert.False(t, db.Migrator().HasTable(&database.Submission{}))
}
