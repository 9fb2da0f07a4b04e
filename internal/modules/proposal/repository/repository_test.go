package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"skillbridge.io/marketplace/internal/entity"
)

func newMockRepo(t *testing.T) (*proposalRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &proposalRepository{db: db, now: func() time.Time { return fixed }}, mock
}

func newPendingProposal() *entity.Proposal {
	return &entity.Proposal{
		ProjectID:      uuid.New(),
		FreelancerID:   uuid.New(),
		CoverLetter:    "I have shipped three similar storefronts and can start on Monday.",
		ProposedBudget: 1200,
		Timeline:       "3 weeks",
		Status:         entity.ProposalPending,
	}
}

func TestCreate_LocksProjectAndInserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposal := newPendingProposal()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id","status" FROM "projects" WHERE id = \$1 .*FOR SHARE`).
		WithArgs(proposal.ProjectID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(proposal.ProjectID.String(), "open"))
	mock.ExpectExec(`INSERT INTO "proposals"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), proposal))
	assert.NotEqual(t, uuid.Nil, proposal.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ProjectNotOpen(t *testing.T) {
	for _, status := range []string{"in_progress", "completed", "cancelled"} {
		t.Run(status, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			proposal := newPendingProposal()

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT "id","status" FROM "projects" .*FOR SHARE`).
				WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(proposal.ProjectID.String(), status))
			mock.ExpectRollback()

			err := repo.Create(context.Background(), proposal)
			assert.ErrorIs(t, err, ErrProjectNotOpen)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreate_ProjectMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id","status" FROM "projects" .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newPendingProposal())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolationIsDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposal := newPendingProposal()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id","status" FROM "projects" .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(proposal.ProjectID.String(), "open"))
	mock.ExpectExec(`INSERT INTO "proposals"`).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			Message:        "duplicate key value violates unique constraint",
			ConstraintName: "idx_proposals_project_freelancer",
		})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), proposal)
	assert.ErrorIs(t, err, ErrDuplicateProposal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_CommitsCascade(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposalID, projectID := uuid.New(), uuid.New()
	siblingA, siblingB := uuid.New(), uuid.New()
	freelancerA, freelancerB := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "proposals" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id"}).AddRow(proposalID.String(), projectID.String()))
	mock.ExpectQuery(`SELECT .+ FROM "projects" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(projectID.String(), "open"))
	mock.ExpectExec(`UPDATE "proposals" SET .+ WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "projects" SET .+ WHERE id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM "proposals" WHERE project_id = \$1 AND id <> \$2 AND status = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "freelancer_id"}).
			AddRow(siblingA.String(), freelancerA.String()).
			AddRow(siblingB.String(), freelancerB.String()))
	mock.ExpectExec(`UPDATE "proposals" SET .+ WHERE id IN \(\$\d+,\$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	rejected, err := repo.Accept(context.Background(), proposalID)
	require.NoError(t, err)
	require.Len(t, rejected, 2)
	assert.Equal(t, siblingA, rejected[0].ID)
	assert.Equal(t, freelancerB, rejected[1].FreelancerID)
	for _, r := range rejected {
		assert.Equal(t, projectID, r.ProjectID)
		assert.Equal(t, entity.ProposalRejected, r.Status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_NoSiblings(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposalID, projectID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "proposals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id"}).AddRow(proposalID.String(), projectID.String()))
	mock.ExpectQuery(`SELECT .+ FROM "projects" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(projectID.String(), "open"))
	mock.ExpectExec(`UPDATE "proposals"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "projects"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .+ FROM "proposals" WHERE project_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "freelancer_id"}))
	mock.ExpectCommit()

	rejected, err := repo.Accept(context.Background(), proposalID)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_ProjectAlreadyTaken(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposalID, projectID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "proposals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id"}).AddRow(proposalID.String(), projectID.String()))
	mock.ExpectQuery(`SELECT .+ FROM "projects" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(projectID.String(), "in_progress"))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), proposalID)
	assert.ErrorIs(t, err, ErrProjectNotOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_ProposalNoLongerPending(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposalID, projectID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "proposals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id"}).AddRow(proposalID.String(), projectID.String()))
	mock.ExpectQuery(`SELECT .+ FROM "projects" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(projectID.String(), "open"))
	mock.ExpectExec(`UPDATE "proposals"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), proposalID)
	assert.ErrorIs(t, err, ErrProposalNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	proposalID, projectID := uuid.New(), uuid.New()
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "proposals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id"}).AddRow(proposalID.String(), projectID.String()))
	mock.ExpectQuery(`SELECT .+ FROM "projects" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(projectID.String(), "open"))
	mock.ExpectExec(`UPDATE "proposals"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "projects"`).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), proposalID)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReject_NotPending(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "proposals" SET .+ WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reject(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProposalNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_Guards(t *testing.T) {
	tests := []struct {
		name    string
		deleted int64
		count   int64
		wantErr error
	}{
		{name: "deleted", deleted: 1},
		{name: "accepted", deleted: 0, count: 1, wantErr: ErrProposalAccepted},
		{name: "missing", deleted: 0, count: 0, wantErr: gorm.ErrRecordNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectExec(`DELETE FROM "proposals" WHERE id = \$1 AND status <> \$2`).
				WillReturnResult(sqlmock.NewResult(0, tt.deleted))
			if tt.deleted == 0 {
				mock.ExpectQuery(`SELECT count\(\*\) FROM "proposals" WHERE id = \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.count))
			}

			err := repo.Delete(context.Background(), uuid.New())
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
