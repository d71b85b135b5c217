// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themegallery/internal/models"
)

var (
	lockThemeSQL  = regexp.QuoteMeta(`SELECT likes_count, views_count FROM themes WHERE id = $1 FOR UPDATE`)
	deleteLikeSQL = regexp.QuoteMeta(`DELETE FROM theme_likes WHERE theme_id = $1 AND user_token = $2`)
	insertLikeSQL = regexp.QuoteMeta(`INSERT INTO theme_likes (theme_id, user_token) VALUES ($1, $2) ON CONFLICT`)
	recountSQL    = regexp.QuoteMeta(`SET likes_count = GREATEST(0, (SELECT COUNT(*) FROM theme_likes WHERE theme_id = $1))`)
	insertViewSQL = regexp.QuoteMeta(`INSERT INTO theme_views (theme_id, user_token) VALUES ($1, $2) ON CONFLICT`)
	bumpViewSQL   = regexp.QuoteMeta(`UPDATE themes SET views_count = views_count + 1`)
)

func counterRow(likes, views int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"likes_count", "views_count"}).AddRow(likes, views)
}

func TestToggleLikeAdds(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnRows(counterRow(0, 0))
	mock.ExpectExec(deleteLikeSQL).WithArgs(id, "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertLikeSQL).WithArgs(id, "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(recountSQL).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(1))
	mock.ExpectCommit()

	res, err := s.ToggleLike(context.Background(), id, "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeResult{Count: 1, Active: true}, res)
}

func TestToggleLikeRemoves(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnRows(counterRow(1, 0))
	mock.ExpectExec(deleteLikeSQL).WithArgs(id, "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(recountSQL).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"likes_count"}).AddRow(0))
	mock.ExpectCommit()

	res, err := s.ToggleLike(context.Background(), id, "u1")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeResult{Count: 0, Active: false}, res)
}

func TestToggleLikeThemeNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.ToggleLike(context.Background(), id, "u1")
	assert.ErrorIs(t, err, ErrThemeNotFound)
}

func TestToggleLikeRollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnRows(counterRow(3, 0))
	mock.ExpectExec(deleteLikeSQL).WithArgs(id, "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertLikeSQL).WithArgs(id, "u1").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.ToggleLike(context.Background(), id, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert like")
}

func TestRecordViewFirstTime(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnRows(counterRow(0, 4))
	mock.ExpectExec(insertViewSQL).WithArgs(id, "viewer").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(bumpViewSQL).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"views_count"}).AddRow(5))
	mock.ExpectCommit()

	count, err := s.RecordView(context.Background(), id, "viewer")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRecordViewRepeatIsNoop(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnRows(counterRow(0, 5))
	mock.ExpectExec(insertViewSQL).WithArgs(id, "viewer").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	count, err := s.RecordView(context.Background(), id, "viewer")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "a repeat view must return the unchanged count")
}

func TestRecordViewThemeNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockThemeSQL).WithArgs(id).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.RecordView(context.Background(), id, "viewer")
	assert.ErrorIs(t, err, ErrThemeNotFound)
}

func TestRecount(t *testing.T) {
	db, mock := newMock(t)
	s := NewReactionStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE themes t SET likes_count = c.n`)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.Recount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

// ---------- integration ----------

// createTestTheme inserts an approved theme for integration tests.
func createTestTheme(t *testing.T, db *sql.DB, slug string) *models.Theme {
	t.Helper()
	t.Cleanup(func() { cleanThemes(t, db, slug) })

	theme, err := NewThemeStore(db).Create(context.Background(), &models.Theme{
		ThemeID:     slug,
		Name:        "Reaction Test " + slug,
		CreatorName: "tester",
		Category:    "dark",
		Status:      models.ThemeStatusApproved,
		ThemeJSON:   `{"colors":{}}`,
	})
	require.NoError(t, err)
	return theme
}

func relationCount(t *testing.T, db *sql.DB, table string, themeID uuid.UUID) int {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE theme_id = $1", themeID).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestToggleLikeIntegration(t *testing.T) {
	db := testDB(t)
	s := NewReactionStore(db)
	ctx := context.Background()
	theme := createTestTheme(t, db, "reaction-toggle-it")

	res, err := s.ToggleLike(ctx, theme.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Count: 1, Active: true}, *res)

	res, err = s.ToggleLike(ctx, theme.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Count: 0, Active: false}, *res)

	assert.Equal(t, 0, relationCount(t, db, "theme_likes", theme.ID))
}

func TestToggleLikeConcurrentKeepsCountConsistent(t *testing.T) {
	db := testDB(t)
	s := NewReactionStore(db)
	ctx := context.Background()
	theme := createTestTheme(t, db, "reaction-concurrent-it")

	// 20 distinct identities like once; identity "dup" toggles 3 times.
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.ToggleLike(ctx, theme.ID, fmt.Sprintf("user-%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ToggleLike(ctx, theme.ID, "dup"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent toggle failed: %v", err)
	}

	got, err := NewThemeStore(db).FindByID(ctx, theme.ID)
	require.NoError(t, err)
	assert.Equal(t, 21, got.LikesCount)
	assert.Equal(t, got.LikesCount, relationCount(t, db, "theme_likes", theme.ID))
}

func TestRecordViewIntegration(t *testing.T) {
	db := testDB(t)
	s := NewReactionStore(db)
	ctx := context.Background()
	theme := createTestTheme(t, db, "reaction-view-it")

	for i := 0; i < 5; i++ {
		count, err := s.RecordView(ctx, theme.ID, "viewer")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	}
	assert.Equal(t, 1, relationCount(t, db, "theme_views", theme.ID))
}
