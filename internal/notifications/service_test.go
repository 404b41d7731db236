package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplyhub/marketplace-backend/internal/testdb"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

func TestNotificationInbox(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	owner, other := uuid.New(), uuid.New()
	rows := []models.Notification{
		{UserID: owner, Type: enums.NotificationTypeWelcome, Title: "hi", Message: "m1"},
		{UserID: owner, Type: enums.NotificationTypeOrderConfirmation, Title: "order", Message: "m2"},
		{UserID: other, Type: enums.NotificationTypeWelcome, Title: "hi", Message: "m3"},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), rows))

	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	list, err := svc.List(ctx, ListParams{UserID: owner})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	err = svc.MarkRead(ctx, other, rows[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	require.NoError(t, svc.MarkRead(ctx, owner, rows[0].ID))
	require.NoError(t, svc.MarkRead(ctx, owner, rows[0].ID))

	unread, err := svc.List(ctx, ListParams{UserID: owner, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "m2", unread[0].Message)

	n, err := svc.MarkAllRead(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.List(ctx, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.True(t, pkgerrors.IsCode(svc.MarkRead(ctx, owner, uuid.Nil), pkgerrors.CodeValidation))
}

func TestDeleteReadBeforeKeepsUnread(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()
	rows := []models.Notification{
		{UserID: owner, Type: enums.NotificationTypeWelcome, Title: "hi", Message: "read"},
		{UserID: owner, Type: enums.NotificationTypeWelcome, Title: "hi", Message: "unread"},
	}
	require.NoError(t, repo.CreateBatch(ctx, rows))
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.Notification{}).Where("1 = 1").UpdateColumn("created_at", old).Error)
	found, err := repo.MarkRead(ctx, owner, rows[0].ID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, found)

	deleted, err := repo.DeleteReadBefore(ctx, nil, time.Now().UTC().Add(-30*24*time.Hour), 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var remaining []models.Notification
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "unread", remaining[0].Message)
}

func TestDeleteReadBeforeHonoursLimit(t *testing.T) {
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	owner := uuid.New()
	rows := make([]models.Notification, 3)
	for i := range rows {
		rows[i] = models.Notification{UserID: owner, Type: enums.NotificationTypeWelcome, Title: "hi", Message: "read"}
	}
	require.NoError(t, repo.CreateBatch(ctx, rows))
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.Notification{}).Where("1 = 1").UpdateColumn("created_at", old).Error)
	_, err := repo.MarkAllRead(ctx, owner, time.Now().UTC())
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	deleted, err := repo.DeleteReadBefore(ctx, nil, cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	deleted, err = repo.DeleteReadBefore(ctx, nil, cutoff, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
