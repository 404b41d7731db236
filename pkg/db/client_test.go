package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type shopRow struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openClient(t *testing.T) (*Client, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), GormConfig(nil, 0))
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&shopRow{}))
	return FromConn(conn), conn
}

func shopNames(t *testing.T, conn *gorm.DB) []string {
	t.Helper()
	var names []string
	require.NoError(t, conn.Model(&shopRow{}).Order("name").Pluck("name", &names).Error)
	return names
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	client, conn := openClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&shopRow{Name: "Gadget Hub"}).Error
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Gadget Hub"}, shopNames(t, conn))
}

func TestWithTxRollsBackOnErrorAndPanic(t *testing.T) {
	client, conn := openClient(t)
	ctx := context.Background()
	boom := errors.New("listing 3 has no price")

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&shopRow{Name: "half imported"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&shopRow{Name: "panicked"}).Error)
			panic("decoder blew up")
		})
	})

	assert.Empty(t, shopNames(t, conn))
}

func TestWithTxNestedSavepoint(t *testing.T) {
	client, conn := openClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&shopRow{Name: "outer"}).Error; err != nil {
			return err
		}
		inner := tx.Transaction(func(sp *gorm.DB) error {
			_ = sp.Create(&shopRow{Name: "inner"}).Error
			return errors.New("skip inner")
		})
		assert.Error(t, inner)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer"}, shopNames(t, conn))
}

func TestPing(t *testing.T) {
	client, _ := openClient(t)
	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close())
	assert.Error(t, client.Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	_, conn := openClient(t)
	require.NoError(t, conn.Create(&shopRow{Name: "dup"}).Error)
	sqliteErr := conn.Create(&shopRow{Name: "dup"}).Error

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"sqlite", sqliteErr, "", true},
		{"pgx wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "ux_order_items_order_listing"}), "ux_order_items_order_listing", true},
		{"pgx other constraint", &pgconn.PgError{Code: "23505", ConstraintName: "ux_order_items_order_listing"}, "ux_other", false},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, "", false},
		{"lib/pq", &pq.Error{Code: "23505", Constraint: "ux_orders_user_basket"}, "", true},
		{"unrelated", errors.New("connection reset"), "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}
