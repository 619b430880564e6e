// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock, func() { sqlDB.Close() }
}

func TestNewDockOrderRepository(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewDockOrderRepository(db)
	assert.Implements(t, (*DockOrderRepository)(nil), repo)
}

func TestDockOrderRepository_Find(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantNil   bool
		wantErr   bool
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "dock_order_no", "order_status", "total_amount", "create_time", "update_time"}).
					AddRow(1, "5301890196000000001", "2", 18.5, created, created)
				mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `dorder_dock` WHERE dock_order_no = ?")).
					WillReturnRows(rows)
			},
		},
		{
			name: "not_found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `dorder_dock`")).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantNil: true,
		},
		{
			name: "database_error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `dorder_dock`")).
					WillReturnError(errors.New("connection reset"))
			},
			wantNil: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()
			tt.setupMock(mock)

			order, err := NewDockOrderRepository(db).Find(context.Background(), "5301890196000000001")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, order)
			} else {
				require.NotNil(t, order)
				assert.Equal(t, "5301890196000000001", order.DockOrderNo)
				assert.Equal(t, 18.5, order.TotalAmount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDockOrderRepository_Count(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `dorder_dock` WHERE dock_order_no = ?")).
		WithArgs("no-1").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	n, err := NewDockOrderRepository(db).Count(context.Background(), "no-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDockOrderRepository_Detail(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `dock_order_no`,`order_status`,`total_amount`,`create_time`,`update_time` FROM `dorder_dock`")).
		WillReturnRows(sqlmock.NewRows([]string{"dock_order_no", "order_status", "total_amount", "create_time", "update_time"}).
			AddRow("no-1", "8", 9.9, now, now))

	order, err := NewDockOrderRepository(db).Detail(context.Background(), "no-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "8", order.OrderStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDockOrderRepository_Cleanup(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `dorder_dock` WHERE dock_order_no = ?")).
		WithArgs("no-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewDockOrderRepository(db).Cleanup(context.Background(), "no-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDockOrderRepository_CleanupByPrefix(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `dorder_dock` WHERE dock_order_no LIKE ?")).
		WithArgs("5301890196%").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	repo := NewDockOrderRepository(db)
	n, err := repo.CleanupByPrefix(context.Background(), "5301890196")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.CleanupByPrefix(context.Background(), "")
	assert.Error(t, err)
}

func TestDockOrderRepository_CleanupRollsBack(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `dorder_dock`")).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	assert.Error(t, NewDockOrderRepository(db).Cleanup(context.Background(), "no-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
