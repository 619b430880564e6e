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

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/manyiweb/api-delivery/internal/delivery/model"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// DockOrderRepository reads and cleans up dorder_dock rows.
type DockOrderRepository interface {
	Find(ctx context.Context, dockOrderNo string) (*model.DockOrder, error)
	Count(ctx context.Context, dockOrderNo string) (int64, error)
	Detail(ctx context.Context, dockOrderNo string) (*model.DockOrder, error)
	Cleanup(ctx context.Context, dockOrderNo string) error
	CleanupByPrefix(ctx context.Context, prefix string) (int64, error)
}

type dockOrderRepository struct {
	db *gorm.DB
}

// NewDockOrderRepository creates a new dock order repository.
func NewDockOrderRepository(db *gorm.DB) DockOrderRepository {
	return &dockOrderRepository{db: db}
}

// Find returns the row for dockOrderNo, or nil when there is none.
func (r dockOrderRepository) Find(ctx context.Context, dockOrderNo string) (*model.DockOrder, error) {
	var order model.DockOrder
	result := r.db.WithContext(ctx).Where("dock_order_no = ?", dockOrderNo).Take(&order)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		logger.GetLogger().Error("Query order exist failed", zap.String("dock_order_no", dockOrderNo), zap.Error(result.Error))
		return nil, result.Error
	}
	return &order, nil
}

// Count returns how many rows carry dockOrderNo.
func (r dockOrderRepository) Count(ctx context.Context, dockOrderNo string) (int64, error) {
	var n int64
	result := r.db.WithContext(ctx).Model(&model.DockOrder{}).Where("dock_order_no = ?", dockOrderNo).Count(&n)
	if result.Error != nil {
		logger.GetLogger().Error("Query order count failed", zap.String("dock_order_no", dockOrderNo), zap.Error(result.Error))
		return 0, result.Error
	}
	return n, nil
}

// Detail returns the reporting columns of dockOrderNo, or nil.
func (r dockOrderRepository) Detail(ctx context.Context, dockOrderNo string) (*model.DockOrder, error) {
	var order model.DockOrder
	result := r.db.WithContext(ctx).
		Select("dock_order_no", "order_status", "total_amount", "create_time", "update_time").
		Where("dock_order_no = ?", dockOrderNo).
		Take(&order)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &order, nil
}

// Cleanup deletes the rows of dockOrderNo.
func (r dockOrderRepository) Cleanup(ctx context.Context, dockOrderNo string) error {
	result := r.db.WithContext(ctx).Where("dock_order_no = ?", dockOrderNo).Delete(&model.DockOrder{})
	if result.Error != nil {
		logger.GetLogger().Error("[FAIL] cleanup test order failed", zap.String("dock_order_no", dockOrderNo), zap.Error(result.Error))
		return result.Error
	}
	logger.GetLogger().Info("[OK] cleaned test order", zap.String("dock_order_no", dockOrderNo))
	return nil
}

// CleanupByPrefix deletes every row whose number starts with prefix and
// returns how many were removed.
func (r dockOrderRepository) CleanupByPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, errors.New("cleanup prefix must not be empty")
	}
	result := r.db.WithContext(ctx).Where("dock_order_no LIKE ?", prefix+"%").Delete(&model.DockOrder{})
	if result.Error != nil {
		logger.GetLogger().Error("[FAIL] cleanup test data failed", zap.String("prefix", prefix), zap.Error(result.Error))
		return 0, result.Error
	}
	logger.GetLogger().Info("[OK] cleaned test data", zap.String("prefix", prefix), zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}
