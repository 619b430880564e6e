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

package db

import (
	"fmt"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// newDialector builds the gorm dialector for a DSN.
// It's a variable so tests can substitute a sqlmock connection.
var newDialector = func(dsn string) gorm.Dialector {
	return mysql.Open(dsn)
}

// DSN renders cfg as a go-sql-driver DSN. Credentials are not escaped by
// hand, so passwords containing '@' or '#' are kept intact.
func DSN(cfg config.DBConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}

	mc := gomysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = 10 * time.Second
	mc.Params = map[string]string{"charset": charset}
	return mc.FormatDSN()
}

// Open connects to the database described by cfg.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("database disabled")
	}
	gdb, err := gorm.Open(newDialector(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.GetLogger().Error("[FAIL] database connection failed",
			zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.Error(err))
		return nil, fmt.Errorf("connect database %s: %w", cfg.Host, err)
	}
	logger.GetLogger().Info("[OK] database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return gdb, nil
}

// Close releases the pool behind gdb.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	logger.GetLogger().Info("Database connection closed")
	return sqlDB.Close()
}
