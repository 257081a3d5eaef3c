package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"strings"
	"study_buddy_backend/internal/util"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MySQL 服务端返回的暂时性错误码
var transientMySQLCodes = map[uint16]bool{
	1040: true, // ER_CON_COUNT_ERROR
	1053: true, // ER_SERVER_SHUTDOWN
	1205: true, // ER_LOCK_WAIT_TIMEOUT
	1213: true, // ER_LOCK_DEADLOCK
	1927: true, // ER_CONNECTION_KILLED
}

// translate 把 gorm 和驱动错误转换为 util 中定义的错误，notFound 为 nil 时保留原错误
func translate(err error, notFound error, op string) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && stderrors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case isUnavailable(err):
		return errors.Wrapf(util.ErrStorageUnavailable, "%s: %v", op, err)
	default:
		return errors.Wrap(err, op)
	}
}

// isUnavailable 连接池关闭、连接断开、网络错误和超时都视为存储暂不可用，调用方可以重试
func isUnavailable(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, sql.ErrConnDone) || stderrors.Is(err, driver.ErrBadConn) ||
		stderrors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	var myErr *mysql.MySQLError
	if stderrors.As(err, &myErr) {
		return transientMySQLCodes[myErr.Number]
	}

	// database/sql 和 sqlite 驱动没有导出这两类错误
	msg := err.Error()
	return strings.Contains(msg, "sql: database is closed") || strings.Contains(msg, "database is locked")
}

// isDuplicateKey 未开启 TranslateError 的连接按驱动错误文本判断
func isDuplicateKey(err error) bool {
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
