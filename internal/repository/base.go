package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// base 持有数据库连接和可选的事务连接，事务存在时所有语句都在事务内执行
type base struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func (b base) ext() sqlx.ExtContext {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

func (b base) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, b.ext(), dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (b base) sel(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, b.ext(), dest, query, args...)
}

func (b base) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return b.ext().ExecContext(ctx, query, args...)
}

// insert 执行INSERT并返回自增ID
func (b base) insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := b.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execAffected 执行语句，未影响任何行时返回ErrNotFound
func (b base) execAffected(ctx context.Context, query string, args ...interface{}) error {
	result, err := b.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TxManager 事务管理
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// InTx 在事务中执行fn，fn返回错误时回滚
func (m *TxManager) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// conditions 动态拼接WHERE子句
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

// in 追加IN条件，占位符由 build 展开，空列表时条件恒为假
func (c *conditions) in(column string, ids []int64) {
	if len(ids) == 0 {
		c.add("1 = 0")
		return
	}
	c.add(column+" IN (?)", ids)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// build 拼接 head + WHERE + tail，并用 sqlx.In 展开IN参数
func (c *conditions) build(head, tail string, extra ...interface{}) (string, []interface{}, error) {
	args := make([]interface{}, 0, len(c.args)+len(extra))
	args = append(args, c.args...)
	args = append(args, extra...)
	return sqlx.In(head+c.where()+tail, args...)
}

// likePattern 转义LIKE通配符
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
