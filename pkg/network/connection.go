// Package network 外部依赖的连通性检查
package network

import (
	"context"
	"net"
	"strconv"
	"time"
)

const defaultDialTimeout = 5 * time.Second

// CheckPort 检查指定主机和端口是否可以建立TCP连接
func CheckPort(ctx context.Context, host string, port int) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return conn.Close()
}
