package console

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ziutek/telnet"
)

// DialTelnet 连接 telnet 控制台端口（终端服务器、GNS3/EVE 控制台）
// 返回的连接处理 IAC 协商，写出时不做换行转换
func DialTelnet(ctx context.Context, addr string, timeout time.Duration) (*telnet.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial telnet %s: %w", addr, err)
	}
	conn, err := telnet.NewConn(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("telnet handshake %s: %w", addr, err)
	}
	conn.SetUnixWriteMode(false)
	return conn, nil
}
