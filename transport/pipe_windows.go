//go:build windows

package transport

import (
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

const (
	pipeBufSize  = 64 * 1024
	pipeTimeout  = 0
	pipeOpenMode = windows.PIPE_ACCESS_DUPLEX
	pipeMode     = windows.PIPE_TYPE_BYTE | windows.PIPE_READMODE_BYTE | windows.PIPE_WAIT
)

// pipeListener implements net.Listener over a Windows named pipe. Each
// Accept creates a fresh pipe instance and blocks until a client
// connects to it, matching CreateNamedPipe's one-instance-per-client
// model.
type pipeListener struct {
	addr string
}

// Listen opens the platform transport endpoint named by addr: a Windows
// named pipe path (\\.\pipe\name). Grounded on the teacher's GOOS-split
// listener pattern (pcsc_darwin.go / pcsc_linux.go /
// pcsc_unix_no_cgo.go), carrying golang.org/x/sys the way the teacher's
// own go.mod already does as an indirect dependency.
func Listen(addr string) (net.Listener, error) {
	return &pipeListener{addr: addr}, nil
}

func (l *pipeListener) Accept() (net.Conn, error) {
	pathPtr, err := windows.UTF16PtrFromString(l.addr)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid pipe path %s: %w", l.addr, err)
	}

	handle, err := windows.CreateNamedPipe(
		pathPtr,
		uint32(pipeOpenMode),
		uint32(pipeMode),
		windows.PIPE_UNLIMITED_INSTANCES,
		pipeBufSize,
		pipeBufSize,
		pipeTimeout,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("transport: CreateNamedPipe %s: %w", l.addr, err)
	}

	if err := windows.ConnectNamedPipe(handle, nil); err != nil && err != windows.ERROR_PIPE_CONNECTED {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("transport: ConnectNamedPipe %s: %w", l.addr, err)
	}

	return &pipeConn{file: os.NewFile(uintptr(handle), l.addr), addr: pipeAddr(l.addr)}, nil
}

func (l *pipeListener) Close() error { return nil }

func (l *pipeListener) Addr() net.Addr { return pipeAddr(l.addr) }

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }

// pipeConn adapts an *os.File handle over a named-pipe instance to
// net.Conn; deadlines are not supported, since the pipe is always
// operated in blocking byte mode here.
type pipeConn struct {
	file *os.File
	addr pipeAddr
}

func (c *pipeConn) Read(b []byte) (int, error)  { return c.file.Read(b) }
func (c *pipeConn) Write(b []byte) (int, error) { return c.file.Write(b) }
func (c *pipeConn) Close() error                { return c.file.Close() }
func (c *pipeConn) LocalAddr() net.Addr         { return c.addr }
func (c *pipeConn) RemoteAddr() net.Addr        { return c.addr }

func (c *pipeConn) SetDeadline(t time.Time) error     { return syscall.EWINDOWS }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return syscall.EWINDOWS }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return syscall.EWINDOWS }
