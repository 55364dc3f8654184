//go:build !windows

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// ConsoleHost reads raw stdin and feeds bytes into UART0's receiver.
// Only instantiated in main.go for interactive use — never in tests.
type ConsoleHost struct {
	machine      *Machine
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewConsoleHost creates a host adapter that bridges stdin/stdout to the
// machine's UART0.
func NewConsoleHost(m *Machine) *ConsoleHost {
	return &ConsoleHost{
		machine: m,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// crlfWriter expands LF to CRLF so firmware output renders correctly while
// the host terminal is in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (cw *crlfWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\n' {
			if _, err := cw.w.Write([]byte{'\r', '\n'}); err != nil {
				return 0, err
			}
			continue
		}
		if _, err := cw.w.Write([]byte{b}); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Start sets stdin to non-blocking raw mode and begins reading in a
// goroutine. Each byte lands in the UART0 receive buffer; when firmware
// has enabled receive interrupts the UART0 vector fires as well. Ctrl-C
// stops the host. Call Stop() to restore stdin.
func (h *ConsoleHost) Start() {
	h.fd = int(os.Stdin.Fd())

	// Raw mode disables OS-level echo and line buffering; whether typed
	// characters echo is the firmware's business.
	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "console_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "console_host: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	h.machine.UART().SetOutput(&crlfWriter{w: os.Stdout})

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				b := buf[0]
				// Ctrl-C arrives as a raw byte in raw mode; treat it as
				// the exit chord rather than delivering it to firmware.
				if b == 0x03 {
					h.requestStop()
					return
				}
				// Raw mode sends CR for Enter; translate to LF.
				if b == '\r' {
					b = '\n'
				}
				// Modern terminals send 0x7F (DEL) for Backspace; translate to 0x08 (BS).
				if b == 0x7F {
					b = 0x08
				}
				h.deliver(b)
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// deliver queues a byte into the receiver and fires the UART0 vector when
// receive interrupts are enabled. A stalled or faulted handler is reported
// but does not kill the host.
func (h *ConsoleHost) deliver(b byte) {
	uart := h.machine.UART()
	uart.QueueInput(b)
	if !uart.ReceiveInterruptEnabled() {
		return
	}
	if err := h.machine.InjectEvent(VECTOR_UART0); err != nil {
		fmt.Fprintf(os.Stderr, "\r\nconsole_host: %v\r\n", err)
	}
}

func (h *ConsoleHost) requestStop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
}

// Stop terminates the stdin reading goroutine and restores the terminal.
func (h *ConsoleHost) Stop() {
	h.requestStop()
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// Wait blocks until the reader goroutine exits (Ctrl-C or read error).
func (h *ConsoleHost) Wait() {
	<-h.done
}
