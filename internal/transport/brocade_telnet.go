package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/emesix/switchcraft/internal/backoff"
	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/xerr"
)

// brocadePromptRE matches the line-based CLI prompt: ".+[>#]\s*$" (spec §6).
var brocadePromptRE = regexp.MustCompile(`[>#]\s*$`)

// BrocadeTelnetConfig configures a BrocadeTelnet transport.
type BrocadeTelnetConfig struct {
	Device           model.Device
	EnablePassword   string
	LoginPassword    string
	ReadTimeout      time.Duration
	BackoffPolicy    backoff.Policy
}

// BrocadeTelnet speaks the line-oriented Telnet CLI used by Brocade
// FastIron switches: no negotiated Telnet options, just raw text over TCP,
// \r\n terminated, driven entirely by prompt matching (spec §4.1).
type BrocadeTelnet struct {
	cfg  BrocadeTelnetConfig
	mu   sync.Mutex
	conn net.Conn
	inConfigMode bool
}

// NewBrocadeTelnet builds a transport for the given device.
func NewBrocadeTelnet(cfg BrocadeTelnetConfig) *BrocadeTelnet {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 20 * time.Second
	}
	if cfg.BackoffPolicy == (backoff.Policy{}) {
		cfg.BackoffPolicy = backoff.Default
	}
	return &BrocadeTelnet{cfg: cfg}
}

func (t *BrocadeTelnet) DeviceID() string { return t.cfg.Device.ID }

// Connected reports whether a live TCP session is held.
func (t *BrocadeTelnet) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Connect dials the device, retrying per the backoff policy, then drives
// the login sequence up to the privileged "#" prompt and disables paging
// (spec §4.1: without skip-page-display, --More-- would deadlock readers).
func (t *BrocadeTelnet) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", t.cfg.Device.Host, t.cfg.Device.Port)
	var conn net.Conn
	err := backoff.Retry(t.cfg.BackoffPolicy, func() bool { return ctx.Err() != nil }, func(attempt int) error {
		logx.WithDevice(t.cfg.Device.ID).WithField("attempt", attempt).Info("dialing brocade telnet")
		d := net.Dialer{Timeout: 10 * time.Second}
		c, dialErr := d.DialContext(ctx, "tcp", addr)
		if dialErr != nil {
			return dialErr
		}
		conn = c
		return nil
	})
	if err != nil {
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "dial failed")
	}

	if loginErr := t.login(conn); loginErr != nil {
		conn.Close()
		return loginErr
	}

	t.conn = conn
	return nil
}

func (t *BrocadeTelnet) login(conn net.Conn) error {
	// Prime the session: many FastIron units print a banner, then a ">"
	// (user mode) prompt.
	out, err := t.readUntilPrompt(conn)
	if err != nil {
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "no initial prompt")
	}

	if strings.Contains(out, ">") && !strings.Contains(out, "#") {
		if err := t.send(conn, "enable"); err != nil {
			return err
		}
		if _, err := t.readUntilMatch(conn, regexp.MustCompile(`(?i)password`)); err != nil {
			return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "no enable password prompt")
		}
		if err := t.send(conn, t.cfg.EnablePassword); err != nil {
			return err
		}
		if _, err := t.readUntilPrompt(conn); err != nil {
			return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "enable failed")
		}
	}

	if err := t.send(conn, "skip-page-display"); err != nil {
		return err
	}
	if _, err := t.readUntilPrompt(conn); err != nil {
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "skip-page-display failed")
	}
	return nil
}

func (t *BrocadeTelnet) send(conn net.Conn, line string) error {
	conn.SetWriteDeadline(time.Now().Add(t.cfg.ReadTimeout))
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

// readUntilPrompt reads until the Brocade prompt regex matches at the end
// of accumulated output.
func (t *BrocadeTelnet) readUntilPrompt(conn net.Conn) (string, error) {
	return t.readUntilMatch(conn, brocadePromptRE)
}

func (t *BrocadeTelnet) readUntilMatch(conn net.Conn, re *regexp.Regexp) (string, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	deadline := time.Now().Add(t.cfg.ReadTimeout)
	for {
		conn.SetReadDeadline(deadline)
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if re.MatchString(lastLine(buf.String())) {
				return buf.String(), nil
			}
		}
		if err != nil {
			return buf.String(), err
		}
	}
}

func lastLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}

// Close tears down the TCP session.
func (t *BrocadeTelnet) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.inConfigMode = false
	return err
}

// Execute runs a single command and classifies the response (spec §4.1).
func (t *BrocadeTelnet) Execute(ctx context.Context, command string) (CommandResult, error) {
	results, err := t.ExecuteBatch(ctx, []string{command}, true)
	if err != nil {
		return CommandResult{Command: command}, err
	}
	if len(results) == 0 {
		return CommandResult{Command: command}, xerr.New(xerr.KindProtocol, t.cfg.Device.ID, "no result for command")
	}
	return results[0], nil
}

// ExecuteBatch sends the commands one at a time and reads until the
// privileged "#" prompt returns after each, so every command gets its own
// output segment. This holds whether or not stopOnError is set; the batch
// is never written in one shot.
func (t *BrocadeTelnet) ExecuteBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil, xerr.New(xerr.KindTransport, t.cfg.Device.ID, "not connected").WithCommand(strings.Join(commands, "; "))
	}

	var results []CommandResult
	for _, cmd := range commands {
		if cmd == "" {
			return results, xerr.New(xerr.KindValidation, t.cfg.Device.ID, "empty command string").WithCommand(cmd)
		}
		if err := t.send(t.conn, cmd); err != nil {
			return results, xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "write failed").WithCommand(cmd)
		}
		out, err := t.readUntilPrompt(t.conn)
		if err != nil {
			return results, xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "read failed").WithCommand(cmd)
		}
		hint := ClassifyOutput(out)
		results = append(results, CommandResult{Command: cmd, Output: out, Hint: hint})
		if hint == ExitDisconnect {
			t.conn.Close()
			t.conn = nil
			return results, xerr.New(xerr.KindTransport, t.cfg.Device.ID, "session closed mid-batch").WithCommand(cmd)
		}
		if stopOnError && hint == ExitError {
			break
		}
	}
	return results, nil
}

// ExecuteConfigBatch enters "configure terminal", runs commands, and exits
// with "end". If a stale session blocks config mode, it issues "kill
// console <n>" and retries once (spec §4.1).
func (t *BrocadeTelnet) ExecuteConfigBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error) {
	enter, err := t.ExecuteBatch(ctx, []string{"configure terminal"}, false)
	if err != nil {
		return nil, err
	}
	if len(enter) == 1 && strings.Contains(strings.ToLower(enter[0].Output), "already in configuration mode") {
		if console := extractConsoleID(enter[0].Output); console != "" {
			if _, err := t.ExecuteBatch(ctx, []string{fmt.Sprintf("kill console %s", console)}, false); err != nil {
				return nil, err
			}
			if _, err := t.ExecuteBatch(ctx, []string{"configure terminal"}, false); err != nil {
				return nil, err
			}
		}
	}

	results, err := t.ExecuteBatch(ctx, commands, stopOnError)
	if _, exitErr := t.ExecuteBatch(ctx, []string{"end"}, false); exitErr != nil && err == nil {
		err = exitErr
	}
	return results, err
}

func extractConsoleID(output string) string {
	re := regexp.MustCompile(`console (\d+)`)
	m := re.FindStringSubmatch(output)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}

// SaveConfig issues "write memory" to persist the running config (spec
// §4.1, §4.4: required after any config-mode batch on Brocade).
func (t *BrocadeTelnet) SaveConfig(ctx context.Context) error {
	_, err := t.ExecuteBatch(ctx, []string{"write memory"}, false)
	return err
}

// LoadEnablePassword reads the enable password from the device's
// configured environment variable, per spec §6 (credentials arrive via
// environment, never stored).
func LoadEnablePassword(device model.Device) (string, error) {
	v := os.Getenv(device.CredentialEnv)
	if v == "" {
		return "", xerr.New(xerr.KindValidation, device.ID, fmt.Sprintf("environment variable %s is unset", device.CredentialEnv))
	}
	return v, nil
}
