package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/emesix/switchcraft/internal/backoff"
	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/xerr"
)

// zyxelPromptRE matches the interactive shell prompt: ".*# $" (spec §6).
var zyxelPromptRE = regexp.MustCompile(`#\s*$`)

// legacyKexAlgorithms and legacyCiphers restore key-exchange and cipher
// suites dropped from golang.org/x/crypto/ssh's modern defaults but still
// spoken by firmware built against OpenSSH <= 6.2 (spec §4.1).
var legacyKexAlgorithms = []string{
	"diffie-hellman-group14-sha1",
	"diffie-hellman-group1-sha1",
	"diffie-hellman-group-exchange-sha1",
}

var legacyCiphers = []string{
	"aes128-cbc",
	"3des-cbc",
	"aes128-ctr",
	"aes192-ctr",
	"aes256-ctr",
}

// ZyxelSSHConfig configures a ZyxelSSH transport.
type ZyxelSSHConfig struct {
	Device        model.Device
	Password      string
	ReadTimeout   time.Duration
	BackoffPolicy backoff.Policy
}

// ZyxelSSH drives an interactive (not exec) SSH shell against a Zyxel
// GS1900's legacy CLI. The CLI is read-only here: writes are routed to
// ZyxelHTTPS by the handler layer (spec §4.1).
type ZyxelSSH struct {
	cfg    ZyxelSSHConfig
	mu     sync.Mutex
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
}

// NewZyxelSSH builds a transport for the given device.
func NewZyxelSSH(cfg ZyxelSSHConfig) *ZyxelSSH {
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 20 * time.Second
	}
	if cfg.BackoffPolicy == (backoff.Policy{}) {
		cfg.BackoffPolicy = backoff.Default
	}
	return &ZyxelSSH{cfg: cfg}
}

func (t *ZyxelSSH) DeviceID() string { return t.cfg.Device.ID }

func (t *ZyxelSSH) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client != nil
}

// Connect dials SSH with the legacy algorithm set re-enabled, opens an
// interactive shell, and reads until the first prompt.
func (t *ZyxelSSH) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return nil
	}

	config := &ssh.ClientConfig{
		User: "admin",
		Auth: []ssh.AuthMethod{
			ssh.Password(t.cfg.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
		Config: ssh.Config{
			KeyExchanges: legacyKexAlgorithms,
			Ciphers:      legacyCiphers,
		},
	}

	addr := fmt.Sprintf("%s:%d", t.cfg.Device.Host, t.cfg.Device.Port)
	var client *ssh.Client
	err := backoff.Retry(t.cfg.BackoffPolicy, func() bool { return ctx.Err() != nil }, func(attempt int) error {
		logx.WithDevice(t.cfg.Device.ID).WithField("attempt", attempt).Info("dialing zyxel ssh")
		c, dialErr := ssh.Dial("tcp", addr, config)
		if dialErr != nil {
			return dialErr
		}
		client = c
		return nil
	})
	if err != nil {
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "ssh dial failed")
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "ssh session failed")
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "stdin pipe failed")
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "stdout pipe failed")
	}
	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "shell request failed")
	}

	t.client, t.sess, t.stdin, t.stdout = client, sess, stdin, stdout

	if _, err := t.readUntilPrompt(); err != nil {
		t.closeLocked()
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "no initial prompt")
	}
	return nil
}

func (t *ZyxelSSH) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *ZyxelSSH) closeLocked() error {
	if t.client == nil {
		return nil
	}
	if t.sess != nil {
		t.sess.Close()
	}
	err := t.client.Close()
	t.client, t.sess, t.stdin, t.stdout = nil, nil, nil, nil
	return err
}

// readUntilPrompt reads from stdout, dismissing "--More--" with a space,
// until the shell prompt matches.
func (t *ZyxelSSH) readUntilPrompt() (string, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, err := t.stdout.Read(chunk)
		if n > 0 {
			segment := string(chunk[:n])
			buf.WriteString(segment)
			if strings.Contains(segment, "--More--") {
				t.stdin.Write([]byte(" "))
				continue
			}
			if zyxelPromptRE.MatchString(lastLine(buf.String())) {
				return buf.String(), nil
			}
		}
		if err != nil {
			return buf.String(), err
		}
	}
}

// Execute runs a single read-only command. Any command this CLI recognizes
// as a write attempt is rejected here; the handler is responsible for
// routing writes to ZyxelHTTPS instead (spec §4.1).
func (t *ZyxelSSH) Execute(ctx context.Context, command string) (CommandResult, error) {
	results, err := t.ExecuteBatch(ctx, []string{command}, true)
	if err != nil {
		return CommandResult{Command: command}, err
	}
	if len(results) == 0 {
		return CommandResult{Command: command}, xerr.New(xerr.KindProtocol, t.cfg.Device.ID, "no result for command")
	}
	return results[0], nil
}

// ExecuteBatch sends each command and reads until the prompt returns,
// per-command (the shell acknowledges each line individually).
func (t *ZyxelSSH) ExecuteBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil, xerr.New(xerr.KindTransport, t.cfg.Device.ID, "not connected")
	}

	var results []CommandResult
	for _, cmd := range commands {
		if cmd == "" {
			return results, xerr.New(xerr.KindValidation, t.cfg.Device.ID, "empty command string").WithCommand(cmd)
		}
		if isWriteCommand(cmd) {
			return results, xerr.New(xerr.KindVendorReject, t.cfg.Device.ID, "unsupported-on-transport: write commands must use the HTTPS transport").WithCommand(cmd)
		}
		if _, err := t.stdin.Write([]byte(cmd + "\r\n")); err != nil {
			return results, xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "write failed").WithCommand(cmd)
		}
		out, err := t.readUntilPrompt()
		if err != nil {
			return results, xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "read failed").WithCommand(cmd)
		}
		hint := ClassifyOutput(out)
		results = append(results, CommandResult{Command: cmd, Output: out, Hint: hint})
		if hint == ExitDisconnect {
			t.closeLocked()
			return results, xerr.New(xerr.KindTransport, t.cfg.Device.ID, "session closed mid-batch").WithCommand(cmd)
		}
		if stopOnError && hint == ExitError {
			break
		}
	}
	return results, nil
}

// writeCommandPrefixes are CLI verbs that mutate state; this CLI only
// understands them well enough to reject them (spec §4.1).
var writeCommandPrefixes = []string{"vlan", "no vlan", "interface", "configure", "write"}

func isWriteCommand(cmd string) bool {
	lower := strings.ToLower(strings.TrimSpace(cmd))
	for _, p := range writeCommandPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
