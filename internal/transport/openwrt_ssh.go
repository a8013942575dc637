package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/emesix/switchcraft/internal/backoff"
	"github.com/emesix/switchcraft/internal/logx"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/xerr"
)

// OpenWrtSSHConfig configures an OpenWrtSSH transport.
type OpenWrtSSHConfig struct {
	Device        model.Device
	Password      string
	Username      string
	BackoffPolicy backoff.Policy
}

// OpenWrtSSH runs each command as its own exec_command — there is no
// persistent shell (spec §4.1). File edits (uci's on-disk form) go through
// SCP via ReadFile/WriteFile.
type OpenWrtSSH struct {
	cfg    OpenWrtSSHConfig
	mu     sync.Mutex
	client *ssh.Client
}

// NewOpenWrtSSH builds a transport for the given device.
func NewOpenWrtSSH(cfg OpenWrtSSHConfig) *OpenWrtSSH {
	if cfg.Username == "" {
		cfg.Username = "root"
	}
	if cfg.BackoffPolicy == (backoff.Policy{}) {
		cfg.BackoffPolicy = backoff.Default
	}
	return &OpenWrtSSH{cfg: cfg}
}

func (t *OpenWrtSSH) DeviceID() string { return t.cfg.Device.ID }

func (t *OpenWrtSSH) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client != nil
}

// Connect dials SSH with retry per the backoff policy. No shell is opened;
// each Execute call gets its own session.
func (t *OpenWrtSSH) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return nil
	}

	config := &ssh.ClientConfig{
		User:            t.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(t.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", t.cfg.Device.Host, portOrDefault(t.cfg.Device.Port, 22))
	var client *ssh.Client
	err := backoff.Retry(t.cfg.BackoffPolicy, func() bool { return ctx.Err() != nil }, func(attempt int) error {
		logx.WithDevice(t.cfg.Device.ID).WithField("attempt", attempt).Info("dialing openwrt ssh")
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
	t.client = client
	return nil
}

func (t *OpenWrtSSH) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// Execute runs command as a single exec_command and returns combined
// output classified against the shared reject patterns.
func (t *OpenWrtSSH) Execute(ctx context.Context, command string) (CommandResult, error) {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return CommandResult{Command: command}, xerr.New(xerr.KindTransport, t.cfg.Device.ID, "not connected").WithCommand(command)
	}
	if command == "" {
		return CommandResult{Command: command}, xerr.New(xerr.KindValidation, t.cfg.Device.ID, "empty command string")
	}

	sess, err := client.NewSession()
	if err != nil {
		return CommandResult{Command: command}, xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "session open failed").WithCommand(command)
	}
	defer sess.Close()

	done := make(chan struct{})
	var output []byte
	var runErr error
	go func() {
		output, runErr = sess.CombinedOutput(command)
		close(done)
	}()

	select {
	case <-ctx.Done():
		sess.Close()
		return CommandResult{Command: command}, xerr.Wrap(xerr.KindCancelled, t.cfg.Device.ID, ctx.Err(), "command cancelled").WithCommand(command)
	case <-done:
	}

	out := string(output)
	hint := ClassifyOutput(out)
	if runErr != nil && hint == ExitOK {
		// Exec returned a non-zero exit without a recognized reject
		// pattern; still a protocol-level concern, not classified OK.
		hint = ExitError
	}
	return CommandResult{Command: command, Output: out, Hint: hint}, nil
}

// ExecuteBatch runs each command as its own exec_command (spec §4.1: "no
// persistent shell"), honoring stopOnError between them.
func (t *OpenWrtSSH) ExecuteBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error) {
	var results []CommandResult
	for _, cmd := range commands {
		r, err := t.Execute(ctx, cmd)
		if err != nil {
			return results, err
		}
		results = append(results, r)
		if stopOnError && r.Hint == ExitError {
			break
		}
	}
	return results, nil
}

// ReadFile downloads remotePath via SCP.
func (t *OpenWrtSSH) ReadFile(ctx context.Context, remotePath string) ([]byte, error) {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return nil, xerr.New(xerr.KindTransport, t.cfg.Device.ID, "not connected")
	}
	data, err := scpDownload(ctx, client, remotePath)
	if err != nil {
		return nil, xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "scp download failed")
	}
	return data, nil
}

// WriteFile uploads content to remotePath via SCP. Per spec §4.1, the
// engine must reject an empty or whitespace-only upload before this is
// ever called — that guard lives in the handler, not here, so this
// transport stays a thin wire primitive.
func (t *OpenWrtSSH) WriteFile(ctx context.Context, remotePath string, content []byte) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return xerr.New(xerr.KindTransport, t.cfg.Device.ID, "not connected")
	}
	if err := scpUpload(ctx, client, remotePath, content); err != nil {
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "scp upload failed")
	}
	return nil
}
