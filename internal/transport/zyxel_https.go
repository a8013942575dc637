package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emesix/switchcraft/internal/backoff"
	"github.com/emesix/switchcraft/internal/model"
	"github.com/emesix/switchcraft/internal/xerr"
)

// obfuscatedLoginLength is the fixed size of the Zyxel GS1900 login
// payload (spec §4.1).
const obfuscatedLoginLength = 321

const (
	tensDigitPosition = 123
	onesDigitPosition = 289
)

var alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ObfuscatePassword implements the GS1900 web login payload encoding: the
// password's characters are placed at positions divisible by 5, written in
// reverse order; the tens digit of the password's length goes at position
// 123, the ones digit at position 289; every other position is filled with
// a random alphanumeric character (spec §4.1).
func ObfuscatePassword(password string) string {
	buf := make([]byte, obfuscatedLoginLength)
	filled := make([]bool, obfuscatedLoginLength)

	reversed := []byte(password)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}

	pos := 0
	for _, c := range reversed {
		if pos >= obfuscatedLoginLength {
			break
		}
		buf[pos] = c
		filled[pos] = true
		pos += 5
	}

	length := len(password)
	tens := (length / 10) % 10
	ones := length % 10
	buf[tensDigitPosition] = byte('0' + tens)
	filled[tensDigitPosition] = true
	buf[onesDigitPosition] = byte('0' + ones)
	filled[onesDigitPosition] = true

	for i := range buf {
		if !filled[i] {
			buf[i] = alphanumeric[rand.Intn(len(alphanumeric))]
		}
	}
	return string(buf)
}

var xssidRE = regexp.MustCompile(`(?i)name=["']?XSSID["']?\s+value=["']?([a-zA-Z0-9]+)["']?`)

// ExtractXSSID pulls the per-page XSSID token out of an HTML response body
// (spec §4.1, §6).
func ExtractXSSID(html string) (string, bool) {
	m := xssidRE.FindStringSubmatch(html)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// ZyxelHTTPSConfig configures a ZyxelHTTPS transport.
type ZyxelHTTPSConfig struct {
	Device        model.Device
	Password      string
	BackoffPolicy backoff.Policy
}

// ZyxelHTTPS is the write path for Zyxel GS1900 devices (spec §4.1.5): an
// obfuscated-login web session whose CGI form POSTs carry a per-page XSSID
// anti-CSRF token. The read-only ZyxelSSH CLI transport handles reads; the
// handler layer routes write commands here.
type ZyxelHTTPS struct {
	cfg       ZyxelHTTPSConfig
	mu        sync.Mutex
	client    *http.Client
	sessionID string
	xssid     string
	connected bool
}

// NewZyxelHTTPS builds a transport for the given device.
func NewZyxelHTTPS(cfg ZyxelHTTPSConfig) *ZyxelHTTPS {
	if cfg.BackoffPolicy == (backoff.Policy{}) {
		cfg.BackoffPolicy = backoff.Default
	}
	return &ZyxelHTTPS{cfg: cfg}
}

func (t *ZyxelHTTPS) DeviceID() string { return t.cfg.Device.ID }

func (t *ZyxelHTTPS) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *ZyxelHTTPS) baseURL() string {
	return fmt.Sprintf("https://%s:%d", t.cfg.Device.Host, portOrDefault(t.cfg.Device.Port, 443))
}

func portOrDefault(p, def int) int {
	if p == 0 {
		return def
	}
	return p
}

// Connect performs the obfuscated login POST and records the session id and
// first-page XSSID token.
func (t *ZyxelHTTPS) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return nil
	}

	if t.client == nil {
		t.client = &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	payload := ObfuscatePassword(t.cfg.Password)
	form := url.Values{"password": {payload}}

	var body string
	err := backoff.Retry(t.cfg.BackoffPolicy, func() bool { return ctx.Err() != nil }, func(attempt int) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL()+"/cgi-bin/dispatcher.cgi?login", strings.NewReader(form.Encode()))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp, doErr := t.client.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()
		b, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return readErr
		}
		body = string(b)
		for _, c := range resp.Cookies() {
			if c.Name == "SessionID" || len(c.Value) == 32 {
				t.sessionID = c.Value
			}
		}
		return nil
	})
	if err != nil {
		return xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "login POST failed")
	}

	xssid, ok := ExtractXSSID(body)
	if !ok {
		return xerr.New(xerr.KindProtocol, t.cfg.Device.ID, "no XSSID token in login response")
	}
	t.xssid = xssid
	t.connected = true
	return nil
}

func (t *ZyxelHTTPS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	t.sessionID = ""
	t.xssid = ""
	return nil
}

// Post submits a CGI form to path with the given fields, always including
// the current XSSID token, and updates it from the response for the next
// call (spec §6).
func (t *ZyxelHTTPS) Post(ctx context.Context, path string, fields map[string]string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return "", xerr.New(xerr.KindTransport, t.cfg.Device.ID, "not connected")
	}

	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set("XSSID", t.xssid)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL()+path, bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return "", xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "request build failed")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "SessionID", Value: t.sessionID})
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "POST failed")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", xerr.Wrap(xerr.KindTransport, t.cfg.Device.ID, err, "read failed")
	}

	if xssid, ok := ExtractXSSID(string(body)); ok {
		t.xssid = xssid
	}

	return string(body), nil
}

// Execute and ExecuteBatch satisfy the Transport interface for callers that
// treat commands uniformly; a "command" here is a "path|k=v,k=v" form
// accepted by the handler layer, not a CLI line.
func (t *ZyxelHTTPS) Execute(ctx context.Context, command string) (CommandResult, error) {
	path, fields := parsePostCommand(command)
	out, err := t.Post(ctx, path, fields)
	if err != nil {
		return CommandResult{Command: command}, err
	}
	return CommandResult{Command: command, Output: out, Hint: ClassifyOutput(out)}, nil
}

func (t *ZyxelHTTPS) ExecuteBatch(ctx context.Context, commands []string, stopOnError bool) ([]CommandResult, error) {
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

// parsePostCommand decodes "path|k=v,k=v" into a CGI path and field map.
func parsePostCommand(command string) (string, map[string]string) {
	parts := strings.SplitN(command, "|", 2)
	path := parts[0]
	fields := map[string]string{}
	if len(parts) == 2 {
		for _, kv := range strings.Split(parts[1], ",") {
			if kv == "" {
				continue
			}
			eq := strings.SplitN(kv, "=", 2)
			if len(eq) == 2 {
				fields[eq[0]] = eq[1]
			}
		}
	}
	return path, fields
}

// String is a small diagnostic helper naming the transport and its port.
func (t *ZyxelHTTPS) String() string {
	return "zyxel-https:" + strconv.Itoa(t.cfg.Device.Port)
}
