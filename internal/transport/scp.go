package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
)

// No example repo or library in the retrieval pack implements the SCP wire
// protocol (see DESIGN.md); this is a minimal sink/source implementation of
// the "scp -t"/"scp -f" single-file exchange, sufficient for whole-file
// /etc/config/network transfers (spec §4.1).

// scpDownload fetches a single remote file by running "scp -f <path>" and
// speaking the source side of the protocol.
func scpDownload(ctx context.Context, client *ssh.Client, remotePath string) ([]byte, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := sess.Start(fmt.Sprintf("scp -f %s", shellQuote(remotePath))); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(stdout)

	// Signal readiness.
	if _, err := stdin.Write([]byte{0}); err != nil {
		return nil, err
	}

	header, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("scp: reading file header: %w", err)
	}
	header = strings.TrimRight(header, "\n")
	if len(header) == 0 || header[0] != 'C' {
		return nil, fmt.Errorf("scp: unexpected header %q", header)
	}
	fields := strings.SplitN(header, " ", 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("scp: malformed header %q", header)
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("scp: invalid size in header %q: %w", header, err)
	}

	if _, err := stdin.Write([]byte{0}); err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("scp: reading file body: %w", err)
	}

	ack := make([]byte, 1)
	if _, err := io.ReadFull(reader, ack); err != nil {
		return nil, fmt.Errorf("scp: reading trailing status byte: %w", err)
	}

	if _, err := stdin.Write([]byte{0}); err != nil {
		return nil, err
	}
	stdin.Close()

	if err := sess.Wait(); err != nil {
		return nil, fmt.Errorf("scp: remote scp -f exited with error: %w", err)
	}

	return data, nil
}

// scpUpload writes content to a single remote file by running "scp -t
// <path>" and speaking the sink side of the protocol.
func scpUpload(ctx context.Context, client *ssh.Client, remotePath string, content []byte) error {
	sess, err := client.NewSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return err
	}

	if err := sess.Start(fmt.Sprintf("scp -t %s", shellQuote(remotePath))); err != nil {
		return err
	}

	reader := bufio.NewReader(stdout)

	if err := readSCPAck(reader); err != nil {
		return fmt.Errorf("scp: initial ack: %w", err)
	}

	base := remotePath
	if i := strings.LastIndex(remotePath, "/"); i >= 0 {
		base = remotePath[i+1:]
	}
	header := fmt.Sprintf("C0644 %d %s\n", len(content), base)
	if _, err := stdin.Write([]byte(header)); err != nil {
		return err
	}
	if err := readSCPAck(reader); err != nil {
		return fmt.Errorf("scp: header ack: %w", err)
	}

	if _, err := stdin.Write(content); err != nil {
		return err
	}
	if _, err := stdin.Write([]byte{0}); err != nil {
		return err
	}
	if err := readSCPAck(reader); err != nil {
		return fmt.Errorf("scp: body ack: %w", err)
	}

	stdin.Close()
	return sess.Wait()
}

// readSCPAck reads one SCP protocol status byte: 0 is success, 1/2 are
// warning/fatal and carry a trailing message line.
func readSCPAck(r *bufio.Reader) error {
	status, err := r.ReadByte()
	if err != nil {
		return err
	}
	if status == 0 {
		return nil
	}
	msg, _ := r.ReadString('\n')
	return fmt.Errorf("scp status %d: %s", status, strings.TrimRight(msg, "\n"))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
