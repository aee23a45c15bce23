package sshexec

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aivistech/infrabot/internal/errors"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHDialer opens sessions with the bot's pre-provisioned private key. The
// matching public key is installed on target hosts by the operator; no
// passwords, no elevated execution.
type SSHDialer struct {
	signer         ssh.Signer
	hostKeyCheck   ssh.HostKeyCallback
	connectTimeout time.Duration
}

func NewSSHDialer(keyPath, knownHostsPath string, connectTimeout time.Duration) (*SSHDialer, error) {
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w", keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", keyPath, err)
	}

	hostKeyCheck := ssh.InsecureIgnoreHostKey()
	if knownHostsPath != "" {
		hostKeyCheck, err = knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsPath, err)
		}
	}

	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	return &SSHDialer{
		signer:         signer,
		hostKeyCheck:   hostKeyCheck,
		connectTimeout: connectTimeout,
	}, nil
}

func (d *SSHDialer) Dial(ctx context.Context, target Target) (Conn, error) {
	cfg := &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(d.signer)},
		HostKeyCallback: d.hostKeyCheck,
		Timeout:         d.connectTimeout,
	}

	addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	return &sshConn{client: client}, nil
}

func classifyDialError(addr string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return errors.AuthFailed(fmt.Sprintf("ssh auth to %s rejected", addr))
	}
	return errors.ConnectionFailed(fmt.Sprintf("ssh dial %s: %v", addr, err))
}

type sshConn struct {
	client *ssh.Client
}

// Run executes one script on a fresh session. ssh sessions are single-use,
// so each command gets its own. On context expiry the session is torn down
// and the command reported as timed out.
func (c *sshConn) Run(ctx context.Context, script string) (string, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return "", errors.ConnectionFailed("open ssh session: " + err.Error())
	}
	defer sess.Close()

	type result struct {
		output []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, runErr := sess.CombinedOutput(script)
		done <- result{output: output, err: runErr}
	}()

	select {
	case res := <-done:
		output := strings.TrimSpace(string(res.output))
		if res.err != nil {
			return output, fmt.Errorf("remote command exited: %w", res.err)
		}
		return output, nil
	case <-ctx.Done():
		sess.Close()
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.CommandTimeout(script)
		}
		return "", ctx.Err()
	}
}

func (c *sshConn) Close() error {
	return c.client.Close()
}
