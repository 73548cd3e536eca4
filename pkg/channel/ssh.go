package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/newtron-network/relayctl/pkg/util"
)

// DefaultInitCommands disable output paging. IOS, IOS-XE and NX-OS accept
// "terminal length 0"; ASA uses "terminal pager 0". Each family rejects the
// other's form harmlessly.
var DefaultInitCommands = []string{"terminal length 0", "terminal pager 0"}

// promptRe matches a CLI prompt on the last line of output, e.g. "core-sw1#",
// "Router>", "fw1/admin(config)#", "n7k-vdc2(config-if)#".
var promptRe = regexp.MustCompile(`^[A-Za-z0-9_.\-/:@]+(\([A-Za-z0-9_.\-/]+\))?[>#]\s*$`)

// morePrompt is the pager marker sent when paging could not be disabled.
const morePrompt = "--More--"

// SSHConfig holds connection parameters for an SSH command channel.
type SSHConfig struct {
	Host     string
	Port     int // defaults to 22
	User     string
	Password string
	Timeout  time.Duration // dial and handshake timeout; defaults to 30s

	// LegacyAlgorithms enables SHA-1 key exchanges and CBC ciphers still
	// required by older IOS and ASA images.
	LegacyAlgorithms bool

	// InitCommands are sent once after the first prompt. Nil means
	// DefaultInitCommands.
	InitCommands []string

	// ClientVersion is the SSH identification string; empty uses the
	// library default.
	ClientVersion string
}

// SSH is an interactive shell session on a device. It implements Channel.
type SSH struct {
	addr    string
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	chunks  chan []byte
	done    chan struct{}
	buf     bytes.Buffer

	mu      sync.Mutex
	readErr error
	closed  bool
}

// DialSSH connects to the device, opens a PTY shell, waits for the first
// prompt and disables paging.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSH, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	config := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = cfg.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.Timeout,
		ClientVersion:   cfg.ClientVersion,
	}
	if cfg.LegacyAlgorithms {
		config.KeyExchanges = append(config.KeyExchanges,
			"curve25519-sha256", "ecdh-sha2-nistp256",
			"diffie-hellman-group14-sha256", "diffie-hellman-group14-sha1", "diffie-hellman-group1-sha1")
		config.Ciphers = append(config.Ciphers,
			"aes128-ctr", "aes192-ctr", "aes256-ctr", "aes128-cbc", "3des-cbc")
		config.HostKeyAlgorithms = append(config.HostKeyAlgorithms,
			ssh.KeyAlgoRSASHA256, ssh.KeyAlgoRSA, ssh.KeyAlgoECDSA256, ssh.KeyAlgoED25519)
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	util.Logger.Warnf("SSH to %s: host key verification disabled (InsecureIgnoreHostKey)", addr)

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake %s@%s: %w", cfg.User, addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)

	s, err := openShell(client, addr)
	if err != nil {
		client.Close()
		return nil, err
	}

	if _, err := s.readUntilPrompt(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("waiting for initial prompt on %s: %w", addr, err)
	}

	initCmds := cfg.InitCommands
	if initCmds == nil {
		initCmds = DefaultInitCommands
	}
	for _, cmd := range initCmds {
		if _, err := s.Send(ctx, cmd); err != nil {
			s.Close()
			return nil, fmt.Errorf("initializing session on %s: %w", addr, err)
		}
	}

	return s, nil
}

func openShell(client *ssh.Client, addr string) (*SSH, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("SSH session: %w", err)
	}

	// Cisco CLIs only present an interactive prompt on a PTY.
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := session.RequestPty("vt100", 0, 511, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("requesting PTY: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("starting shell: %w", err)
	}

	s := &SSH{
		addr:    addr,
		client:  client,
		session: session,
		stdin:   stdin,
		chunks:  make(chan []byte, 64),
		done:    make(chan struct{}),
	}
	go s.readLoop(stdout)
	return s, nil
}

// readLoop forwards shell output to s.chunks until the reader fails or the
// session is closed.
func (s *SSH) readLoop(r io.Reader) {
	defer close(s.chunks)
	for {
		b := make([]byte, 4096)
		n, err := r.Read(b)
		if n > 0 {
			select {
			case s.chunks <- b[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Send writes command followed by a newline and returns the output printed
// before the next prompt, with the command echo and the prompt removed.
func (s *SSH) Send(ctx context.Context, command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", util.ErrNotConnected
	}
	if s.readErr != nil {
		return "", s.readErr
	}

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return "", fmt.Errorf("writing %q to %s: %w", command, s.addr, err)
	}
	raw, err := s.readUntilPrompt(ctx)
	if err != nil {
		return "", fmt.Errorf("reading response to %q from %s: %w", command, s.addr, err)
	}
	return CleanResponse(raw, command), nil
}

// readUntilPrompt accumulates output until its last line is a prompt.
// Caller holds s.mu (or has exclusive access during setup).
func (s *SSH) readUntilPrompt(ctx context.Context) (string, error) {
	for {
		if tail := lastLine(s.buf.String()); strings.Contains(tail, morePrompt) {
			if _, err := io.WriteString(s.stdin, " "); err != nil {
				return "", err
			}
			s.buf.Truncate(strings.LastIndexByte(s.buf.String(), '\n') + 1)
		} else if IsPrompt(tail) {
			out := s.buf.String()
			s.buf.Reset()
			return out, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-s.chunks:
			if !ok {
				s.readErr = fmt.Errorf("session to %s closed: %w", s.addr, io.EOF)
				return "", s.readErr
			}
			s.buf.Write(chunk)
		}
	}
}

// Close ends the shell and the SSH connection.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.session.Close()
	return s.client.Close()
}

// IsPrompt reports whether line is a device CLI prompt.
func IsPrompt(line string) bool {
	return promptRe.MatchString(strings.TrimRight(line, "\r\n \t"))
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// CleanResponse normalizes line endings and strips the echoed command and the
// trailing prompt from raw shell output.
func CleanResponse(raw, command string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "")
	lines := strings.Split(raw, "\n")

	if len(lines) > 0 && IsPrompt(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	// The first command line is echoed, possibly after a prompt.
	echo := strings.TrimSpace(strings.SplitN(command, "\r", 2)[0])
	if len(lines) > 0 && echo != "" && strings.HasSuffix(strings.TrimSpace(lines[0]), echo) {
		lines = lines[1:]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n ")
}
