package tree

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/spdfg/powerbalancer/bperrors"
)

// Environment variables consulted when dialing a child agent over SSH,
// generalizing rapl/cap.go's RAPL_PSSWD / RAPL_PKG_THROTTLE_SCRIPT_LOCATION
// pair from "run one remote capping script" to "exchange one tick's
// policy/sample vector with a remote agent process".
const (
	EnvSSHPassword   = "POWERBALANCER_SSH_PASSWORD"
	EnvRemoteCommand = "POWERBALANCER_REMOTE_AGENT_CMD"
)

// SSHChild describes one remote child agent reachable by SSH.
type SSHChild struct {
	Host  string
	User  string
	Index int
}

// SSHCommunicator is an out-of-process Communicator that ships each
// tick's policy vector to a remote child by invoking the configured
// remote agent command over SSH and parses the single-line sample
// vector it prints back on stdout. It is the non-stub reference
// implementation of the abstract tree transport facade from spec.md
// section 6.
type SSHCommunicator struct {
	children []SSHChild
	dial     func(host, user string) (*ssh.Client, error)
}

// NewSSHCommunicator builds a communicator for the given remote
// children, dialing each one with password auth the way rapl/cap.go
// does (host key verification is intentionally not performed here
// either, matching the teacher's existing posture for this
// already-trusted management network).
func NewSSHCommunicator(children []SSHChild) *SSHCommunicator {
	return &SSHCommunicator{
		children: children,
		dial: func(host, user string) (*ssh.Client, error) {
			cfg := &ssh.ClientConfig{
				User: user,
				Auth: []ssh.AuthMethod{
					ssh.Password(os.Getenv(EnvSSHPassword)),
				},
				HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			}
			return ssh.Dial("tcp", host+":22", cfg)
		},
	}
}

// DescendDown ships policy to every remote child by invoking the
// configured remote agent command with the four policy fields as
// arguments.
func (c *SSHCommunicator) DescendDown(level int, policy PolicyVector) error {
	for _, child := range c.children {
		if err := c.sendPolicy(child, policy); err != nil {
			return bperrors.Wrap(bperrors.TransientPlatform, err,
				fmt.Sprintf("descend to child %d (%s)", child.Index, child.Host))
		}
	}
	return nil
}

func (c *SSHCommunicator) sendPolicy(child SSHChild, policy PolicyVector) error {
	conn, err := c.dial(child.Host, child.User)
	if err != nil {
		return errors.Wrap(err, "failed to dial child")
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}
	defer session.Close()

	cmd := strings.Join([]string{
		os.Getenv(EnvRemoteCommand),
		"--descend",
		fmt.Sprintf("%f", policy.PowerCap),
		fmt.Sprintf("%d", policy.StepCount),
		fmt.Sprintf("%f", policy.MaxEpochRuntime),
		fmt.Sprintf("%f", policy.PowerSlack),
	}, " ")

	if err := session.Run(cmd); err != nil {
		return errors.Wrap(err, "failed to run remote agent command")
	}
	return nil
}

// AscendUp collects one sample vector per remote child by invoking the
// remote agent command with --ascend and scanning its single-line CSV
// reply off stdout.
func (c *SSHCommunicator) AscendUp(level int) ([]SampleVector, error) {
	out := make([]SampleVector, 0, len(c.children))
	for _, child := range c.children {
		sample, err := c.fetchSample(child)
		if err != nil {
			return nil, bperrors.Wrap(bperrors.TransientPlatform, err,
				fmt.Sprintf("ascend from child %d (%s)", child.Index, child.Host))
		}
		out = append(out, sample)
	}
	return out, nil
}

func (c *SSHCommunicator) fetchSample(child SSHChild) (SampleVector, error) {
	conn, err := c.dial(child.Host, child.User)
	if err != nil {
		return SampleVector{}, errors.Wrap(err, "failed to dial child")
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return SampleVector{}, errors.Wrap(err, "failed to create session")
	}
	defer session.Close()

	pipe, err := session.StdoutPipe()
	if err != nil {
		return SampleVector{}, errors.Wrap(err, "failed to open stdout pipe")
	}

	cmd := strings.Join([]string{os.Getenv(EnvRemoteCommand), "--ascend"}, " ")
	if err := session.Start(cmd); err != nil {
		return SampleVector{}, errors.Wrap(err, "failed to start remote agent command")
	}

	scanner := bufio.NewScanner(pipe)
	var line string
	if scanner.Scan() {
		line = scanner.Text()
	}
	if err := session.Wait(); err != nil {
		return SampleVector{}, errors.Wrap(err, "remote agent command failed")
	}
	return parseSampleCSV(line)
}

func parseSampleCSV(line string) (SampleVector, error) {
	var s SampleVector
	_, err := fmt.Sscanf(line, "%d,%f,%f,%f",
		&s.StepCount, &s.MaxEpochRuntime, &s.SumPowerSlack, &s.MinPowerHeadroom)
	if err != nil {
		return SampleVector{}, errors.Wrap(err, "failed to parse sample vector")
	}
	return s, nil
}
