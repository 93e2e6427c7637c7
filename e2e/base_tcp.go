package e2e

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseTCPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseTCPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set")
	}
}

// Client is a raw line client against the relay.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Step prints a colorized header for a scenario step
func (s *BaseTCPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Join dials the relay and sends the handshake lines.
func (s *BaseTCPSuite) Join(username, room string) *Client {
	conn, err := net.DialTimeout("tcp", s.Config.ServerAddr, 5*time.Second)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.ServerAddr)
	s.T().Cleanup(func() { _ = conn.Close() })

	_, err = fmt.Fprintf(conn, "%s\n%s\n", username, room)
	s.Require().NoError(err)
	return &Client{conn: conn, reader: bufio.NewReader(conn)}
}

func (s *BaseTCPSuite) Send(c *Client, line string) {
	_, err := fmt.Fprintln(c.conn, line)
	s.Require().NoError(err)
}

// Expect reads the next line and compares it without its terminator.
func (s *BaseTCPSuite) Expect(c *Client, want string) {
	s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	line, err := c.reader.ReadString('\n')
	s.Require().NoError(err)
	s.Require().Equal(want, line[:len(line)-1])
}

// ExpectSilence asserts nothing arrives within the given window.
func (s *BaseTCPSuite) ExpectSilence(c *Client, window time.Duration) {
	s.Require().NoError(c.conn.SetReadDeadline(time.Now().Add(window)))
	_, err := c.reader.ReadString('\n')
	var netErr net.Error
	s.Require().ErrorAs(err, &netErr)
	s.Require().True(netErr.Timeout())
}
