package rsp

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockRemote struct {
	input  bytes.Buffer
	output bytes.Buffer
}

func (m *mockRemote) Read(p []byte) (int, error) {
	return m.input.Read(p)
}

func (m *mockRemote) Write(p []byte) (int, error) {
	return m.output.Write(p)
}

func (m *mockRemote) Append(data string) {
	m.input.WriteString(data)
}

var recvTests = []struct {
	input    string
	ack      bool
	want     string
	wantOut  string
	hasError bool
}{
	{
		input: packet("Z0,1000,1"),
		want:  "Z0,1000,1",
	},
	{
		input:    "$Z0,1000,1#XX",
		hasError: true,
	},
	{
		input:    "$Z0,1000,1#00",
		hasError: true,
	},
	{
		// leading ack chatter is skipped
		input: "+" + packet("m0,4"),
		want:  "m0,4",
	},
	{
		input:   packet("m0,4"),
		ack:     true,
		want:    "m0,4",
		wantOut: "+",
	},
	{
		// corrupt packet is nacked, the retransmission accepted
		input:   "$m0,4#00" + packet("m0,4"),
		ack:     true,
		want:    "m0,4",
		wantOut: "-+",
	},
	{
		// '}'-escaped payload bytes decode after checksum verification
		input: packet("m}\x0c,4"),
		want:  "m,,4",
	},
}

func TestConnRecv(t *testing.T) {
	for _, tt := range recvTests {
		ms := &mockRemote{}
		ms.Append(tt.input)

		c := newConn(ms)
		c.ack = tt.ack

		got, err := c.recv()
		if tt.hasError {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		assert.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, tt.wantOut, ms.output.String(), "input %q", tt.input)
	}
}

func TestConnSend(t *testing.T) {
	ms := &mockRemote{}
	c := newConn(ms)
	c.ack = false

	assert.NoError(t, c.send("OK"))
	assert.Equal(t, "$OK#9a", ms.output.String())
}

func TestConnSendRetransmit(t *testing.T) {
	ms := &mockRemote{}
	ms.Append("-+")

	c := newConn(ms)
	assert.NoError(t, c.send("OK"))
	assert.Equal(t, "$OK#9a$OK#9a", ms.output.String())
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint8(0x9a), checksum("OK"))
	assert.Equal(t, uint8(0), checksum(""))
}

func packet(payload string) string {
	return fmt.Sprintf("$%s#%02x", payload, checksum(payload))
}

func TestPacketHelperMatchesRecv(t *testing.T) {
	ms := &mockRemote{}
	ms.Append(packet("qSupported"))

	c := newConn(ms)
	c.ack = false

	got, err := c.recv()
	assert.NoError(t, err)
	assert.Equal(t, "qSupported", got)
}
