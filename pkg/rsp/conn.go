package rsp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxRetransmits = 5

// conn frames remote-serial-protocol packets ($payload#xx) on the stub
// side. Sessions start in ack mode, the client usually switches it off with
// QStartNoAckMode right after the handshake.
type conn struct {
	remote io.ReadWriter
	br     *bufio.Reader
	ack    bool
}

func newConn(remote io.ReadWriter) *conn {
	return &conn{remote: remote, br: bufio.NewReader(remote), ack: true}
}

// recv reads the next request packet, verifying its checksum and acking it
// when ack mode is on.
func (c *conn) recv() (string, error) {
	for i := 0; i < maxRetransmits; i++ {
		res, err := c.br.ReadBytes('#')
		if err != nil {
			return "", err
		}

		buf := make([]byte, 2)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			return "", err
		}

		// anything before '$' is ack chatter or an interrupt byte
		start := bytes.IndexByte(res, '$')
		if start < 0 {
			continue
		}

		payload := string(res[start+1 : len(res)-1])
		sum, err := strconv.ParseUint(string(buf), 16, 8)
		if err != nil {
			return "", err
		}
		sumOK := uint8(sum) == checksum(payload)

		if !c.ack {
			if sumOK {
				return unescape(payload), nil
			}
			return "", fmt.Errorf("checksum mismatch: %s", res)
		}

		if sumOK {
			if err := c.sendACK(true); err != nil {
				return "", err
			}
			return unescape(payload), nil
		}
		if err := c.sendACK(false); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("failed to recv packet after %d attempts", maxRetransmits)
}

// send transmits a response packet, retransmitting on a negative ack.
func (c *conn) send(resp string) error {
	p := fmt.Sprintf("$%s#%02x", resp, checksum(resp))

	for i := 0; i < maxRetransmits; i++ {
		if _, err := c.remote.Write([]byte(p)); err != nil {
			return err
		}

		if !c.ack {
			return nil
		}

		ok, err := c.recvACK()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("failed to send %s after %d attempts", resp, maxRetransmits)
}

func (c *conn) sendACK(ack bool) error {
	var err error
	if ack {
		_, err = c.remote.Write([]byte{'+'})
	} else {
		_, err = c.remote.Write([]byte{'-'})
	}
	return err
}

func (c *conn) recvACK() (bool, error) {
	b, err := c.br.ReadByte()
	if err != nil {
		return false, err
	}
	if b != '+' && b != '-' {
		return false, fmt.Errorf("invalid ack byte: %c", b)
	}
	return b == '+', nil
}

// unescape undoes the '}'-escaping of '$', '#' and '}' in a payload. The
// checksum covers the escaped form, so call it only after verification.
func unescape(payload string) string {
	if !strings.ContainsRune(payload, '}') {
		return payload
	}
	out := make([]byte, 0, len(payload))
	for i := 0; i < len(payload); i++ {
		if payload[i] == '}' && i+1 < len(payload) {
			i++
			out = append(out, payload[i]^0x20)
			continue
		}
		out = append(out, payload[i])
	}
	return string(out)
}

func checksum(payload string) uint8 {
	var sum uint8
	for _, b := range []byte(payload) {
		sum += b
	}
	return sum
}
