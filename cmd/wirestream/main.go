// Command wirestream runs a TCP server that decodes a sequence of
// length-prefixed protobuf messages from each connection using the
// cooperative-suspension PipeSource, without ever buffering a whole
// connection's worth of bytes in memory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/gowire/protolite"
	"github.com/gowire/protolite/logging"
	"github.com/gowire/protolite/wire"
)

func main() {
	configPath := flag.String("config", "", "YAML config file path (optional)")
	flag.Parse()

	cfg, err := loadConfigPath(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)

	style, err := parseFraming(cfg.Framing)
	if err != nil {
		log.Errorf("bad framing style %q: %v", cfg.Framing, err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Errorf("listen %s: %v", cfg.Listen, err)
		os.Exit(1)
	}
	log.Infof("wirestream listening on %s (framing=%s)", cfg.Listen, cfg.Framing)

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Errorf("accept: %v", err)
			continue
		}
		go handleConn(conn, style, log)
	}
}

func parseFraming(s string) (wire.PrefixStyle, error) {
	switch s {
	case "none", "":
		return wire.PrefixNone, nil
	case "base128":
		return wire.PrefixBase128, nil
	case "fixed32":
		return wire.PrefixFixed32, nil
	case "fixed32be":
		return wire.PrefixFixed32BigEndian, nil
	default:
		return 0, fmt.Errorf("unknown framing style %q", s)
	}
}

// connProducer adapts a net.Conn to wire.Producer: each Refill does one
// blocking Read, returning the slice actually read or io.EOF when the peer
// closes the connection. This is the decoder's only point of contact with
// the network — everything upstream of it is wire-format agnostic.
type connProducer struct {
	conn net.Conn
	buf  []byte
}

func newConnProducer(conn net.Conn) *connProducer {
	return &connProducer{conn: conn, buf: make([]byte, 4096)}
}

func (p *connProducer) Refill(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetReadDeadline(deadline)
	}
	n, err := p.conn.Read(p.buf)
	if n > 0 {
		return p.buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

func handleConn(conn net.Conn, style wire.PrefixStyle, log logging.Logger) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log.Infof("connection from %s", remote)

	producer := newConnProducer(conn)
	ctx := context.Background()
	opts := wire.DefaultOptions()
	src := wire.NewPipeSource(ctx, producer, opts.PipeInitialBufSize)

	count := 0
	for {
		fields, err := protolite.DecodeFrameFromSource(src, style, opts)
		if err != nil {
			if err == io.EOF {
				log.Infof("connection %s closed after %d messages", remote, count)
				return
			}
			log.Errorf("connection %s: decode failed after %d messages: %v", remote, count, err)
			return
		}
		count++
		log.Debugf("connection %s: message %d decoded, %d top-level fields", remote, count, len(fields))
	}
}
