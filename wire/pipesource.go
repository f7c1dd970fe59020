package wire

import (
	"context"
	"errors"
	"io"
	"unicode/utf8"
)

// Producer supplies more bytes to a PipeSource on demand. Refill is called
// with the context passed to NewPipeSource and should block the calling
// goroutine until at least one more byte is available, the stream ends
// (io.EOF), or ctx is done. Go has no user-level coroutines, so this is the
// idiomatic translation of "cooperative suspension": the caller's goroutine
// parks in Refill exactly the way it would park in any blocking io.Reader.
type Producer interface {
	Refill(ctx context.Context) ([]byte, error)
}

// ProducerFunc adapts a plain function to Producer.
type ProducerFunc func(ctx context.Context) ([]byte, error)

func (f ProducerFunc) Refill(ctx context.Context) ([]byte, error) { return f(ctx) }

// PipeSource implements ByteSource over a growable buffer fed by a Producer,
// modeled on vanadium's decbuf: a single contiguous []byte with read/write
// cursors, compacted forward as bytes are consumed, refilled on demand
// instead of eagerly. Unlike decbuf's reader-relative limit, PipeSource
// tracks window boundaries as absolute stream offsets so a window recorded
// at one nesting depth stays valid after a deeper window is pushed and
// popped.
type PipeSource struct {
	ctx      context.Context
	producer Producer

	buf []byte
	nr  int // read cursor into buf
	nw  int // write cursor into buf

	base int64 // absolute stream offset of buf[0]

	windowEnd int64
	eof       bool // producer has signaled io.EOF; no more refills possible
}

// NewPipeSource constructs a PipeSource pulling from producer. ctx governs
// every Refill call for the lifetime of the source; a StreamDecoder built
// over this source inherits ctx's cancellation for every blocking read.
func NewPipeSource(ctx context.Context, producer Producer, initialBufSize int) *PipeSource {
	if initialBufSize <= 0 {
		initialBufSize = 4096
	}
	return &PipeSource{
		ctx:       ctx,
		producer:  producer,
		buf:       make([]byte, 0, initialBufSize),
		windowEnd: noWindow,
	}
}

func (p *PipeSource) available() int { return p.nw - p.nr }

func (p *PipeSource) limitRemaining() int64 {
	lim := p.windowEnd - (p.base + int64(p.nr))
	avail := int64(p.available())
	if lim < avail {
		if lim < 0 {
			return 0
		}
		return lim
	}
	return avail
}

// fillAtLeast blocks via Producer.Refill until at least min bytes are
// buffered (bounded by the current window), or returns ErrTruncated/ctx.Err.
func (p *PipeSource) fillAtLeast(min int) error {
	for {
		windowCap := p.windowEnd - (p.base + int64(p.nr))
		effectiveMin := min
		if windowCap >= 0 && windowCap < int64(effectiveMin) {
			effectiveMin = int(windowCap)
		}
		if p.available() >= effectiveMin {
			return nil
		}
		if p.eof {
			return ErrTruncated
		}
		if p.nr > 0 {
			copy(p.buf[:p.available()], p.buf[p.nr:p.nw])
			p.base += int64(p.nr)
			p.nw -= p.nr
			p.nr = 0
		}
		more, err := p.producer.Refill(p.ctx)
		if len(more) > 0 {
			p.buf = append(p.buf[:p.nw], more...)
			p.nw += len(more)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.eof = true
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return err
		}
		if len(more) == 0 {
			// Producer made no progress and reported no error; avoid spinning.
			p.eof = true
		}
	}
}

func (p *PipeSource) RemainingInCurrent() int {
	r := p.limitRemaining()
	if r < 0 {
		return 0
	}
	return int(r)
}

func (p *PipeSource) PeekVarint32() (uint32, int, error) {
	if err := p.fillAtLeast(5); err != nil && err != ErrTruncated {
		return 0, 0, err
	}
	avail := p.buf[p.nr:p.nw]
	if lim := p.limitRemaining(); int64(len(avail)) > lim {
		avail = avail[:lim]
	}
	v, n, err := DecodeU32FromBytes(avail)
	if err == ErrUnexpectedEOF {
		return 0, 0, nil
	}
	return v, n, err
}

func (p *PipeSource) PeekVarint64() (uint64, int, error) {
	if err := p.fillAtLeast(10); err != nil && err != ErrTruncated {
		return 0, 0, err
	}
	avail := p.buf[p.nr:p.nw]
	if lim := p.limitRemaining(); int64(len(avail)) > lim {
		avail = avail[:lim]
	}
	v, n, err := DecodeU64FromBytes(avail)
	if err == ErrUnexpectedEOF {
		return 0, 0, nil
	}
	return v, n, err
}

func (p *PipeSource) ReadVarint32() (uint32, error) {
	for {
		v, n, err := p.PeekVarint32()
		if err != nil {
			return 0, translateVarintErr(err)
		}
		if n > 0 {
			p.nr += n
			return v, nil
		}
		if p.RemainingInCurrent() >= 5 || p.eof {
			return 0, ErrTruncated
		}
		if err := p.fillAtLeast(p.available() + 1); err != nil {
			return 0, err
		}
	}
}

func (p *PipeSource) ReadVarint64() (uint64, error) {
	for {
		v, n, err := p.PeekVarint64()
		if err != nil {
			return 0, translateVarintErr(err)
		}
		if n > 0 {
			p.nr += n
			return v, nil
		}
		if p.RemainingInCurrent() >= 10 || p.eof {
			return 0, ErrTruncated
		}
		if err := p.fillAtLeast(p.available() + 1); err != nil {
			return 0, err
		}
	}
}

func (p *PipeSource) ReadFixed32LE() (uint32, error) {
	if err := p.fillAtLeast(4); err != nil {
		return 0, err
	}
	if p.limitRemaining() < 4 {
		return 0, ErrTruncated
	}
	b := p.buf[p.nr : p.nr+4]
	p.nr += 4
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (p *PipeSource) ReadFixed64LE() (uint64, error) {
	if err := p.fillAtLeast(8); err != nil {
		return 0, err
	}
	if p.limitRemaining() < 8 {
		return 0, ErrTruncated
	}
	b := p.buf[p.nr : p.nr+8]
	p.nr += 8
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56, nil
}

func (p *PipeSource) ReadInto(dst []byte) error {
	need := len(dst)
	filled := 0
	for filled < need {
		if err := p.fillAtLeast(need - filled); err != nil {
			return err
		}
		if p.limitRemaining() <= 0 {
			return ErrTruncated
		}
		n := p.available()
		if n > need-filled {
			n = need - filled
		}
		if int64(n) > p.limitRemaining() {
			n = int(p.limitRemaining())
		}
		copy(dst[filled:filled+n], p.buf[p.nr:p.nr+n])
		p.nr += n
		filled += n
	}
	return nil
}

func (p *PipeSource) ReadUTF8(n int) (string, error) {
	b := make([]byte, n)
	if err := p.ReadInto(b); err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrMalformedUTF8
	}
	return string(b), nil
}

func (p *PipeSource) Skip(n int) error {
	for n > 0 {
		if err := p.fillAtLeast(1); err != nil {
			return err
		}
		if p.limitRemaining() <= 0 {
			return ErrTruncated
		}
		step := p.available()
		if step > n {
			step = n
		}
		if int64(step) > p.limitRemaining() {
			step = int(p.limitRemaining())
		}
		p.nr += step
		n -= step
	}
	return nil
}

func (p *PipeSource) IsFullyConsumed() bool {
	if p.limitRemaining() > 0 {
		return false
	}
	if p.windowEnd != noWindow {
		return true
	}
	if p.available() > 0 {
		return false
	}
	if !p.eof {
		// No buffered bytes and no window: the only way to know whether the
		// stream truly ended here (vs. just not yet refilled) is to ask the
		// producer. A real I/O error surfaces later to the caller's next
		// read instead of here, since this method can't report one.
		_ = p.fillAtLeast(1)
	}
	return p.eof && p.available() == 0
}

func (p *PipeSource) ApplyWindow(endAbsolute int64) {
	p.windowEnd = endAbsolute
}

func (p *PipeSource) RemoveWindow() {
	p.windowEnd = noWindow
}

func (p *PipeSource) Position() int64 {
	return p.base + int64(p.nr)
}

func (p *PipeSource) WindowEnd() int64 {
	return p.windowEnd
}
