package protolite

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/gowire/protolite/wire"
)

// RawField is one decoded field from a streaming, schema-less walk: the
// field number, its wire type, and its value. Scalar holds a uint64 for
// varint and fixed64 fields, a uint32 for fixed32 fields, and the raw
// []byte payload for every length-delimited field; Nested additionally
// holds that payload's fields when it parses as a message. For a group,
// Scalar is nil and Nested holds the group's fields.
type RawField struct {
	Number   wire.FieldNumber
	WireType wire.WireType
	Scalar   interface{}
	Nested   []RawField
}

// DecodeStreamSync reads one length-prefixed message from r, decoding it
// with a StreamDecoder over a MemorySource (the whole frame is buffered
// first — this entry point trades streaming for the simplicity of reusing
// MemorySource's direct index math). It returns io.EOF once r is exhausted
// between frames.
func DecodeStreamSync(r io.Reader, style wire.PrefixStyle, opts wire.Options) ([]RawField, error) {
	br := bufio.NewReader(r)

	if style == wire.PrefixNone {
		buf, err := io.ReadAll(br)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, io.EOF
		}
		return walkRawFields(wire.NewStreamDecoderOverMemory(buf, opts))
	}

	length, err := readPrefixFromReader(br, style)
	if err != nil {
		return nil, err
	}
	if length == wire.NoMessage {
		return nil, io.EOF
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("protolite: reading %d-byte frame: %w", length, err)
	}

	dec := wire.NewStreamDecoderOverMemory(buf, opts)
	return walkRawFields(dec)
}

// readPrefixFromReader adapts ReadLengthPrefix (which wants a ByteSource)
// to a plain io.Reader by peeking the prefix bytes through a tiny
// single-use MemorySource fed from br.
func readPrefixFromReader(br *bufio.Reader, style wire.PrefixStyle) (int64, error) {
	switch style {
	case wire.PrefixNone:
		return wire.NoMessage, nil
	case wire.PrefixFixed32, wire.PrefixFixed32BigEndian:
		buf := make([]byte, 4)
		n, err := io.ReadFull(br, buf)
		if n == 0 && err == io.EOF {
			return wire.NoMessage, nil
		}
		if err != nil {
			return 0, wire.ErrTruncated
		}
		src := wire.NewMemorySource(buf)
		return wire.ReadLengthPrefix(src, style)
	default: // PrefixBase128
		peeked, err := br.Peek(1)
		if err != nil {
			if err == io.EOF {
				return wire.NoMessage, nil
			}
			return 0, err
		}
		_ = peeked
		// Varint-framed prefixes are self-delimiting but of unknown length
		// up front, so pull bytes one at a time into a growing buffer until
		// ReadLengthPrefix stops returning ErrTruncated.
		var raw []byte
		for {
			b, err := br.ReadByte()
			if err != nil {
				return 0, wire.ErrTruncated
			}
			raw = append(raw, b)
			src := wire.NewMemorySource(raw)
			length, err := wire.ReadLengthPrefix(src, style)
			if err == wire.ErrTruncated {
				continue
			}
			if err != nil {
				return 0, err
			}
			return length, nil
		}
	}
}

// DecodeStreamPipe decodes a single length-prefixed message read from a
// cooperative Producer, using PipeSource end to end so the caller never
// needs to buffer a whole frame — refills happen lazily as the decode walk
// consumes bytes. It builds a fresh PipeSource for this one call; a caller
// decoding many frames off the same connection should build the PipeSource
// itself and call DecodeFrameFromSource per frame instead, so buffered
// bytes carry over between frames.
func DecodeStreamPipe(ctx context.Context, producer wire.Producer, style wire.PrefixStyle, opts wire.Options) ([]RawField, error) {
	src := wire.NewPipeSource(ctx, producer, opts.PipeInitialBufSize)
	return DecodeFrameFromSource(src, style, opts)
}

// DecodeFrameFromSource reads one length-prefixed frame off an
// already-constructed ByteSource and decodes it, leaving src positioned
// just past the frame so a caller can call this again for the next frame
// on the same source (e.g. a long-lived PipeSource over one connection).
func DecodeFrameFromSource(src wire.ByteSource, style wire.PrefixStyle, opts wire.Options) ([]RawField, error) {
	length, err := wire.ReadLengthPrefix(src, style)
	if err != nil {
		return nil, err
	}
	if length == wire.NoMessage {
		return nil, io.EOF
	}

	frameOpts := opts
	if length >= 0 {
		frameOpts.InitialEndBoundary = src.Position() + length
	}
	dec := wire.NewStreamDecoderOverSource(src, frameOpts)
	fields, err := walkRawFields(dec)
	if err != nil {
		return nil, err
	}
	if length >= 0 {
		dec.RemoveWindow()
	}
	return fields, nil
}

// walkRawFields drains every field header at the decoder's current depth,
// decoding each field generically by wire type.
func walkRawFields(dec *wire.StreamDecoder) ([]RawField, error) {
	var out []RawField
	for {
		fieldNum, err := dec.ReadFieldHeader()
		if err != nil {
			if dec.IsFullyConsumed() {
				break
			}
			return out, err
		}
		if fieldNum == 0 {
			break
		}
		wt := dec.CurrentField().WireType
		rf := RawField{Number: fieldNum, WireType: wt}

		switch wt {
		case wire.WireVarint:
			v, err := dec.ReadU64()
			if err != nil {
				return out, err
			}
			rf.Scalar = v
		case wire.WireFixed32:
			v, err := dec.ReadU32()
			if err != nil {
				return out, err
			}
			rf.Scalar = v
		case wire.WireFixed64:
			v, err := dec.ReadU64()
			if err != nil {
				return out, err
			}
			rf.Scalar = v
		case wire.WireBytes:
			blob, nested, err := decodeLengthDelimited(dec)
			if err != nil {
				return out, err
			}
			rf.Scalar = blob
			rf.Nested = nested
		case wire.WireStartGroup:
			tok, err := dec.StartSubItem()
			if err != nil {
				return out, err
			}
			nested, err := walkRawFields(dec)
			if err != nil {
				return out, err
			}
			if err := dec.EndSubItem(tok); err != nil {
				return out, err
			}
			rf.Nested = nested
		default:
			if err := dec.SkipField(); err != nil {
				return out, err
			}
		}
		out = append(out, rf)
	}
	return out, nil
}

// decodeLengthDelimited reads a WireBytes field's raw payload, then tries to
// classify it as a nested message. A schema-less walk has no way to tell a
// submessage from a plain string or an opaque bytes payload up front, so
// rather than parsing the payload in place against the enclosing decoder's
// window (where a malformed parse would dispose the whole decode), it reads
// the bytes out first and attempts an independent, throwaway sub-decode:
// if every field in the payload parses cleanly and the sub-decode consumes
// it exactly, Nested is populated; otherwise the field is surfaced as opaque
// bytes only. Callers that need a firm answer should supply a TypeModel via
// Options.TypeModel and dispatch themselves instead of trusting this guess.
func decodeLengthDelimited(dec *wire.StreamDecoder) (blob []byte, nested []RawField, err error) {
	blob, err = dec.AppendBytes(nil)
	if err != nil {
		return nil, nil, err
	}
	nested, _ = tryWalkNestedMessage(blob)
	return blob, nested, nil
}

// tryWalkNestedMessage attempts to parse blob as a complete, self-contained
// message over a fresh decoder unrelated to the caller's. Reports ok==false
// (nested == nil) if any field fails to parse or leftover bytes remain —
// the signal that blob is better treated as an opaque string/bytes value.
func tryWalkNestedMessage(blob []byte) (nested []RawField, ok bool) {
	if len(blob) == 0 {
		return nil, false
	}
	sub := wire.NewStreamDecoderOverMemory(blob, wire.DefaultOptions())
	fields, err := walkRawFields(sub)
	if err != nil || !sub.IsFullyConsumed() {
		return nil, false
	}
	return fields, true
}
