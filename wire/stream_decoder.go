package wire

import (
	"context"
	"math"
)

// Options configures a StreamDecoder. The zero value is usable but prefer
// DefaultOptions() as a starting point: the zero value disables interning
// and sets the initial end boundary to 0, which is only useful for decoding
// an already-terminated (empty) stream.
type Options struct {
	// InternStrings enables the identity-preserving string cache for every
	// non-empty string ReadString decodes.
	InternStrings bool
	// InitialEndBoundary bounds the decoder's visible stream from the
	// start; leave at DefaultOptions()'s noWindow sentinel for "read to
	// EOF". Set it when the caller has already framed off a sub-range
	// (e.g. after consuming a stream-level length prefix).
	InitialEndBoundary int64
	// TypeModel is an opaque handle to the external type-model collaborator
	// (field-number-to-struct-field mapping). The StreamDecoder never
	// interprets it; it is surfaced to callers via TypeModel() so a
	// schema-aware layer built on top can dispatch sub-message reads.
	TypeModel interface{}
	// SerializationContext is opaque, forwarded to sub-message handlers by
	// the caller; never read by the StreamDecoder itself.
	SerializationContext interface{}
	// PipeInitialBufSize sizes a PipeSource's initial buffer. Ignored for
	// memory decoding.
	PipeInitialBufSize int
}

// DefaultOptions returns the spec-default configuration: interning on, no
// initial boundary.
func DefaultOptions() Options {
	return Options{InternStrings: true, InitialEndBoundary: noWindow}
}

// StreamDecoder is the public wire-level streaming decoder: field-header
// iteration, typed scalar/string/bytes reads with wire-type coercion, and
// sub-message entry/exit, driven over either a MemorySource or a
// PipeSource. A single instance is not safe for concurrent use, and once
// any operation returns a *DecodeError the instance is disposed — every
// subsequent call returns ErrDisposed.
type StreamDecoder struct {
	src   ByteSource
	state *decoderState
	end   int64

	interner             *StringInterner
	typeModel            interface{}
	serializationContext interface{}
}

// NewStreamDecoderOverMemory builds a StreamDecoder over an in-memory byte
// slice — the synchronous decode surface.
func NewStreamDecoderOverMemory(buf []byte, opts Options) *StreamDecoder {
	return newStreamDecoder(NewMemorySource(buf), opts)
}

// NewStreamDecoderOverPipe builds a StreamDecoder pulling from producer —
// the cooperative-suspension decode surface. ctx governs every blocking
// refill for the decoder's lifetime.
func NewStreamDecoderOverPipe(ctx context.Context, producer Producer, opts Options) *StreamDecoder {
	return newStreamDecoder(NewPipeSource(ctx, producer, opts.PipeInitialBufSize), opts)
}

// NewStreamDecoderOverSource builds a StreamDecoder over a caller-supplied
// ByteSource, for callers that need to frame off a window (e.g. after
// consuming a stream-level length prefix with ReadLengthPrefix) before the
// decoder applies its own InitialEndBoundary.
func NewStreamDecoderOverSource(src ByteSource, opts Options) *StreamDecoder {
	return newStreamDecoder(src, opts)
}

func newStreamDecoder(src ByteSource, opts Options) *StreamDecoder {
	end := opts.InitialEndBoundary
	src.ApplyWindow(end)

	var interner *StringInterner
	if opts.InternStrings {
		interner = NewStringInterner()
	}

	return &StreamDecoder{
		src:                  src,
		state:                newDecoderState(),
		end:                  end,
		interner:             interner,
		typeModel:            opts.TypeModel,
		serializationContext: opts.SerializationContext,
	}
}

// Depth reports the current sub-message nesting depth.
func (d *StreamDecoder) Depth() int { return d.state.depth }

// Position reports the current absolute stream offset.
func (d *StreamDecoder) Position() int64 { return d.src.Position() }

// CurrentField reports the field header currently pending consumption. Its
// WireType is WireNone if no header has been read, or the last one read has
// already been consumed by a typed read or SkipField.
func (d *StreamDecoder) CurrentField() FieldHeader { return d.state.current }

// TypeModel returns the opaque type-model handle supplied at construction,
// or ErrNoTypeModel if none was provided.
func (d *StreamDecoder) TypeModel() (interface{}, error) {
	if d.typeModel == nil {
		return nil, d.fail(ErrNoTypeModel)
	}
	return d.typeModel, nil
}

// SerializationContext returns the opaque context handle supplied at
// construction, which may be nil.
func (d *StreamDecoder) SerializationContext() interface{} { return d.serializationContext }

// IsFullyConsumed reports whether the current window (or the whole stream,
// at depth 0) has no more bytes left.
func (d *StreamDecoder) IsFullyConsumed() bool { return d.src.IsFullyConsumed() }

// ApplyWindow narrows the decoder's visible end boundary to endAbsolute, for
// a caller that has already consumed a stream-level framing prefix (see
// ReadLengthPrefix) and knows exactly where the message body ends. Only
// valid at depth 0, before any field header has been read.
func (d *StreamDecoder) ApplyWindow(endAbsolute int64) error {
	if err := d.state.checkAlive(); err != nil {
		return err
	}
	d.end = endAbsolute
	d.src.ApplyWindow(endAbsolute)
	return nil
}

// RemoveWindow restores the decoder's visible end boundary to unbounded,
// undoing a prior ApplyWindow.
func (d *StreamDecoder) RemoveWindow() {
	d.end = noWindow
	d.src.RemoveWindow()
}

func (d *StreamDecoder) fail(kind error) error {
	de := &DecodeError{
		Kind:        kind,
		FieldNumber: d.state.current.FieldNumber,
		WireType:    d.state.current.WireType,
		Offset:      d.src.Position(),
		Depth:       d.state.depth,
	}
	d.state.dispose(de)
	return de
}

func (d *StreamDecoder) wrapSourceErr(err error) error {
	if err == nil {
		return nil
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return d.fail(ErrDisposed)
	}
	return d.fail(err)
}

// ReadFieldHeader reads the next field tag. Returns 0 when the current
// window (or, with no window, the stream) is exhausted, or when the decoder
// is sitting on a retained EndGroup marker awaiting EndSubItem.
func (d *StreamDecoder) ReadFieldHeader() (FieldNumber, error) {
	if err := d.state.checkAlive(); err != nil {
		return 0, err
	}

	if d.src.Position() >= d.end || d.state.current.WireType == WireEndGroup || d.src.IsFullyConsumed() {
		if d.state.current.WireType != WireEndGroup {
			d.state.clearHeader()
		}
		return 0, nil
	}

	tag, err := d.src.ReadVarint64()
	if err != nil {
		return 0, d.wrapSourceErr(err)
	}
	if tag == 0 {
		d.state.clearHeader()
		return 0, nil
	}

	fn, wt := ParseTag(Tag(tag))
	if fn < 1 || fn > MaxFieldNumber {
		return 0, d.fail(ErrInvalidField)
	}
	d.state.setHeader(FieldHeader{FieldNumber: fn, WireType: wt})

	if wt == WireEndGroup {
		if d.state.depth > 0 {
			return 0, nil
		}
		return 0, d.fail(ErrUnexpectedEndGroup)
	}
	return fn, nil
}

// TryReadFieldHeader peeks the next tag; if its field number matches
// expected and its wire type isn't EndGroup, it commits (equivalent to
// ReadFieldHeader) and returns true. Otherwise state is left unchanged.
func (d *StreamDecoder) TryReadFieldHeader(expected FieldNumber) (bool, error) {
	if err := d.state.checkAlive(); err != nil {
		return false, err
	}
	if d.src.Position() >= d.end {
		return false, nil
	}

	v, n, err := d.src.PeekVarint64()
	if err != nil {
		return false, d.wrapSourceErr(translateVarintErr(err))
	}
	if n == 0 {
		return false, nil
	}

	fn, wt := ParseTag(Tag(v))
	if fn != expected || wt == WireEndGroup {
		return false, nil
	}

	if err := d.src.Skip(n); err != nil {
		return false, d.wrapSourceErr(err)
	}
	d.state.setHeader(FieldHeader{FieldNumber: fn, WireType: wt})
	return true, nil
}

// readWireValue consumes the current field's payload as a raw 64-bit value
// per the wire type's native width, reporting whether a zig-zag-hinted
// signed decode should be applied by the caller.
func (d *StreamDecoder) readWireValue() (raw uint64, width int, signedHint bool, err error) {
	if err = d.state.checkAlive(); err != nil {
		return
	}
	switch d.state.current.WireType {
	case WireVarint:
		raw, err = d.src.ReadVarint64()
		width = 64
	case WireSignedVariant:
		raw, err = d.src.ReadVarint64()
		width = 64
		signedHint = true
	case WireFixed32:
		var v uint32
		v, err = d.src.ReadFixed32LE()
		raw = uint64(v)
		width = 32
	case WireFixed64:
		raw, err = d.src.ReadFixed64LE()
		width = 64
	default:
		err = ErrWireTypeMismatch
	}
	if err != nil {
		if err == ErrWireTypeMismatch {
			err = d.fail(ErrWireTypeMismatch)
		} else {
			err = d.wrapSourceErr(err)
		}
	}
	return
}

// ReadI32 decodes the current field as a signed 32-bit integer, applying
// zig-zag decoding when the wire type has been hinted/asserted to
// SignedVariant, and checked narrowing when the source is Fixed64.
func (d *StreamDecoder) ReadI32() (int32, error) {
	raw, width, signedHint, err := d.readWireValue()
	if err != nil {
		return 0, err
	}
	if signedHint {
		zz := ZigZagDecode64(raw)
		if zz < math.MinInt32 || zz > math.MaxInt32 {
			return 0, d.fail(ErrOverflow)
		}
		d.state.clearHeader()
		return int32(zz), nil
	}
	if width == 32 {
		d.state.clearHeader()
		return int32(uint32(raw)), nil
	}
	sv := int64(raw)
	if sv < math.MinInt32 || sv > math.MaxInt32 {
		return 0, d.fail(ErrOverflow)
	}
	d.state.clearHeader()
	return int32(sv), nil
}

// ReadI64 decodes the current field as a signed 64-bit integer.
func (d *StreamDecoder) ReadI64() (int64, error) {
	raw, width, signedHint, err := d.readWireValue()
	if err != nil {
		return 0, err
	}
	if signedHint {
		d.state.clearHeader()
		return ZigZagDecode64(raw), nil
	}
	if width == 32 {
		d.state.clearHeader()
		return int64(int32(uint32(raw))), nil
	}
	d.state.clearHeader()
	return int64(raw), nil
}

// ReadU32 decodes the current field as an unsigned 32-bit integer.
func (d *StreamDecoder) ReadU32() (uint32, error) {
	raw, _, _, err := d.readWireValue()
	if err != nil {
		return 0, err
	}
	if raw > math.MaxUint32 {
		return 0, d.fail(ErrOverflow)
	}
	d.state.clearHeader()
	return uint32(raw), nil
}

// ReadU64 decodes the current field as an unsigned 64-bit integer.
func (d *StreamDecoder) ReadU64() (uint64, error) {
	raw, _, _, err := d.readWireValue()
	if err != nil {
		return 0, err
	}
	d.state.clearHeader()
	return raw, nil
}

// ReadI8/ReadU8/ReadI16/ReadU16 are checked narrowings of the 32-bit reads,
// for languages' narrower integral field types.

func (d *StreamDecoder) ReadI8() (int8, error) {
	v, err := d.ReadI32()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt8 || v > math.MaxInt8 {
		return 0, d.fail(ErrOverflow)
	}
	return int8(v), nil
}

func (d *StreamDecoder) ReadU8() (uint8, error) {
	v, err := d.ReadU32()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint8 {
		return 0, d.fail(ErrOverflow)
	}
	return uint8(v), nil
}

func (d *StreamDecoder) ReadI16() (int16, error) {
	v, err := d.ReadI32()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt16 || v > math.MaxInt16 {
		return 0, d.fail(ErrOverflow)
	}
	return int16(v), nil
}

func (d *StreamDecoder) ReadU16() (uint16, error) {
	v, err := d.ReadU32()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, d.fail(ErrOverflow)
	}
	return uint16(v), nil
}

// ReadBool decodes the current field as u32, accepting only 0 and 1.
func (d *StreamDecoder) ReadBool() (bool, error) {
	raw, _, _, err := d.readWireValue()
	if err != nil {
		return false, err
	}
	switch raw {
	case 0:
		d.state.clearHeader()
		return false, nil
	case 1:
		d.state.clearHeader()
		return true, nil
	default:
		return false, d.fail(ErrInvalidBoolean)
	}
}

// ReadF32 decodes the current field as a 32-bit float: a Fixed32 bit-casts
// directly, a Fixed64 bit-casts to float64 then narrows, failing Overflow
// if a finite source value becomes infinite.
func (d *StreamDecoder) ReadF32() (float32, error) {
	if err := d.state.checkAlive(); err != nil {
		return 0, err
	}
	switch d.state.current.WireType {
	case WireFixed32:
		bits, err := d.src.ReadFixed32LE()
		if err != nil {
			return 0, d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return math.Float32frombits(bits), nil
	case WireFixed64:
		bits, err := d.src.ReadFixed64LE()
		if err != nil {
			return 0, d.wrapSourceErr(err)
		}
		f64 := math.Float64frombits(bits)
		f32 := float32(f64)
		if math.IsInf(float64(f32), 0) && !math.IsInf(f64, 0) {
			return 0, d.fail(ErrOverflow)
		}
		d.state.clearHeader()
		return f32, nil
	default:
		return 0, d.fail(ErrWireTypeMismatch)
	}
}

// ReadF64 decodes the current field as a 64-bit float: a Fixed32 bit-casts
// to float32 then widens, a Fixed64 bit-casts directly.
func (d *StreamDecoder) ReadF64() (float64, error) {
	if err := d.state.checkAlive(); err != nil {
		return 0, err
	}
	switch d.state.current.WireType {
	case WireFixed32:
		bits, err := d.src.ReadFixed32LE()
		if err != nil {
			return 0, d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return float64(math.Float32frombits(bits)), nil
	case WireFixed64:
		bits, err := d.src.ReadFixed64LE()
		if err != nil {
			return 0, d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return math.Float64frombits(bits), nil
	default:
		return 0, d.fail(ErrWireTypeMismatch)
	}
}

// ReadString requires WireBytes: reads a length varint then that many bytes
// as UTF-8, optionally passing the result through the string interner.
func (d *StreamDecoder) ReadString() (string, error) {
	if err := d.state.checkAlive(); err != nil {
		return "", err
	}
	if d.state.current.WireType != WireBytes {
		return "", d.fail(ErrWireTypeMismatch)
	}
	n, err := d.src.ReadVarint64()
	if err != nil {
		return "", d.wrapSourceErr(err)
	}
	if n == 0 {
		d.state.clearHeader()
		return "", nil
	}
	if n > uint64(math.MaxInt32) {
		return "", d.fail(ErrOverflow)
	}
	s, err := d.src.ReadUTF8(int(n))
	if err != nil {
		return "", d.wrapSourceErr(err)
	}
	d.state.clearHeader()
	if d.interner != nil {
		return d.interner.Intern(s), nil
	}
	return s, nil
}

// AppendBytes requires WireBytes: reads a length varint and concatenates
// that many bytes onto existing (allocating fresh if existing is empty).
// Quirk, preserved from the legacy schema-aware decoder: if invoked while
// the current wire type is Varint, it returns an empty blob without
// consuming any input.
func (d *StreamDecoder) AppendBytes(existing []byte) ([]byte, error) {
	if err := d.state.checkAlive(); err != nil {
		return nil, err
	}
	if d.state.current.WireType == WireVarint || d.state.current.WireType == WireSignedVariant {
		return []byte{}, nil
	}
	if d.state.current.WireType != WireBytes {
		return nil, d.fail(ErrWireTypeMismatch)
	}
	n, err := d.src.ReadVarint64()
	if err != nil {
		return nil, d.wrapSourceErr(err)
	}
	if n > uint64(math.MaxInt32) {
		return nil, d.fail(ErrOverflow)
	}
	buf := make([]byte, n)
	if err := d.src.ReadInto(buf); err != nil {
		return nil, d.wrapSourceErr(err)
	}
	d.state.clearHeader()
	if len(existing) == 0 {
		return buf, nil
	}
	out := make([]byte, 0, len(existing)+len(buf))
	out = append(out, existing...)
	out = append(out, buf...)
	return out, nil
}

// SkipField discards the current field's payload according to its wire
// type, including recursive skipping of an entire group.
func (d *StreamDecoder) SkipField() error {
	if err := d.state.checkAlive(); err != nil {
		return err
	}
	switch d.state.current.WireType {
	case WireFixed32:
		if err := d.src.Skip(4); err != nil {
			return d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return nil
	case WireFixed64:
		if err := d.src.Skip(8); err != nil {
			return d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return nil
	case WireBytes:
		n, err := d.src.ReadVarint64()
		if err != nil {
			return d.wrapSourceErr(err)
		}
		if n > uint64(math.MaxInt32) {
			return d.fail(ErrOverflow)
		}
		if err := d.src.Skip(int(n)); err != nil {
			return d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return nil
	case WireVarint, WireSignedVariant:
		if _, err := d.src.ReadVarint64(); err != nil {
			return d.wrapSourceErr(err)
		}
		d.state.clearHeader()
		return nil
	case WireStartGroup:
		groupField := d.state.current.FieldNumber
		d.state.depth++
		d.state.clearHeader()
		for {
			fn, err := d.ReadFieldHeader()
			if err != nil {
				return err
			}
			if fn == 0 {
				if d.state.current.WireType == WireEndGroup {
					if d.state.current.FieldNumber != groupField {
						return d.fail(ErrGroupMismatch)
					}
					d.state.clearHeader()
					d.state.depth--
					return nil
				}
				return d.fail(ErrIncompleteSubMessage)
			}
			if err := d.SkipField(); err != nil {
				return err
			}
		}
	default:
		return d.fail(ErrWireTypeMismatch)
	}
}

// StartSubItem enters a length-delimited sub-message or a group, returning
// an opaque token that must be passed to EndSubItem.
func (d *StreamDecoder) StartSubItem() (SubObjectToken, error) {
	if err := d.state.checkAlive(); err != nil {
		return SubObjectToken{}, err
	}
	switch d.state.current.WireType {
	case WireBytes:
		n, err := d.src.ReadVarint64()
		if err != nil {
			return SubObjectToken{}, d.wrapSourceErr(err)
		}
		pos := d.src.Position()
		if n > uint64(math.MaxInt64-pos) {
			return SubObjectToken{}, d.fail(ErrOverflow)
		}
		newEnd := pos + int64(n)
		if newEnd > d.end {
			return SubObjectToken{}, d.fail(ErrOverranSubMessage)
		}
		token := SubObjectToken{prevEnd: d.end, newEnd: newEnd}
		d.end = newEnd
		d.src.ApplyWindow(newEnd)
		d.state.depth++
		d.state.clearHeader()
		return token, nil
	case WireStartGroup:
		token := SubObjectToken{prevEnd: d.end, isGroup: true, groupField: d.state.current.FieldNumber}
		d.state.depth++
		d.state.clearHeader()
		return token, nil
	default:
		return SubObjectToken{}, d.fail(ErrWireTypeMismatch)
	}
}

// EndSubItem closes a sub-message or group previously opened by
// StartSubItem, validating that exactly its declared span was consumed (for
// length-delimited) or that the retained EndGroup matches (for groups).
func (d *StreamDecoder) EndSubItem(token SubObjectToken) error {
	if err := d.state.checkAlive(); err != nil {
		return err
	}
	if token.isGroup {
		if d.state.current.WireType != WireEndGroup {
			return d.fail(ErrIncompleteSubMessage)
		}
		if d.state.current.FieldNumber != token.groupField {
			return d.fail(ErrGroupMismatch)
		}
		d.state.clearHeader()
		d.state.depth--
		return nil
	}

	pos := d.src.Position()
	switch {
	case pos < token.newEnd:
		return d.fail(ErrIncompleteSubMessage)
	case pos > token.newEnd:
		return d.fail(ErrOverranSubMessage)
	}
	d.end = token.prevEnd
	d.src.ApplyWindow(token.prevEnd)
	d.state.depth--
	return nil
}

// Hint upgrades the current wire type to w if w's low 3 bits match the
// current wire type; silent no-op on mismatch.
func (d *StreamDecoder) Hint(w WireType) {
	if int32(w)&7 == int32(d.state.current.WireType) {
		d.state.current.WireType = w
	}
}

// Assert upgrades the current wire type to w, failing WireTypeMismatch if
// w's low 3 bits don't match the current wire type.
func (d *StreamDecoder) Assert(w WireType) error {
	if int32(w)&7 != int32(d.state.current.WireType) {
		return d.fail(ErrWireTypeMismatch)
	}
	d.state.current.WireType = w
	return nil
}
