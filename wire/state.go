package wire

// decoderState tracks the small state machine StreamDecoder drives between
// ReadFieldHeader calls: whether a header is currently pending consumption,
// what it was, and the nesting depth. Once disposed is set, every operation
// fails with ErrDisposed regardless of what caused it — a decoder that hit
// any DecodeError is not safe to keep using.
type decoderState struct {
	depth       int
	current     FieldHeader
	haveHeader  bool
	disposed    bool
	disposalErr error
}

func newDecoderState() *decoderState {
	return &decoderState{current: FieldHeader{WireType: WireNone}}
}

func (s *decoderState) dispose(err error) error {
	if !s.disposed {
		s.disposed = true
		s.disposalErr = err
	}
	return err
}

func (s *decoderState) checkAlive() error {
	if s.disposed {
		return ErrDisposed
	}
	return nil
}

func (s *decoderState) setHeader(h FieldHeader) {
	s.current = h
	s.haveHeader = true
}

func (s *decoderState) clearHeader() {
	s.haveHeader = false
	s.current = FieldHeader{WireType: WireNone}
}
