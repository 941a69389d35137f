package xmlenc

// Pipeline is an ordered, owned sequence of BinaryTransform handles. It
// replaces the intrusive next/prev-pointer chain the original xmlsec engine
// threads through transform objects: rewiring during CipherReference
// handling (moving transforms from one chain to another) is just moving
// elements between two slices.
//
// Every concrete transform in this module buffers its input internally and
// produces output only once Flush is called; Pipeline's job is purely to
// cascade each transform's flushed output into the next transform's input,
// in either a push (Write/Flush, driven from the head) or pull
// (PumpFromHead, driven by reading the head) direction.
type Pipeline struct {
	transforms []BinaryTransform
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Len reports how many transforms are currently chained.
func (p *Pipeline) Len() int { return len(p.transforms) }

// Head returns the first transform, or nil if the pipeline is empty.
func (p *Pipeline) Head() BinaryTransform {
	if len(p.transforms) == 0 {
		return nil
	}
	return p.transforms[0]
}

// Tail returns the last transform, or nil if the pipeline is empty.
func (p *Pipeline) Tail() BinaryTransform {
	if len(p.transforms) == 0 {
		return nil
	}
	return p.transforms[len(p.transforms)-1]
}

// Append links t after the current tail (or makes it the sole element of an
// empty pipeline).
func (p *Pipeline) Append(t BinaryTransform) error {
	if t == nil {
		return invalidTransform("", nil)
	}
	p.transforms = append(p.transforms, t)
	return nil
}

// Prepend links t before the current head (or makes it the sole element of
// an empty pipeline).
func (p *Pipeline) Prepend(t BinaryTransform) error {
	if t == nil {
		return invalidTransform("", nil)
	}
	p.transforms = append([]BinaryTransform{t}, p.transforms...)
	return nil
}

// Write pushes bytes into the head transform's input buffer. Nothing
// cascades to later transforms until Flush, matching every concrete
// transform's buffer-then-produce-on-flush behavior.
func (p *Pipeline) Write(b []byte) error {
	if len(p.transforms) == 0 {
		return nil
	}
	if _, err := p.Head().Write(b); err != nil {
		return transformFailure("write", err)
	}
	return nil
}

// Flush drives the end-of-stream barrier through the whole chain in order:
// flush a transform, drain whatever it produced, feed that into the next
// transform, and repeat. After Flush returns, Tail().Read (or ReadAll)
// yields the pipeline's final output.
func (p *Pipeline) Flush() error {
	return flushChain(p.transforms)
}

func flushChain(chain []BinaryTransform) error {
	for i, t := range chain {
		if err := t.Flush(); err != nil {
			return transformFailure("flush", err)
		}
		if i == len(chain)-1 {
			continue
		}
		out, err := drainAll(t)
		if err != nil {
			return err
		}
		if len(out) > 0 {
			if _, err := chain[i+1].Write(out); err != nil {
				return transformFailure("write", err)
			}
		}
	}
	return nil
}

// Read pulls drained output from the tail transform. Loop until it returns
// (0, nil) to know the chain is exhausted, per the pipeline's EOF contract.
func (p *Pipeline) Read(buf []byte) (int, error) {
	if len(p.transforms) == 0 {
		return 0, nil
	}
	n, err := p.Tail().Read(buf)
	if err != nil {
		return 0, transformFailure("read", err)
	}
	return n, nil
}

// ReadAll drains the tail transform to EOF and returns the accumulated
// bytes.
func (p *Pipeline) ReadAll() ([]byte, error) {
	if len(p.transforms) == 0 {
		return nil, nil
	}
	return drainAll(p.Tail())
}

// PumpFromHead drives the pull-based direction used by URI-mode encrypt: the
// head transform is a source (InputUri), not a writer. Bytes are pulled from
// the head in chunkSize increments until it signals EOF with (0, nil), fed
// into the rest of the chain, then the rest of the chain is flushed. No
// explicit flush is issued to the head itself beyond a courtesy call — the
// source transform's own Read-to-EOF is the contract, matching the source
// engine's InputUri handling, which issues no flush and relies on the
// stream being drained.
func (p *Pipeline) PumpFromHead(chunkSize int) error {
	if len(p.transforms) == 0 {
		return nil
	}
	head := p.Head()
	rest := p.transforms[1:]
	scratch := make([]byte, chunkSize)
	for {
		n, err := head.Read(scratch)
		if err != nil {
			return transformFailure("read", err)
		}
		if n == 0 {
			break
		}
		if len(rest) > 0 {
			if _, err := rest[0].Write(scratch[:n]); err != nil {
				return transformFailure("write", err)
			}
		}
	}
	_ = head.Flush()
	return flushChain(rest)
}

// Transplant moves every transform from p's head to dst's tail, one at a
// time, front to back, leaving p empty. This models the CipherReference
// decrypt path, where the cipher/base64 chain built for CipherData is
// handed off to the pipeline reading the externally referenced ciphertext.
func (p *Pipeline) Transplant(dst *Pipeline) {
	for len(p.transforms) > 0 {
		t := p.transforms[0]
		p.transforms = p.transforms[1:]
		dst.transforms = append(dst.transforms, t)
	}
}

// Destroy tears down every transform in the chain. Tolerates a pipeline
// built via only Append or only Prepend, or one that is already empty.
func (p *Pipeline) Destroy() {
	for _, t := range p.transforms {
		t.Destroy()
	}
	p.transforms = nil
}

// drainAll reads everything currently produced by t.
func drainAll(t BinaryTransform) ([]byte, error) {
	var out []byte
	scratch := make([]byte, 4096)
	for {
		n, err := t.Read(scratch)
		if err != nil {
			return nil, transformFailure("read", err)
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, scratch[:n]...)
	}
}
