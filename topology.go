package stagez

import (
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Endpoint describes a declared input or output.
type Endpoint struct {
	Name      Name   `json:"name" msgpack:"name"`
	Type      string `json:"type" msgpack:"type"`
	Index     int    `json:"index,omitempty" msgpack:"index,omitempty"`
	Connected bool   `json:"connected,omitempty" msgpack:"connected,omitempty"`
}

// Topology is a point-in-time description of a pipeline's wiring: inputs in
// registration order, enabled stages in resolution order and outputs in
// fan-out order. It is meant for diagnostics and tests, not control flow.
type Topology struct {
	Name    Name        `json:"name" msgpack:"name"`
	Type    string      `json:"type" msgpack:"type"`
	Inputs  []Endpoint  `json:"inputs" msgpack:"inputs"`
	Stages  []StageInfo `json:"stages" msgpack:"stages"`
	Outputs []Endpoint  `json:"outputs" msgpack:"outputs"`
}

// String renders the topology on one line:
//
//	simple-pipeline: {SimpleInput} → Insert(My):0 → ToUpper:1 → Append(Friends):2 → {SimpleOutput}
func (t Topology) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString(": ")
	writeEndpoints(&b, t.Inputs)
	for _, s := range t.Stages {
		b.WriteString(" → ")
		b.WriteString(s.Name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(s.Priority))
	}
	b.WriteString(" → ")
	writeEndpoints(&b, t.Outputs)
	return b.String()
}

func writeEndpoints(b *strings.Builder, endpoints []Endpoint) {
	b.WriteByte('{')
	for i, e := range endpoints {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Name)
	}
	b.WriteByte('}')
}

// Encode serializes the topology using msgpack.
func (t Topology) Encode() ([]byte, error) {
	return msgpack.Marshal(t)
}

// DecodeTopology deserializes a topology produced by Encode.
func DecodeTopology(data []byte) (Topology, error) {
	var t Topology
	err := msgpack.Unmarshal(data, &t)
	return t, err
}

// Topology describes the pipeline's current wiring. Disabled stages are
// omitted because they do not take part in the resolved chain.
func (p *Pipeline[T]) Topology() Topology {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := Topology{
		Name:    p.name,
		Type:    p.declared.String(),
		Inputs:  make([]Endpoint, 0, len(p.head.inputs)),
		Stages:  make([]StageInfo, 0, len(p.stages.stages)),
		Outputs: make([]Endpoint, 0, len(p.tail.outputs)),
	}
	for _, in := range p.head.inputs {
		t.Inputs = append(t.Inputs, Endpoint{Name: in.name, Type: in.token.String()})
	}
	for _, s := range p.stages.stages {
		if s.enabled {
			t.Stages = append(t.Stages, s.info())
		}
	}
	for _, out := range p.tail.outputs {
		t.Outputs = append(t.Outputs, Endpoint{
			Name:      out.name,
			Type:      out.token.String(),
			Index:     out.index,
			Connected: out.connected(),
		})
	}
	return t
}

// DescribeTopology renders the pipeline's wiring as
// "<name>: {<inputs>} → <stage>:<priority> → … → {<outputs>}".
func (p *Pipeline[T]) DescribeTopology() string {
	return p.Topology().String()
}

// String implements fmt.Stringer.
func (p *Pipeline[T]) String() string {
	return p.DescribeTopology()
}
