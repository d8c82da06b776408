// Package generator compiles packet record declarations into zero-copy
// view and accessor source. It walks the parsed declaration AST, lays
// every field out bit-exactly, and pushes the generated items into a
// caller-supplied sink.
package generator

import (
	"github.com/hhhaiai/libpnet/pkg/parser"
)

// Sink receives generated source items in emission order.
type Sink interface {
	Push(item string)
}

// SliceSink collects generated items in memory.
type SliceSink []string

func (s *SliceSink) Push(item string) {
	*s = append(*s, item)
}

type genContext struct {
	sink Sink
	r    *Reporter
}

func (cx *genContext) push(item string) {
	cx.sink.Push(item)
}

// Generate compiles every #[packet] item in file, pushing the generated
// source items into sink, and returns the diagnostics reported. A record
// that fails validation suppresses its own emission but not that of
// later records in the same file.
func Generate(file *parser.File, sink Sink) []*Diagnostic {
	r := &Reporter{}
	cx := &genContext{sink: sink, r: r}
	for _, item := range file.Items {
		if !item.HasAttr("packet") {
			continue
		}
		for _, packet := range makePackets(r, item) {
			generatePacket(cx, packet)
		}
	}
	return r.Diags
}

func generatePacket(cx *genContext, packet *Packet) {
	generatePacketStructs(cx, packet)
	bounds, size, ok := generatePacketImpls(cx, packet)
	if !ok {
		return
	}
	generatePacketSizeImpls(cx, packet, size)
	generatePacketTraitImpls(cx, packet, bounds)
	generateIterables(cx, packet)
	generateConverters(cx, packet)
	generateDebugImpls(cx, packet)
}
