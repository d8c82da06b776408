package generator

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/hhhaiai/libpnet/pkg/parser"
)

// Field is one laid-out packet field together with its directive
// metadata. Length expressions are carried as target source strings.
type Field struct {
	Name          string
	Pos           lexer.Position
	Ty            Type
	PacketLength  string // byte-count expression, "" when absent
	StructLength  string // owning-struct byte-size expression
	IsPayload     bool
	ConstructWith []Primitive
}

// Packet is a fully extracted field layout plus its base name. One
// input struct produces one Packet; enums produce one per variant.
type Packet struct {
	BaseName string
	Fields   []*Field
}

func (p *Packet) packetName() string {
	return p.BaseName + "Packet"
}

func (p *Packet) packetNameMut() string {
	return "Mutable" + p.BaseName + "Packet"
}

func siblingNames(decls []*parser.FieldDecl, self string) []string {
	var names []string
	for _, d := range decls {
		if d.Name != self {
			names = append(names, d.Name)
		}
	}
	return names
}

// makePacket extracts and validates the directive metadata of a single
// record. Every problem found is reported; inspection continues across
// the remaining fields, and nil is returned if anything was reported.
func makePacket(r *Reporter, pos lexer.Position, name string, decls []*parser.FieldDecl) *Packet {
	before := len(r.Diags)
	var payloadPos *lexer.Position
	var fields []*Field

	for _, decl := range decls {
		isPayload := false
		packetLength := ""
		var constructWith []Primitive
		seen := map[string]bool{}

		for _, attr := range decl.Attrs {
			if seen[attr.Name] {
				r.errorf(InvalidDirective, attr.Pos, "cannot have two attributes with the same name")
				continue
			}
			seen[attr.Name] = true

			switch attr.Name {
			case "payload":
				if !attr.IsWord() {
					r.errorf(InvalidDirective, attr.Pos, "#[payload] does not take arguments")
					continue
				}
				if payloadPos != nil {
					r.errorf(LayoutError, decl.Pos, "packet may not have multiple payloads").
						note(*payloadPos, "first payload defined here")
					continue
				}
				isPayload = true
				p := decl.Pos
				payloadPos = &p
			case "length_fn":
				s, ok := attr.StringValue()
				if !ok {
					r.errorf(InvalidDirective, attr.Pos,
						`#[length_fn] should be used as #[length_fn = "name_of_function"]`)
					continue
				}
				packetLength = s + "(&self.to_immutable())"
			case "length":
				s, ok := attr.StringValue()
				if !ok {
					r.errorf(InvalidDirective, attr.Pos,
						`#[length] should be used as #[length = "field_name and/or arithmetic expression"]`)
					continue
				}
				if rewritten, ok := rewriteLengthExpr(r, attr.Pos, s, siblingNames(decls, decl.Name)); ok {
					packetLength = rewritten
				}
			case "construct_with":
				if attr.List == nil {
					r.errorf(InvalidDirective, attr.Pos,
						"#[construct_with] should be of the form #[construct_with(<types>)]")
					continue
				}
				if len(attr.List.Args) == 0 {
					r.errorf(InvalidDirective, attr.Pos, "#[construct_with] must have at least one argument")
					continue
				}
				for _, arg := range attr.List.Args {
					bits, endian, ok := parsePrimitive(arg.Name)
					if !ok {
						r.errorf(InvalidDirective, arg.Pos, "arguments to #[construct_with] must be primitives")
						continue
					}
					constructWith = append(constructWith, Primitive{Name: arg.Name, Bits: bits, Endian: endian})
				}
			default:
				r.errorf(InvalidDirective, attr.Pos, "unknown attribute: %s", attr.Name)
			}
		}

		ty, err := makeType(decl.Type.String())
		if err != nil {
			r.errorf(InvalidType, decl.Type.Pos, "%s", err)
			continue
		}

		structLength := ""
		switch ty.(type) {
		case Vector:
			structLength = fmt.Sprintf("_packet.%s.len()", decl.Name)
			if !seen["payload"] && !seen["length"] && !seen["length_fn"] {
				r.errorf(LayoutError, decl.Pos,
					`variable length field must have #[length = ""] or #[length_fn = ""] attribute`)
			}
		case Misc:
			if !seen["construct_with"] {
				r.errorf(InvalidDirective, decl.Pos, "non-primitive field types must specify #[construct_with]")
			}
		}

		fields = append(fields, &Field{
			Name:          decl.Name,
			Pos:           decl.Pos,
			Ty:            ty,
			PacketLength:  packetLength,
			StructLength:  structLength,
			IsPayload:     isPayload,
			ConstructWith: constructWith,
		})
	}

	if payloadPos == nil {
		r.errorf(LayoutError, pos, "#[packet]'s must contain a payload")
	}
	if len(r.Diags) > before {
		return nil
	}
	return &Packet{BaseName: name, Fields: fields}
}

// makePackets maps a #[packet] item to its packets: one for a struct,
// one per struct-shaped variant for an enum. Failed records yield
// diagnostics; the surviving packets are still returned.
func makePackets(r *Reporter, item *parser.Item) []*Packet {
	switch {
	case item.Struct != nil:
		if !item.Public {
			r.errorf(VisibilityError, item.Pos, "#[packet] structs must be public")
			return nil
		}
		if p := makePacket(r, item.Struct.Pos, item.Struct.Name, item.Struct.Fields); p != nil {
			return []*Packet{p}
		}
		return nil
	case item.Enum != nil:
		if !item.Public {
			r.errorf(VisibilityError, item.Pos, "#[packet] enums must be public")
			return nil
		}
		var packets []*Packet
		for _, v := range item.Enum.Variants {
			if v.Body == nil {
				r.errorf(UnsupportedInput, v.Pos, "#[packet] enum variants must be struct-like")
				continue
			}
			if p := makePacket(r, v.Pos, v.Name, v.Body.Fields); p != nil {
				packets = append(packets, p)
			}
		}
		return packets
	default:
		r.errorf(UnsupportedInput, item.Pos, "#[packet] may only be used with enums and structs")
		return nil
	}
}
