package generator

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Lower and upper bounds of a payload, carried as source expressions
// since they may involve length functions. An empty upper bound means
// the payload runs to the end of the buffer.
type payloadBounds struct {
	lower string
	upper string
}

//
// Per-packet impl skeleton
//

const implTemplateText = `impl<'a> {{.Name}}<'a> {
    /// Constructs a new {{.Name}}. If the provided buffer is less than the minimum required
    /// packet size, this will return None.
    #[inline]
    pub fn new<'p>(packet: &'p{{.Mut}} [u8]) -> Option<{{.Name}}<'p>> {
        if packet.len() >= {{.Name}}::minimum_packet_size() {
            Some({{.Name}} { packet: packet })
        } else {
            None
        }
    }

    /// Maps from a {{.Name}} to a {{.ImmName}}
    #[inline]
    pub fn to_immutable<'p>(&'p self) -> {{.ImmName}}<'p> {
        match *self {
            {{.Name}} { ref packet } => {{.ImmName}} { packet: packet }
        }
    }

    /// The minimum size (in bytes) a packet of this type can be. It's based on the total size
    /// of the fixed-size fields.
    #[inline]
    pub fn minimum_packet_size() -> usize {
        {{.ByteSize}}
    }

    /// The size (in bytes) of a {{.BaseName}} instance when converted into
    /// a byte-array
    #[inline]
    pub fn packet_size(_packet: &{{.BaseName}}) -> usize {
        {{.StructSize}}
    }
{{.Populate}}{{.Accessors}}{{.Mutators}}}`

var implTemplate = template.Must(template.New("impl").Parse(implTemplateText))

type implModel struct {
	Name       string
	ImmName    string
	BaseName   string
	Mut        string
	ByteSize   int
	StructSize string
	Populate   string
	Accessors  string
	Mutators   string
}

func generatePacketStructs(cx *genContext, packet *Packet) {
	for _, v := range []struct {
		name string
		mut  string
	}{
		{packet.packetName(), ""},
		{packet.packetNameMut(), " mut"},
	} {
		cx.push(fmt.Sprintf(`#[derive(PartialEq)]
/// A structure enabling manipulation of on the wire packets
pub struct %s<'p> {
    packet: &'p%s [u8],
}`, v.name, v.mut))
	}
}

// generatePacketImpls emits the method impl for both views. The
// immutable pass performs all layout validation; the mutable pass only
// runs once the layout is known good, so diagnostics appear once.
func generatePacketImpls(cx *genContext, packet *Packet) (payloadBounds, string, bool) {
	var bounds payloadBounds
	var size string
	for _, v := range []struct {
		mutable bool
		name    string
	}{
		{false, packet.packetName()},
		{true, packet.packetNameMut()},
	} {
		var ok bool
		bounds, size, ok = generatePacketImpl(cx, packet, v.mutable, v.name)
		if !ok {
			return payloadBounds{}, "", false
		}
	}
	return bounds, size, true
}

// generatePacketImpl walks the fields in declaration order, carrying the
// cumulative fixed bit offset and the variable-length contributions, and
// dispatches each field to the matching emitter.
func generatePacketImpl(cx *genContext, packet *Packet, mutable bool, name string) (payloadBounds, string, bool) {
	bitOffset := 0
	var offsetFnsPacket []string
	var offsetFnsStruct []string
	accessors := ""
	mutators := ""
	errored := false
	var bounds *payloadBounds

	for idx, field := range packet.Fields {
		co := currentOffset(bitOffset, offsetFnsPacket)

		if field.IsPayload {
			upper := ""
			if field.PacketLength != "" {
				upper = co + " + " + field.PacketLength
			} else if idx != len(packet.Fields)-1 {
				cx.r.errorf(LayoutError, field.Pos,
					"#[payload] must specify a #[length] or #[length_fn], unless it is the last field of a packet")
				errored = true
			}
			bounds = &payloadBounds{lower: co, upper: upper}
		}

		switch ty := field.Ty.(type) {
		case Primitive:
			ops := operations(bitOffset%8, ty.Bits)
			if ty.Endian == Little {
				ops = toLittleEndian(ops)
			}
			mutators += generateMutatorStr(field.Name, ty.Name, co, toMutator(ops), "")
			accessors += generateAccessorStr(field.Name, ty.Name, co, ops, "")
			bitOffset += ty.Bits
		case Vector:
			handleVectorField(cx, &errored, field, &accessors, &mutators, ty.Inner, co)
		case Misc:
			handleMiscField(&bitOffset, offsetFnsPacket, co, field, name, &accessors, &mutators)
		}

		if field.PacketLength != "" {
			offsetFnsPacket = append(offsetFnsPacket, field.PacketLength)
		}
		if field.StructLength != "" {
			offsetFnsStruct = append(offsetFnsStruct, field.StructLength)
		}
	}

	if errored {
		return payloadBounds{}, "", false
	}

	byteSize := bitOffset / 8
	if bitOffset%8 != 0 {
		byteSize++
	}

	populate := ""
	if mutable {
		populate = fmt.Sprintf(`
    /// Populates a %sPacket using a %s structure
    #[inline]
    pub fn populate(&mut self, packet: %s) {
        %s
    }
`, packet.BaseName, packet.BaseName, packet.BaseName, generateSetFields(packet))
	}

	model := implModel{
		Name:       name,
		ImmName:    packet.packetName(),
		BaseName:   packet.BaseName,
		ByteSize:   byteSize,
		StructSize: currentOffset(bitOffset, offsetFnsStruct),
		Populate:   populate,
		Accessors:  accessors,
	}
	if mutable {
		model.Mut = " mut"
		model.Mutators = mutators
	}

	var buf bytes.Buffer
	if err := implTemplate.Execute(&buf, model); err != nil {
		panic(fmt.Sprintf("impl template: %v", err))
	}
	cx.push(buf.String())

	return *bounds, currentOffset(bitOffset, offsetFnsPacket), true
}

func generateSetFields(packet *Packet) string {
	var sb strings.Builder
	for _, field := range packet.Fields {
		fmt.Fprintf(&sb, "self.set_%s(packet.%s);\n        ", field.Name, field.Name)
	}
	return strings.TrimRight(sb.String(), " \n")
}

//
// Vector fields
//

func handleVectorField(cx *genContext, errored *bool, field *Field, accessors, mutators *string, inner Type, co string) {
	if !field.IsPayload {
		*accessors += fmt.Sprintf(`
    /// Get the raw &[u8] value of the %s field, without copying
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn get_%s_raw(&self) -> &[u8] {
        let current_offset = %s;
        let len = %s;

        &self.packet[current_offset..current_offset + len]
    }
`, field.Name, field.Name, co, field.PacketLength)
		*mutators += fmt.Sprintf(`
    /// Get the raw &mut [u8] value of the %s field, without copying
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn get_%s_raw_mut(&mut self) -> &mut [u8] {
        let current_offset = %s;
        let len = %s;

        &mut self.packet[current_offset..current_offset + len]
    }
`, field.Name, field.Name, co, field.PacketLength)
	}

	switch it := inner.(type) {
	case Primitive:
		handleVecPrimitive(cx, errored, it.Name, field, accessors, mutators, co)
	case Vector:
		cx.r.errorf(UnsupportedLayout, field.Pos, "variable length fields may not contain vectors")
		*errored = true
	case Misc:
		// the end of the field: an explicit length when given, the end
		// of the buffer for a trailing payload
		endDecl := "let end = self.packet.len();"
		if field.PacketLength != "" {
			endDecl = fmt.Sprintf("let len = %s;\n        let end = current_offset + len;", field.PacketLength)
		}
		*accessors += fmt.Sprintf(`
    /// Get the value of the %s field (copies contents)
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn get_%s(&self) -> Vec<%s> {
        use pnet::packet::FromPacket;
        let current_offset = %s;
        %s

        %sIterable {
            buf: &self.packet[current_offset..end]
        }.map(|packet| packet.from_packet())
         .collect::<Vec<_>>()
    }
`, field.Name, field.Name, it.Name, co, endDecl, it.Name)
		*mutators += fmt.Sprintf(`
    /// Set the value of the %s field (copies contents)
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn set_%s(&mut self, vals: Vec<%s>) {
        use pnet::packet::PacketSize;
        let mut current_offset = %s;
        %s
        for val in vals.into_iter() {
            let mut packet = Mutable%sPacket::new(&mut self.packet[current_offset..]).unwrap();
            packet.populate(val);
            current_offset += packet.packet_size();
            assert!(current_offset <= end);
        }
    }
`, field.Name, field.Name, it.Name, co, endDecl, it.Name)
	}
}

func handleVecPrimitive(cx *genContext, errored *bool, innerName string, field *Field, accessors, mutators *string, co string) {
	if innerName != "u8" {
		cx.r.errorf(UnsupportedLayout, field.Pos, "unimplemented variable length field")
		*errored = true
		return
	}
	if !field.IsPayload {
		*accessors += fmt.Sprintf(`
    /// Get the value of the %s field (copies contents)
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn get_%s(&self) -> Vec<u8> {
        let current_offset = %s;
        let len = %s;

        let packet = &self.packet[current_offset..current_offset + len];
        let mut vec = Vec::with_capacity(packet.len());
        vec.push_all(packet);

        vec
    }
`, field.Name, field.Name, co, field.PacketLength)
	}
	checkLen := ""
	if field.PacketLength != "" {
		checkLen = fmt.Sprintf("let len = %s;\n        assert!(vals.len() <= len);\n", field.PacketLength)
	}
	*mutators += fmt.Sprintf(`
    /// Set the value of the %s field (copies contents)
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn set_%s(&mut self, vals: Vec<u8>) {
        use std::slice::bytes::copy_memory;
        let current_offset = %s;
        %s
        copy_memory(&vals[..], &mut self.packet[current_offset..]);
    }
`, field.Name, field.Name, co, checkLen)
}

//
// Misc fields
//

// handleMiscField emits the composed accessor and mutator for a
// non-primitive field. Each #[construct_with] argument gets a nested
// byte-local accessor/mutator; the bit offset advances per argument and
// the byte offset is recomputed for each one.
func handleMiscField(bitOffset *int, offsetFns []string, co string, field *Field, viewName string, accessors, mutators *string) {
	innerAccessors := ""
	innerMutators := ""
	getArgs := ""
	setArgs := ""
	for i, arg := range field.ConstructWith {
		ops := operations(*bitOffset%8, arg.Bits)
		if arg.Endian == Little {
			ops = toLittleEndian(ops)
		}
		argName := fmt.Sprintf("arg%d", i)
		innerAccessors += generateAccessorStr(argName, arg.Name, co, ops, viewName)
		innerMutators += generateMutatorStr(argName, arg.Name, co, toMutator(ops), viewName)
		getArgs += fmt.Sprintf("get_%s(&self), ", argName)
		setArgs += fmt.Sprintf("set_%s(self, vals.%d);\n        ", argName, i)
		*bitOffset += arg.Bits
		// the byte offset moves as the inner arguments consume bits
		co = currentOffset(*bitOffset, offsetFns)
	}

	*accessors += fmt.Sprintf(`
    /// Get the value of the %s field
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn get_%s(&self) -> %s {
        %s
        %s::new(%s)
    }
`, field.Name, field.Name, field.tyName(), innerAccessors, field.tyName(), strings.TrimSuffix(getArgs, ", "))
	*mutators += fmt.Sprintf(`
    /// Set the value of the %s field
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn set_%s(&mut self, val: %s) {
        use pnet::packet::PrimitiveValues;
        %s
        let vals = val.to_primitive_values();

        %s
    }
`, field.Name, field.Name, field.tyName(), innerMutators, strings.TrimRight(setArgs, " \n"))
}

func (f *Field) tyName() string {
	switch ty := f.Ty.(type) {
	case Primitive:
		return ty.Name
	case Misc:
		return ty.Name
	default:
		panic(fmt.Sprintf("field %s has no simple type name", f.Name))
	}
}

//
// Accessor and mutator bodies
//

func generateSopStrings(offset string, ops []SetOperation) string {
	var sb strings.Builder
	for idx, sop := range ops {
		pkt := fmt.Sprintf("self_.packet[%s + %d]", offset, idx)
		s := strings.ReplaceAll(sop.String(), "{packet}", pkt)
		s = strings.ReplaceAll(s, "{val}", "val")
		sb.WriteString(s)
		sb.WriteString(";\n        ")
	}
	return strings.TrimRight(sb.String(), " \n")
}

// generateMutatorStr returns the target source which sets the named
// field using the planned write sequence. When inner is non-empty the
// mutator is a nested helper over that view type instead of a method.
func generateMutatorStr(name, ty, offset string, ops []SetOperation, inner string) string {
	opStrings := generateSopStrings(offset, ops)
	if inner != "" {
		return fmt.Sprintf(`#[inline]
    #[allow(trivial_numeric_casts)]
    fn set_%s(self_: &mut %s, val: %s) {
        %s
    }
`, name, inner, ty, opStrings)
	}
	return fmt.Sprintf(`
    /// Set the %s field
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn set_%s(&mut self, val: %s) {
        let self_ = self;
        %s
    }
`, name, name, ty, opStrings)
}

// generateAccessorStr returns the target source which reads the named
// field using the planned read sequence.
func generateAccessorStr(name, ty, offset string, ops []GetOperation, inner string) string {
	var opStrings string
	if len(ops) == 1 {
		replacement := fmt.Sprintf("(self_.packet[%s] as %s)", offset, ty)
		opStrings = strings.Replace(ops[0].String(), "{}", replacement, 1)
	} else {
		var sb strings.Builder
		for idx, op := range ops {
			replacement := fmt.Sprintf("(self_.packet[%s + %d] as %s)", offset, idx, ty)
			fmt.Fprintf(&sb, "let b%d = (%s) as %s;\n        ",
				idx, strings.Replace(op.String(), "{}", replacement, 1), ty)
		}
		sb.WriteString("\n        ")
		for idx := range ops {
			if idx > 0 {
				sb.WriteString(" | ")
			}
			fmt.Fprintf(&sb, "b%d", idx)
		}
		opStrings = sb.String()
	}
	if inner != "" {
		return fmt.Sprintf(`#[inline]
    #[allow(trivial_numeric_casts)]
    fn get_%s(self_: &%s) -> %s {
        %s
    }
`, name, inner, ty, opStrings)
	}
	return fmt.Sprintf(`
    /// Get the %s field
    #[inline]
    #[allow(trivial_numeric_casts)]
    pub fn get_%s(&self) -> %s {
        let self_ = self;
        %s
    }
`, name, name, ty, opStrings)
}

//
// Trait impls, iterables, converters, debug
//

func generatePacketSizeImpls(cx *genContext, packet *Packet, size string) {
	for _, name := range []string{packet.packetName(), packet.packetNameMut()} {
		cx.push(fmt.Sprintf(`impl<'a> ::pnet::packet::PacketSize for %s<'a> {
    fn packet_size(&self) -> usize {
        %s
    }
}`, name, size))
	}
}

func generatePacketTraitImpls(cx *genContext, packet *Packet, bounds payloadBounds) {
	for _, v := range []struct {
		name    string
		mutable string
		uMut    string
		mut     string
	}{
		{packet.packetNameMut(), "Mutable", "_mut", "mut "},
		{packet.packetNameMut(), "", "", ""},
		{packet.packetName(), "", "", ""},
	} {
		pre := ""
		start := ""
		end := ""
		if bounds.lower != "" {
			pre += fmt.Sprintf("let start = %s;\n        ", bounds.lower)
			start = "start"
		}
		if bounds.upper != "" {
			pre += fmt.Sprintf("let end = %s;\n        ", bounds.upper)
			end = "end"
		}
		cx.push(fmt.Sprintf(`impl<'a> ::pnet::packet::%sPacket for %s<'a> {
    #[inline]
    fn packet%s<'p>(&'p %sself) -> &'p %s[u8] { &%s self.packet[..] }

    #[inline]
    fn payload%s<'p>(&'p %sself) -> &'p %s[u8] {
        %s&%s self.packet[%s..%s]
    }
}`, v.mutable, v.name, v.uMut, v.mut, v.mut, strings.TrimRight(v.mut, " "), v.uMut, v.mut, v.mut, pre, strings.TrimRight(v.mut, " "), start, end))
	}
}

func generateIterables(cx *genContext, packet *Packet) {
	name := packet.BaseName
	cx.push(fmt.Sprintf(`/// Used to iterate over a slice of `+"`%sPacket`"+`s
pub struct %sIterable<'a> {
    buf: &'a [u8],
}`, name, name))
	cx.push(fmt.Sprintf(`impl<'a> Iterator for %sIterable<'a> {
    type Item = %sPacket<'a>;

    fn next(&mut self) -> Option<%sPacket<'a>> {
        use pnet::packet::PacketSize;
        if self.buf.len() > 0 {
            let ret = %sPacket::new(self.buf).unwrap();
            self.buf = &self.buf[ret.packet_size()..];

            return Some(ret);
        }

        None
    }

    fn size_hint(&self) -> (usize, Option<usize>) {
        (0, None)
    }
}`, name, name, name, name))
}

func generateConverters(cx *genContext, packet *Packet) {
	getFields := generateGetFields(packet)
	for _, name := range []string{packet.packetName(), packet.packetNameMut()} {
		cx.push(fmt.Sprintf(`impl<'p> ::pnet::packet::FromPacket for %s<'p> {
    type T = %s;
    #[inline]
    fn from_packet(&self) -> %s {
        use pnet::packet::Packet;
        %s {
            %s
        }
    }
}`, name, packet.BaseName, packet.BaseName, packet.BaseName, getFields))
	}
}

func generateDebugImpls(cx *genContext, packet *Packet) {
	fieldFmtStr := ""
	getFields := ""
	for _, field := range packet.Fields {
		if !field.IsPayload {
			fieldFmtStr += fmt.Sprintf("%s : {:?}, ", field.Name)
			getFields += fmt.Sprintf(", self.get_%s()", field.Name)
		}
	}
	for _, name := range []string{packet.packetName(), packet.packetNameMut()} {
		cx.push(fmt.Sprintf(`impl<'p> ::std::fmt::Debug for %s<'p> {
    fn fmt(&self, fmt: &mut ::std::fmt::Formatter) -> ::std::fmt::Result {
        write!(fmt,
               "%s {{ %s }}"%s
        )
    }
}`, name, name, fieldFmtStr, getFields))
	}
}

func generateGetFields(packet *Packet) string {
	var sb strings.Builder
	for _, field := range packet.Fields {
		if field.IsPayload {
			fmt.Fprintf(&sb, `%s : {
                let payload = self.payload();
                let mut vec = Vec::with_capacity(payload.len());
                vec.push_all(payload);

                vec
            },
            `, field.Name)
		} else {
			fmt.Fprintf(&sb, "%s : self.get_%s(),\n            ", field.Name, field.Name)
		}
	}
	return strings.TrimRight(sb.String(), " \n")
}
