package registry

import (
	"strconv"
	"strings"

	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/gowire/protolite/schema"
)

// convertProto walks a parsed *parser.Proto's top-level body and fills in
// pf's Messages/Enums/Services, replacing the package/syntax-only
// extraction the naive line scanner used to produce. Unrecognized body
// elements (options, extends, reserved ranges) are skipped; this is a best
// effort structural conversion, not a full descriptor builder.
func convertProto(proto *protoparserparser.Proto, pf *schema.ProtoFile) {
	if proto == nil {
		return
	}
	for _, body := range proto.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Message:
			pf.Messages = append(pf.Messages, convertMessage(b))
		case *protoparserparser.Enum:
			pf.Enums = append(pf.Enums, convertEnum(b))
		case *protoparserparser.Service:
			pf.Services = append(pf.Services, convertService(b))
		}
	}
}

func convertMessage(m *protoparserparser.Message) *schema.Message {
	out := &schema.Message{Name: m.MessageName}
	oneofIdx := int32(0)
	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			out.Fields = append(out.Fields, convertField(b))
		case *protoparserparser.MapField:
			out.Fields = append(out.Fields, convertMapField(b))
		case *protoparserparser.Oneof:
			idx := oneofIdx
			oneofIdx++
			group := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				f := &schema.Field{
					Name:       of.FieldName,
					Number:     parseFieldNumber(of.FieldNumber),
					Label:      schema.LabelOptional,
					Type:       classifyType(of.Type),
					OneofIndex: idx,
				}
				group.Fields = append(group.Fields, f)
				out.Fields = append(out.Fields, f)
			}
			out.OneofGroups = append(out.OneofGroups, group)
		case *protoparserparser.Message:
			out.NestedTypes = append(out.NestedTypes, convertMessage(b))
		case *protoparserparser.Enum:
			out.NestedEnums = append(out.NestedEnums, convertEnum(b))
		}
	}
	return out
}

func convertField(f *protoparserparser.Field) *schema.Field {
	label := schema.LabelOptional
	if f.IsRepeated {
		label = schema.LabelRepeated
	}
	return &schema.Field{
		Name:       f.FieldName,
		Number:     parseFieldNumber(f.FieldNumber),
		Label:      label,
		Type:       classifyType(f.Type),
		OneofIndex: -1,
	}
}

func convertMapField(f *protoparserparser.MapField) *schema.Field {
	return &schema.Field{
		Name:   f.MapName,
		Number: parseFieldNumber(f.FieldNumber),
		Label:  schema.LabelOptional,
		Type: schema.FieldType{
			Kind:     schema.KindMap,
			MapKey:   fieldTypePtr(classifyType(f.KeyType)),
			MapValue: fieldTypePtr(classifyType(f.Type)),
		},
		OneofIndex: -1,
	}
}

func convertEnum(e *protoparserparser.Enum) *schema.Enum {
	out := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		if ef, ok := body.(*protoparserparser.EnumField); ok {
			n, _ := strconv.Atoi(ef.Number)
			out.Values = append(out.Values, &schema.EnumValue{
				Name:   ef.Ident,
				Number: int32(n),
			})
		}
	}
	return out
}

func convertService(s *protoparserparser.Service) *schema.Service {
	out := &schema.Service{Name: s.ServiceName}
	for _, body := range s.ServiceBody {
		rpc, ok := body.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		method := &schema.Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			method.InputType = rpc.RPCRequest.MessageType
			method.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			method.OutputType = rpc.RPCResponse.MessageType
			method.ServerStreaming = rpc.RPCResponse.IsStream
		}
		out.Methods = append(out.Methods, method)
	}
	return out
}

func parseFieldNumber(s string) int32 {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return int32(n)
}

func fieldTypePtr(ft schema.FieldType) *schema.FieldType { return &ft }

var primitiveTypeNames = map[string]schema.PrimitiveType{
	"double":   schema.TypeDouble,
	"float":    schema.TypeFloat,
	"int32":    schema.TypeInt32,
	"int64":    schema.TypeInt64,
	"uint32":   schema.TypeUint32,
	"uint64":   schema.TypeUint64,
	"sint32":   schema.TypeSint32,
	"sint64":   schema.TypeSint64,
	"fixed32":  schema.TypeFixed32,
	"fixed64":  schema.TypeFixed64,
	"sfixed32": schema.TypeSfixed32,
	"sfixed64": schema.TypeSfixed64,
	"bool":     schema.TypeBool,
	"string":   schema.TypeString,
	"bytes":    schema.TypeBytes,
}

var wrapperTypeNames = map[string]schema.WrapperType{
	"google.protobuf.DoubleValue": schema.WrapperDoubleValue,
	"google.protobuf.FloatValue":  schema.WrapperFloatValue,
	"google.protobuf.Int64Value":  schema.WrapperInt64Value,
	"google.protobuf.UInt64Value": schema.WrapperUInt64Value,
	"google.protobuf.Int32Value":  schema.WrapperInt32Value,
	"google.protobuf.UInt32Value": schema.WrapperUInt32Value,
	"google.protobuf.BoolValue":   schema.WrapperBoolValue,
	"google.protobuf.StringValue": schema.WrapperStringValue,
	"google.protobuf.BytesValue":  schema.WrapperBytesValue,
}

// classifyType maps a raw .proto type token to a schema.FieldType. Anything
// not recognized as a primitive or well-known wrapper is treated as a
// message-or-enum reference; buildDefinitions resolves which.
func classifyType(raw string) schema.FieldType {
	raw = strings.TrimSpace(raw)
	if pt, ok := primitiveTypeNames[raw]; ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt}
	}
	if wt, ok := wrapperTypeNames[raw]; ok {
		return schema.FieldType{Kind: schema.KindWrapper, WrapperType: wt, MessageType: raw}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: raw}
}
