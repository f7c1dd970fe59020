package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/gowire/protolite/schema"
)

// protoFileEntity tracks the import edges discovered for one .proto file
// during getAllProtoInfo's DFS walk.
type protoFileEntity struct {
	imports []string
}

// Registry allows us to store the schema of the protobuf messages, loaded from .proto files and validated as it is built.
type Registry struct {
	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service

	// ProtoDirectories lists the roots getAllProtoInfo searches when
	// resolving an import statement to a file on disk.
	ProtoDirectories []string
	parsedProtoBody  map[string]*protoparserparser.Proto
	protoEntities    map[string]*protoFileEntity
}

func NewRegistry() *Registry {
	return &Registry{}
}

// LoadSchemaFromEntryFile resolves entryFile's import graph against
// protoDirectories via go-protoparser (getAllProtoInfo), loads every .proto
// file discovered — entry file plus every transitive import — and builds
// the symbol table. Unlike LoadSchema, which scans every file under a
// directory regardless of whether anything imports it, this only loads what
// the entry file's import graph actually reaches.
func (r *Registry) LoadSchemaFromEntryFile(entryFile string, protoDirectories []string) error {
	r.ProtoDirectories = protoDirectories
	r.messages = make(map[string]*schema.Message)
	r.enums = make(map[string]*schema.Enum)
	r.services = make(map[string]*schema.Service)
	r.repo = &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)}
	r.parsedProtoBody = make(map[string]*protoparserparser.Proto)
	r.protoEntities = make(map[string]*protoFileEntity)

	files, err := r.getAllProtoInfo(entryFile)
	if err != nil {
		return fmt.Errorf("failed to resolve proto imports: %w", err)
	}
	for _, f := range files {
		if err := r.loadSingleProtoFile(f); err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", f, err)
		}
	}
	return r.buildSymbolTable()
}

// LoadSchema Given a path it will recursively scan all *proto files inside it and return schema.ProtoRepo
func (r *Registry) LoadSchema(protoPath string) error {
	// Initialize the registry maps if not already done
	if r.messages == nil {
		r.messages = make(map[string]*schema.Message)
	}
	if r.enums == nil {
		r.enums = make(map[string]*schema.Enum)
	}
	if r.services == nil {
		r.services = make(map[string]*schema.Service)
	}

	r.repo = &schema.ProtoRepo{
		ProtoFiles: make(map[string]*schema.ProtoFile),
	}

	// Check if the path exists
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	// If it's a single file, process it directly
	if !info.IsDir() {
		if strings.HasSuffix(protoPath, ".proto") {
			if err := r.loadSingleProtoFile(protoPath); err != nil {
				return fmt.Errorf("failed to load proto file: %w", err)
			}
		} else {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
	} else {
		// If it's a directory, walk through it recursively
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			// Skip directories and non-proto files
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}

			// Load the proto file
			if err := r.loadSingleProtoFile(path); err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", path, err)
			}

			return nil
		})

		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	// After loading all files, populate the registry maps
	if err := r.buildSymbolTable(); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}

	return nil
}

// loadSingleProtoFile loads and parses a single .proto file using
// go-protoparser, populating not just package/syntax but the full
// message/enum/service body so buildSymbolTable has something to register.
func (r *Registry) loadSingleProtoFile(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	protoFile := &schema.ProtoFile{
		Name:     filepath.Base(filePath),
		Syntax:   "proto3", // Default
		Package:  "",
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
		Services: []*schema.Service{},
	}

	// Basic parsing - extract package name
	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "package ") {
			parts := strings.Fields(line)
			if len(parts) >= 2 {
				protoFile.Package = strings.TrimSuffix(parts[1], ";")
			}
		}
		if strings.HasPrefix(line, "syntax ") {
			if strings.Contains(line, "proto2") {
				protoFile.Syntax = "proto2"
			}
		}
	}

	if parsed, perr := protoparser.Parse(strings.NewReader(string(content))); perr == nil {
		if r.parsedProtoBody == nil {
			r.parsedProtoBody = make(map[string]*protoparserparser.Proto)
		}
		r.parsedProtoBody[filePath] = parsed
		convertProto(parsed, protoFile)
	}

	// Store in the ProtoRepo
	r.repo.ProtoFiles[filePath] = protoFile
	return nil
}

// buildSymbolTable builds the symbol table from the loaded repository
func (r *Registry) buildSymbolTable() error {
	// Pass 1: Register all message and enum names
	for _, protoFile := range r.repo.ProtoFiles {
		if err := r.registerNames(protoFile); err != nil {
			return err
		}
	}

	// Pass 2: Build all message and enum definitions
	for _, protoFile := range r.repo.ProtoFiles {
		if err := r.buildDefinitions(protoFile); err != nil {
			return err
		}
	}

	// Pass 3: Build services
	for _, protoFile := range r.repo.ProtoFiles {
		if err := r.buildServices(protoFile); err != nil {
			return err
		}
	}

	return nil
}

// registerNames registers all message, enum, and service names
func (r *Registry) registerNames(protoFile *schema.ProtoFile) error {
	pkg := protoFile.Package
	// Register messages
	for _, msg := range protoFile.Messages {
		fullName := r.getFullName(pkg, msg.Name)
		r.messages[fullName] = msg

		// Register nested types
		if err := r.registerNestedNames(pkg, msg.Name, msg); err != nil {
			return err
		}
	}

	// Register enums
	for _, enum := range protoFile.Enums {
		fullName := r.getFullName(pkg, enum.Name)
		r.enums[fullName] = enum
	}

	// Register services
	for _, service := range protoFile.Services {
		fullName := r.getFullName(pkg, service.Name)
		r.services[fullName] = service
	}

	return nil
}

// registerNestedNames registers nested message and enum names
func (r *Registry) registerNestedNames(pkg, parentName string, msg *schema.Message) error {
	// Register nested messages
	for _, nestedMsg := range msg.NestedTypes {
		nestedFullName := r.getFullName(pkg, parentName+"."+nestedMsg.Name)
		r.messages[nestedFullName] = nestedMsg

		// Recursively register nested types
		if err := r.registerNestedNames(pkg, parentName+"."+nestedMsg.Name, nestedMsg); err != nil {
			return err
		}
	}

	// Register nested enums
	for _, nestedEnum := range msg.NestedEnums {
		nestedFullName := r.getFullName(pkg, parentName+"."+nestedEnum.Name)
		r.enums[nestedFullName] = nestedEnum
	}

	return nil
}

// buildDefinitions resolves every message/enum field type reference against
// the symbol table built in registerNames.
func (r *Registry) buildDefinitions(protoFile *schema.ProtoFile) error {
	for _, msg := range protoFile.Messages {
		if err := r.resolveMessageFields(msg, protoFile.Package); err != nil {
			return err
		}
	}
	return nil
}

// resolveMessageFields validates msg's field types (and recurses into
// nested types) against the registered messages/enums.
func (r *Registry) resolveMessageFields(msg *schema.Message, pkg string) error {
	for _, f := range msg.Fields {
		if err := r.resolveFieldType(&f.Type); err != nil {
			return fmt.Errorf("message %s field %s: %w", msg.Name, f.Name, err)
		}
	}
	for _, nested := range msg.NestedTypes {
		if err := r.resolveMessageFields(nested, pkg); err != nil {
			return err
		}
	}
	return nil
}

// resolveFieldType checks that a message/enum-typed field actually refers
// to something registered. classifyType can't statically tell a message
// reference from an enum reference, so a KindMessage field that isn't a
// known message is retried as an enum before failing.
func (r *Registry) resolveFieldType(ft *schema.FieldType) error {
	switch ft.Kind {
	case schema.KindMessage:
		if _, err := r.GetMessage(ft.MessageType); err == nil {
			return nil
		}
		if _, err := r.GetEnum(ft.MessageType); err == nil {
			ft.Kind = schema.KindEnum
			ft.EnumType = ft.MessageType
			ft.MessageType = ""
			return nil
		}
		return fmt.Errorf("unknown type: %s", ft.MessageType)
	case schema.KindEnum:
		if _, err := r.GetEnum(ft.EnumType); err != nil {
			return fmt.Errorf("enum type not found: %s", ft.EnumType)
		}
	case schema.KindMap:
		if ft.MapKey != nil {
			if err := r.resolveFieldType(ft.MapKey); err != nil {
				return err
			}
		}
		if ft.MapValue != nil {
			if err := r.resolveFieldType(ft.MapValue); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertProtoType classifies a raw .proto type name with classifyType and
// resolves it with resolveFieldType, so a message/enum name that is not
// registered is an error. visited and pkg are not consulted: names resolve
// through GetMessage/GetEnum's own lookup.
func (r *Registry) convertProtoType(protoType string, visited map[string]struct{}, pkg string) (*schema.FieldType, error) {
	ft := classifyType(protoType)
	if err := r.resolveFieldType(&ft); err != nil {
		return nil, err
	}
	return &ft, nil
}

// buildServices validates that every method's input/output type resolves to
// a registered message.
func (r *Registry) buildServices(protoFile *schema.ProtoFile) error {
	for _, svc := range protoFile.Services {
		for _, m := range svc.Methods {
			if _, err := r.GetMessage(m.InputType); err != nil {
				return fmt.Errorf("service %s method %s: input type not found: %s", svc.Name, m.Name, m.InputType)
			}
			if _, err := r.GetMessage(m.OutputType); err != nil {
				return fmt.Errorf("service %s method %s: output type not found: %s", svc.Name, m.Name, m.OutputType)
			}
		}
	}
	return nil
}

func (r *Registry) getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	// Try without package prefix
	for fullName, msg := range r.messages {
		if strings.HasSuffix(fullName, "."+name) || fullName == name {
			return msg, nil
		}
	}

	return nil, fmt.Errorf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	// Try without package prefix
	for fullName, enum := range r.enums {
		if strings.HasSuffix(fullName, "."+name) || fullName == name {
			return enum, nil
		}
	}

	return nil, fmt.Errorf("enum not found: %s", name)
}

// GetService retrieves a service definition by name
func (r *Registry) GetService(name string) (*schema.Service, error) {
	if service, exists := r.services[name]; exists {
		return service, nil
	}

	// Try without package prefix
	for fullName, service := range r.services {
		if strings.HasSuffix(fullName, "."+name) || fullName == name {
			return service, nil
		}
	}

	return nil, fmt.Errorf("service not found: %s", name)
}

// ListMessages returns all registered message names
func (r *Registry) ListMessages() []string {
	var names []string
	for name := range r.messages {
		names = append(names, name)
	}
	return names
}

// ListEnums returns all registered enum names
func (r *Registry) ListEnums() []string {
	var names []string
	for name := range r.enums {
		names = append(names, name)
	}
	return names
}

// ListServices returns all registered service names
func (r *Registry) ListServices() []string {
	var names []string
	for name := range r.services {
		names = append(names, name)
	}
	return names
}

// GetOrCreateMapEntryMessage creates a synthetic message type for map entries
func (r *Registry) GetOrCreateMapEntryMessage(mapFieldName string, keyType, valueType *schema.FieldType) (*schema.Message, error) {
	entryTypeName := mapFieldName + "Entry"

	// Check if already exists
	if msg, exists := r.messages[entryTypeName]; exists {
		return msg, nil
	}

	// Create synthetic map entry message
	mapEntryMessage := &schema.Message{
		Name:     entryTypeName,
		MapEntry: true,
		Fields: []*schema.Field{
			{
				Name:   "key",
				Number: 1,
				Label:  schema.LabelOptional,
				Type:   *keyType,
			},
			{
				Name:   "value",
				Number: 2,
				Label:  schema.LabelOptional,
				Type:   *valueType,
			},
		},
	}

	// Register it
	r.messages[entryTypeName] = mapEntryMessage
	return mapEntryMessage, nil
}
