package graph

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"

	"github.com/MalithGihan/flownodes/pkg/types"
)

// Field names shared across node kinds.
const (
	FieldID           = "id"
	FieldNodeType     = "nodeType"
	FieldValue        = "value"
	FieldVariables    = "variables"
	FieldIsAuthorized = "isAuthorized"
)

// DefaultMaxResults is the mail search page size when none is set.
const DefaultMaxResults = 5

// NodeData is the per-node field set: a common part plus a Fields variant
// selected by the node type. The open name->value mapping only exists at the
// JSON boundary (see Map and MarshalJSON).
type NodeData struct {
	ID       string
	NodeType NodeType
	Value    string
	Fields   Fields
	// Extra holds fields no variant knows about. Never mutated in place.
	Extra map[string]any
}

// Fields is the kind-specific part of NodeData. Implementations are values;
// with returns a modified copy.
type Fields interface {
	Kind() NodeType
	get(name string) (any, bool)
	with(name string, v any) (Fields, error)
	appendTo(m map[string]any)
}

var errUnknownField = errors.New("unknown field")

// NewData returns the default data for a node of the given type.
func NewData(id string, typ NodeType) NodeData {
	d := NodeData{ID: id, NodeType: typ}
	switch typ {
	case TypeInput:
		d.Fields = InputFields{}
	case TypeOutput:
		d.Fields = OutputFields{}
	case TypeLLM:
		d.Fields = LLMFields{}
	case TypeMailSearch:
		d.Fields = MailSearchFields{MaxResults: DefaultMaxResults}
	case TypeMailSend:
		d.Fields = MailSendFields{}
	case TypeFile:
		d.Fields = FileFields{}
	}
	return d
}

// Get reads a field by its wire name.
func (d NodeData) Get(name string) (any, bool) {
	switch name {
	case FieldID:
		return d.ID, true
	case FieldNodeType:
		return string(d.NodeType), true
	case FieldValue:
		return d.Value, d.Value != ""
	case FieldVariables:
		if d.NodeType == TypeLLM {
			return d.Variables(), true
		}
	}
	if d.Fields != nil {
		if v, ok := d.Fields.get(name); ok {
			return v, true
		}
	}
	v, ok := d.Extra[name]
	return v, ok
}

// With returns a copy of d with name set to v. Names the variant does not
// know are kept in Extra.
func (d NodeData) With(name string, v any) (NodeData, error) {
	switch name {
	case FieldID, FieldNodeType:
		return d, invalid(KindReadOnlyField, "field %q mirrors the node and cannot be set", name)
	case FieldVariables:
		return d, invalid(KindReadOnlyField, "field %q is derived from the prompt template", name)
	case FieldValue:
		d.Value = Stringify(v)
		return d, nil
	}
	if d.Fields != nil {
		next, err := d.Fields.with(name, v)
		if err == nil {
			d.Fields = next
			return d, nil
		}
		if !errors.Is(err, errUnknownField) {
			return d, err
		}
	}
	extra := make(map[string]any, len(d.Extra)+1)
	maps.Copy(extra, d.Extra)
	extra[name] = v
	d.Extra = extra
	return d, nil
}

// Variables is the derived variable set of an llm node's prompt template.
func (d NodeData) Variables() []string {
	if f, ok := d.Fields.(LLMFields); ok {
		return ExtractVariables(f.PromptTemplate)
	}
	return nil
}

// IsAuthorized reports whether a mail node has completed authorization.
func (d NodeData) IsAuthorized() bool {
	switch f := d.Fields.(type) {
	case MailSearchFields:
		return f.IsAuthorized
	case MailSendFields:
		return f.IsAuthorized
	}
	return false
}

// Map flattens d into the open field mapping used on the wire.
func (d NodeData) Map() map[string]any {
	m := make(map[string]any, len(d.Extra)+8)
	maps.Copy(m, d.Extra)
	if d.Fields != nil {
		d.Fields.appendTo(m)
	}
	if d.NodeType == TypeLLM {
		m[FieldVariables] = d.Variables()
	}
	if d.Value != "" {
		m[FieldValue] = d.Value
	}
	m[FieldID] = d.ID
	m[FieldNodeType] = string(d.NodeType)
	return m
}

func (d NodeData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

func (d *NodeData) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	id, _ := m[FieldID].(string)
	typ, _ := m[FieldNodeType].(string)
	if !NodeType(typ).Valid() {
		return invalid(KindInvalidNode, "data has unknown nodeType %q", typ)
	}
	out, err := decodeData(id, NodeType(typ), m)
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// decodeData rebuilds typed data from a wire mapping. id and typ win over
// whatever the mapping claims; variables are recomputed, not read.
func decodeData(id string, typ NodeType, m map[string]any) (NodeData, error) {
	d := NewData(id, typ)
	keys := slices.Sorted(maps.Keys(m))
	for _, k := range keys {
		switch k {
		case FieldID, FieldNodeType, FieldVariables:
			continue
		}
		next, err := d.With(k, m[k])
		if err != nil {
			return NodeData{}, err
		}
		d = next
	}
	return d, nil
}

type InputFields struct{}

func (InputFields) Kind() NodeType                   { return TypeInput }
func (InputFields) get(string) (any, bool)           { return nil, false }
func (InputFields) with(string, any) (Fields, error) { return nil, errUnknownField }
func (InputFields) appendTo(map[string]any)          {}

type OutputFields struct{}

func (OutputFields) Kind() NodeType                   { return TypeOutput }
func (OutputFields) get(string) (any, bool)           { return nil, false }
func (OutputFields) with(string, any) (Fields, error) { return nil, errUnknownField }
func (OutputFields) appendTo(map[string]any)          {}

// LLMFields carries the prompt configuration. Variables are not stored; they
// are derived from PromptTemplate on every read.
type LLMFields struct {
	SystemInstructions string
	PromptTemplate     string
}

func (LLMFields) Kind() NodeType { return TypeLLM }

func (f LLMFields) get(name string) (any, bool) {
	switch name {
	case "systemInstructions":
		return f.SystemInstructions, true
	case "promptTemplate":
		return f.PromptTemplate, true
	}
	return nil, false
}

func (f LLMFields) with(name string, v any) (Fields, error) {
	var err error
	switch name {
	case "systemInstructions":
		f.SystemInstructions, err = asString(name, v)
	case "promptTemplate":
		f.PromptTemplate, err = asString(name, v)
	default:
		return nil, errUnknownField
	}
	return f, err
}

func (f LLMFields) appendTo(m map[string]any) {
	m["systemInstructions"] = f.SystemInstructions
	m["promptTemplate"] = f.PromptTemplate
}

type MailSearchFields struct {
	SearchQuery   string
	MaxResults    int
	IsAuthorized  bool
	SearchResults []types.Message
}

func (MailSearchFields) Kind() NodeType { return TypeMailSearch }

func (f MailSearchFields) get(name string) (any, bool) {
	switch name {
	case "searchQuery":
		return f.SearchQuery, true
	case "maxResults":
		return f.MaxResults, true
	case FieldIsAuthorized:
		return f.IsAuthorized, true
	case "searchResults":
		return f.SearchResults, f.SearchResults != nil
	}
	return nil, false
}

func (f MailSearchFields) with(name string, v any) (Fields, error) {
	var err error
	switch name {
	case "searchQuery":
		f.SearchQuery, err = asString(name, v)
	case "maxResults":
		f.MaxResults, err = asInt(name, v)
		if err == nil && f.MaxResults <= 0 {
			f.MaxResults = DefaultMaxResults
		}
	case FieldIsAuthorized:
		f.IsAuthorized, err = asBool(name, v)
	case "searchResults":
		f.SearchResults, err = asMessages(name, v)
	default:
		return nil, errUnknownField
	}
	return f, err
}

func (f MailSearchFields) appendTo(m map[string]any) {
	m["searchQuery"] = f.SearchQuery
	m["maxResults"] = f.MaxResults
	m[FieldIsAuthorized] = f.IsAuthorized
	if f.SearchResults != nil {
		m["searchResults"] = f.SearchResults
	}
}

type MailSendFields struct {
	To           string
	Subject      string
	Body         string
	IsAuthorized bool
}

func (MailSendFields) Kind() NodeType { return TypeMailSend }

func (f MailSendFields) get(name string) (any, bool) {
	switch name {
	case "to":
		return f.To, true
	case "subject":
		return f.Subject, true
	case "body":
		return f.Body, true
	case FieldIsAuthorized:
		return f.IsAuthorized, true
	}
	return nil, false
}

func (f MailSendFields) with(name string, v any) (Fields, error) {
	var err error
	switch name {
	case "to":
		f.To, err = asString(name, v)
	case "subject":
		f.Subject, err = asString(name, v)
	case "body":
		f.Body, err = asString(name, v)
	case FieldIsAuthorized:
		f.IsAuthorized, err = asBool(name, v)
	default:
		return nil, errUnknownField
	}
	return f, err
}

func (f MailSendFields) appendTo(m map[string]any) {
	m["to"] = f.To
	m["subject"] = f.Subject
	m["body"] = f.Body
	m[FieldIsAuthorized] = f.IsAuthorized
}

type FileFields struct {
	FileName    string
	FileType    string
	FileContent string
}

func (FileFields) Kind() NodeType { return TypeFile }

func (f FileFields) get(name string) (any, bool) {
	switch name {
	case "fileName":
		return f.FileName, f.FileName != ""
	case "fileType":
		return f.FileType, f.FileType != ""
	case "fileContent":
		return f.FileContent, f.FileContent != ""
	}
	return nil, false
}

func (f FileFields) with(name string, v any) (Fields, error) {
	var err error
	switch name {
	case "fileName":
		f.FileName, err = asString(name, v)
	case "fileType":
		f.FileType, err = asString(name, v)
	case "fileContent":
		f.FileContent, err = asString(name, v)
	default:
		return nil, errUnknownField
	}
	return f, err
}

func (f FileFields) appendTo(m map[string]any) {
	if f.FileName != "" {
		m["fileName"] = f.FileName
	}
	if f.FileType != "" {
		m["fileType"] = f.FileType
	}
	if f.FileContent != "" {
		m["fileContent"] = f.FileContent
	}
}
