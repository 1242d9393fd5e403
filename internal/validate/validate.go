package validate

import (
	"bytes"
	"embed"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/*.json
var schemas embed.FS

const flowStateURL = "file://schema/flowstate.schema.json"

var (
	once    sync.Once
	schema  *jsonschema.Schema
	loadErr error
)

func load() {
	c := jsonschema.NewCompiler()
	b, err := schemas.ReadFile("schema/flowstate.schema.json")
	if err != nil {
		loadErr = err
		return
	}
	if err := c.AddResource(flowStateURL, bytes.NewReader(b)); err != nil {
		loadErr = err
		return
	}
	s, err := c.Compile(flowStateURL)
	if err != nil {
		loadErr = err
		return
	}
	schema = s
}

// FlowState validates a serialized session snapshot.
func FlowState(raw []byte) error {
	once.Do(load)
	if loadErr != nil {
		return loadErr
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
