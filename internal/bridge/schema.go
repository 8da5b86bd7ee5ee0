package bridge

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type schemaRegistry struct {
	once     sync.Once
	initErr  error
	request  *jsonschema.Schema
	commands map[string]*jsonschema.Schema
}

var schemas schemaRegistry

func initSchemas() error {
	schemas.once.Do(func() {
		req, err := jsonschema.CompileString("bridge_request", requestSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.request = req

		commands := map[string]string{
			"create_entry": createEntrySchema,
			"get_entries":  getEntriesSchema,
			"get_entry":    getEntrySchema,
			"get_stats":    emptyDataSchema,
			"ping":         emptyDataSchema,
			"backfill":     backfillSchema,
		}
		schemas.commands = make(map[string]*jsonschema.Schema, len(commands))
		for name, schema := range commands {
			compiled, err := jsonschema.CompileString("bridge_command_"+name, schema)
			if err != nil {
				schemas.initErr = fmt.Errorf("compile %s schema: %w", name, err)
				return
			}
			schemas.commands[name] = compiled
		}
	})
	return schemas.initErr
}

func validateRequest(payload any) error {
	if err := initSchemas(); err != nil {
		return err
	}
	return schemas.request.Validate(payload)
}

func validateData(command string, data any) error {
	if err := initSchemas(); err != nil {
		return err
	}
	if schema := schemas.commands[command]; schema != nil {
		return schema.Validate(data)
	}
	return nil
}

const requestSchema = `{
  "type": "object",
  "required": ["command"],
  "properties": {
    "command": { "type": "string", "minLength": 1 },
    "data": { "type": ["object", "null"] },
    "requestId": {}
  },
  "additionalProperties": true
}`

const createEntrySchema = `{
  "type": "object",
  "required": ["content"],
  "properties": {
    "content": { "type": "string", "minLength": 1 },
    "mood_rating": { "type": "integer", "minimum": 1, "maximum": 5 }
  },
  "additionalProperties": true
}`

const getEntriesSchema = `{
  "type": "object",
  "properties": {
    "limit": { "type": "integer", "minimum": 1, "maximum": 1000 }
  },
  "additionalProperties": true
}`

const getEntrySchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": { "type": "string", "minLength": 1 }
  },
  "additionalProperties": true
}`

const backfillSchema = `{
  "type": "object",
  "properties": {
    "limit": { "type": "integer", "minimum": 0 }
  },
  "additionalProperties": true
}`

const emptyDataSchema = `{
  "type": "object",
  "additionalProperties": true
}`
