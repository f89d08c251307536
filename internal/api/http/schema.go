package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const maxBodyBytes = 4 << 20

// Request body schemas, one per operation.
var schemas = map[string]string{
	"createSession": `{
		"type": "object",
		"required": ["question_ids"],
		"properties": {
			"question_ids": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
			"difficulty": {"type": "string"},
			"count": {"type": "integer", "minimum": 0}
		}
	}`,
	"closeSession": `{
		"type": "object",
		"required": ["status"],
		"properties": {
			"status": {"enum": ["succeeded", "canceled"]}
		}
	}`,
	"submitAnswer": `{
		"type": "object",
		"required": ["test_session_id", "question_id", "selected_answer"],
		"properties": {
			"test_session_id": {"type": "string", "minLength": 1},
			"question_id": {"type": "string", "minLength": 1},
			"selected_answer": {"type": "integer", "minimum": -1},
			"subjects": {"type": "array", "items": {"type": "string"}},
			"topics": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	"importQuestions": `{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"questions": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["id", "question_text", "options", "correct_answer", "category"],
					"properties": {
						"id": {"type": "string", "minLength": 1},
						"question_text": {"type": "string", "minLength": 1},
						"options": {"type": "array", "minItems": 2},
						"correct_answer": {"type": "integer", "minimum": 0},
						"category": {"type": "string"},
						"approved": {"type": "boolean"}
					}
				}
			}
		}
	}`,
	"bulkUsers": `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["username"],
			"properties": {
				"id": {"type": "string"},
				"username": {"type": "string", "pattern": "\\S"},
				"display_name": {"type": "string"},
				"role": {"enum": ["", "student", "teacher", "admin"]},
				"password": {"type": "string"}
			}
		}
	}`,
	"changePassword": `{
		"type": "object",
		"required": ["old_password", "new_password"],
		"properties": {
			"old_password": {"type": "string"},
			"new_password": {"type": "string", "minLength": 8}
		}
	}`,
}

// schemaCache caches compiled schemas by operation name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}
	src, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("no schema named %q", name)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	schemaCache.Store(name, compiled)
	return compiled, nil
}

// decodeValid validates the request body against the named schema, then decodes it into dst.
func decodeValid(r *http.Request, name string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return quiz.Invalidf("read body: %v", err)
	}
	return decodeValidBytes(body, name, dst)
}

// decodeValidBytes is decodeValid for a body already in memory.
func decodeValidBytes(body []byte, name string, dst any) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return quiz.Invalidf("bad json")
	}
	sch, err := compiledSchema(name)
	if err != nil {
		return quiz.Internal("load schema", err)
	}
	if err := sch.Validate(inst); err != nil {
		return quiz.Invalidf("%s", firstViolation(err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return quiz.Invalidf("bad json: %v", err)
	}
	return nil
}

// firstViolation returns the first "- at '/path': reason" line of a validation error.
func firstViolation(err error) string {
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			return strings.TrimPrefix(line, "- ")
		}
	}
	return err.Error()
}
