package manifest

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

func loadSchema() {
	schemaCtx = cuecontext.New()
	v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compile schema: %w", err)
		return
	}
	schemaDef = v.LookupPath(cue.ParsePath("#Manifest"))
	if err := schemaDef.Err(); err != nil {
		schemaErr = fmt.Errorf("schema: %w", err)
	}
}

// validateSchema checks a decoded document against the embedded schema.
func validateSchema(m *Manifest) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	doc := schemaCtx.Encode(m)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if err := schemaDef.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Messages: schemaMessages(err)}
	}
	return nil
}

func schemaMessages(err error) []string {
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			msg = strings.Join(path, ".") + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// SchemaError lists the schema violations of one document.
type SchemaError struct {
	Messages []string
}

func (e *SchemaError) Error() string {
	return "schema: " + strings.Join(e.Messages, "; ")
}
