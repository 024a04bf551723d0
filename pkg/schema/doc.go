// Package schema provides optional type validation for run states.
//
// A Schema maps state keys to types. Graphs may carry one; the executor then
// validates the initial state before the first node runs. Keys the schema does
// not name are ignored.
//
//	s := schema.Schema{
//	    "code":      schema.String(),
//	    "threshold": schema.Optional(schema.Float()),
//	}
//
// Schemas can also be parsed from type expressions, which is how workflow
// definition files declare them:
//
//	s, err := schema.ParseTypeMap(map[string]string{
//	    "code":      "string",
//	    "threshold": "float?",
//	    "tags":      "[string]",
//	})
package schema
