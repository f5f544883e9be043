package jmap

import (
	"encoding/json"
	"fmt"
)

// MethodCall is the triple (name, arguments, clientTag) that composes a
// batch request. clientTag is assigned by the caller as the decimal index
// of the call within its batch; response correlation is by numeric parsing
// of the tag (see Connection.dispatch).
type MethodCall struct {
	Name      string
	Arguments map[string]any
	ClientTag string
}

// MethodResponse is the triple (name, arguments, clientTag) JMAP returns for
// each method call. Name may be "error", in which case Arguments["type"]
// names the JMAP error type.
type MethodResponse struct {
	Name      string
	Arguments map[string]any
	ClientTag string
}

// IsError reports whether this response represents a method-level error,
// i.e. name == "error".
func (r MethodResponse) IsError() bool {
	return r.Name == "error"
}

// ErrorType returns Arguments["type"] for an error response, or "" if this
// is not an error response or the type is missing/not a string.
func (r MethodResponse) ErrorType() string {
	if !r.IsError() {
		return ""
	}
	t, _ := r.Arguments["type"].(string)
	return t
}

// MarshalJSON encodes a MethodCall as the JMAP wire tuple
// [name, arguments, clientTag], not as a JSON object.
func (c MethodCall) MarshalJSON() ([]byte, error) {
	args := c.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return json.Marshal([3]any{c.Name, args, c.ClientTag})
}

// UnmarshalJSON decodes a MethodCall from the JMAP wire tuple.
func (c *MethodCall) UnmarshalJSON(data []byte) error {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode method call tuple: %w", err)
	}
	var name, tag string
	if err := json.Unmarshal(tuple[0], &name); err != nil {
		return fmt.Errorf("decode method call name: %w", err)
	}
	args := map[string]any{}
	if len(tuple[1]) > 0 {
		if err := json.Unmarshal(tuple[1], &args); err != nil {
			return fmt.Errorf("decode method call arguments: %w", err)
		}
	}
	if err := json.Unmarshal(tuple[2], &tag); err != nil {
		return fmt.Errorf("decode method call client tag: %w", err)
	}
	c.Name = name
	c.Arguments = args
	c.ClientTag = tag
	return nil
}

// MarshalJSON encodes a MethodResponse as the JMAP wire tuple
// [name, arguments, clientTag].
func (r MethodResponse) MarshalJSON() ([]byte, error) {
	args := r.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return json.Marshal([3]any{r.Name, args, r.ClientTag})
}

// UnmarshalJSON decodes a MethodResponse from the JMAP wire tuple.
func (r *MethodResponse) UnmarshalJSON(data []byte) error {
	var tuple [3]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode method response tuple: %w", err)
	}
	var name, tag string
	if err := json.Unmarshal(tuple[0], &name); err != nil {
		return fmt.Errorf("decode method response name: %w", err)
	}
	args := map[string]any{}
	if len(tuple[1]) > 0 {
		if err := json.Unmarshal(tuple[1], &args); err != nil {
			return fmt.Errorf("decode method response arguments: %w", err)
		}
	}
	if err := json.Unmarshal(tuple[2], &tag); err != nil {
		return fmt.Errorf("decode method response client tag: %w", err)
	}
	r.Name = name
	r.Arguments = args
	r.ClientTag = tag
	return nil
}
