package predicate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidJSON is returned when a JSON document does not describe a predicate tree.
var ErrInvalidJSON = errors.New("predicate: invalid json")

type jsonNode struct {
	Connector string            `json:"connector"`
	Negated   bool              `json:"negated,omitempty"`
	Children  []json.RawMessage `json:"children"`
}

type jsonLeaf struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// MarshalJSON encodes the tree as
//
//	{"connector":"AND","negated":true,"children":[{"key":"a","value":42}, {...}]}
//
// Leaf values must themselves be JSON-encodable.
func (q Q) MarshalJSON() ([]byte, error) {
	node := jsonNode{
		Connector: q.connector.String(),
		Negated:   q.negated,
		Children:  make([]json.RawMessage, 0, len(q.children)),
	}
	for _, child := range q.children {
		var (
			raw []byte
			err error
		)
		switch c := child.(type) {
		case Leaf:
			raw, err = json.Marshal(jsonLeaf{Key: c.Key, Value: c.Value})
		case Q:
			raw, err = c.MarshalJSON()
		}
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, raw)
	}
	return json.Marshal(node)
}

// UnmarshalJSON decodes the format written by MarshalJSON.
// Numbers are decoded as json.Number so that integer values survive unchanged.
func (q *Q) UnmarshalJSON(data []byte) error {
	var node jsonNode
	if err := json.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var conn Connector
	switch node.Connector {
	case "", "AND":
		conn = AND
	case "OR":
		conn = OR
	default:
		return fmt.Errorf("%w: unknown connector %q", ErrInvalidJSON, node.Connector)
	}

	children := make([]Child, 0, len(node.Children))
	for i, raw := range node.Children {
		child, err := decodeChild(raw)
		if err != nil {
			return fmt.Errorf("%w: child %d: %v", ErrInvalidJSON, i, err)
		}
		children = append(children, child)
	}

	*q = Compose(conn, node.Negated, children...)
	return nil
}

func decodeChild(raw json.RawMessage) (Child, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["key"]; ok {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var leaf jsonLeaf
		if err := dec.Decode(&leaf); err != nil {
			return nil, err
		}
		if leaf.Key == "" {
			return nil, errors.New("empty lookup key")
		}
		return Leaf{Key: leaf.Key, Value: leaf.Value}, nil
	}

	var nested Q
	if err := nested.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return nested, nil
}
