package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"

	"github.com/finops-claw-gang/snapdrift/internal/faults"
)

// MaxDepth bounds the nesting of parsed documents.
const MaxDepth = 512

var errTooDeep = fmt.Errorf("document nesting exceeds %d levels", MaxDepth)

// Parse decodes raw JSON text into a Node.
func Parse(raw []byte) (Node, error) {
	v, err := decode(raw)
	if err != nil {
		return Node{}, err
	}
	n, err := FromValue(v)
	if err != nil {
		return Node{}, faults.Wrap(faults.ParseError, "convert document", "", err)
	}
	return n, nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, faults.Wrap(faults.ParseError, "parse document", "", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, faults.New(faults.ParseError, "parse document: trailing data after value", "")
	}
	return v, nil
}

// FromValue converts a decoded Go value into a Node. Accepted inputs are the shapes
// produced by encoding/json (with or without UseNumber) and by jq evaluation.
func FromValue(v any) (Node, error) {
	return fromValue(v, 0)
}

func fromValue(v any, depth int) (Node, error) {
	if depth > MaxDepth {
		return Node{}, errTooDeep
	}
	switch typed := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(typed), nil
	case string:
		return String(typed), nil
	case json.Number:
		return Number(typed.String()), nil
	case float64:
		return floatNode(typed)
	case float32:
		return floatNode(float64(typed))
	case int:
		return Number(strconv.Itoa(typed)), nil
	case int64:
		return Number(strconv.FormatInt(typed, 10)), nil
	case *big.Int:
		return Number(typed.String()), nil
	case []any:
		items := make([]Node, len(typed))
		for i, item := range typed {
			n, err := fromValue(item, depth+1)
			if err != nil {
				return Node{}, err
			}
			items[i] = n
		}
		return Node{kind: KindSequence, items: items}, nil
	case map[string]any:
		fields := make(map[string]Node, len(typed))
		for k, item := range typed {
			n, err := fromValue(item, depth+1)
			if err != nil {
				return Node{}, err
			}
			fields[k] = n
		}
		return Node{kind: KindMapping, fields: fields}, nil
	}
	return Node{}, fmt.Errorf("unsupported value type %T", v)
}

func floatNode(f float64) (Node, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Node{}, errors.New("document contains non-finite number")
	}
	return Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// NumbersEqual compares two number literals by value, so "1", "1.0" and "1e0" are equal.
func NumbersEqual(a, b string) bool {
	if a == b {
		return true
	}
	x, _, errA := big.ParseFloat(a, 10, 256, big.ToNearestEven)
	y, _, errB := big.ParseFloat(b, 10, 256, big.ToNearestEven)
	if errA != nil || errB != nil {
		return false
	}
	return x.Cmp(y) == 0
}
