package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cloo-solutions/wellrag/internal/domain"
)

// EncodeMetadata writes sanitized metadata as a JSON object with sorted keys.
// Floats always carry a decimal point so integers and floats stay
// distinguishable after a round trip.
func EncodeMetadata(meta map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := encodeScalar(meta[k])
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeScalar(v any) ([]byte, error) {
	norm, ok := domain.NormalizeScalar(v)
	if !ok {
		return nil, domain.ErrInvalidFilter
	}
	switch t := norm.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("unsupported float %v", t)
		}
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return []byte(s), nil
	default:
		return json.Marshal(t)
	}
}

// DecodeMetadata reads metadata written by EncodeMetadata. Numbers with a
// fraction or exponent decode as float64, the rest as int64.
func DecodeMetadata(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			out[k] = v
			continue
		}
		if strings.ContainsAny(n.String(), ".eE") {
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("decode metadata %q: %w", k, err)
			}
			out[k] = f
			continue
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("decode metadata %q: %w", k, err)
		}
		out[k] = i
	}
	return out, nil
}

// EncodeVector packs an embedding as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a vector written by EncodeVector.
func DecodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
