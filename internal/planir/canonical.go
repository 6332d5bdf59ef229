package planir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cypherc/internal/ast"
)

// Snapshot serializes a query to canonical JSON: object keys sorted,
// strings NFC normalized, no HTML escaping, expressions rendered to
// their canonical text. The same IR always snapshots to the same
// bytes, so the snapshot doubles as the input to the statement hash
// and as the golden-test representation.
func Snapshot(q Query) ([]byte, error) {
	return marshalCanonical(queryValue(q))
}

func queryValue(q Query) any {
	switch x := q.(type) {
	case *PlannerQuery:
		return segmentValue(x)
	case *UnionQuery:
		branches := make([]any, len(x.Branches))
		for i, b := range x.Branches {
			branches[i] = segmentValue(b)
		}
		return map[string]any{
			"kind":     "union",
			"all":      x.All,
			"columns":  stringsValue(x.Columns),
			"branches": branches,
		}
	default:
		return map[string]any{"kind": fmt.Sprintf("<%T>", q)}
	}
}

func segmentValue(pq *PlannerQuery) any {
	out := map[string]any{
		"kind":  "segment",
		"graph": graphValue(&pq.Graph),
	}
	if len(pq.Updates) > 0 {
		updates := make([]any, len(pq.Updates))
		for i, u := range pq.Updates {
			updates[i] = updateValue(u)
		}
		out["updates"] = updates
	}
	if pq.Horizon != nil {
		out["horizon"] = horizonValue(pq.Horizon)
	}
	if pq.Next != nil {
		out["next"] = segmentValue(pq.Next)
	}
	return out
}

func graphValue(g *QueryGraph) any {
	out := map[string]any{}
	if len(g.Arguments) > 0 {
		out["arguments"] = stringsValue(g.Arguments)
	}
	if len(g.Nodes) > 0 {
		nodes := make([]any, len(g.Nodes))
		for i, n := range g.Nodes {
			node := map[string]any{"name": n.Name}
			if len(n.Labels) > 0 {
				node["labels"] = stringsValue(n.Labels)
			}
			nodes[i] = node
		}
		out["nodes"] = nodes
	}
	if len(g.Relationships) > 0 {
		rels := make([]any, len(g.Relationships))
		for i, r := range g.Relationships {
			rel := map[string]any{
				"name":      r.Name,
				"start":     r.Start,
				"end":       r.End,
				"direction": directionName(r.Direction),
			}
			if len(r.Types) > 0 {
				rel["types"] = stringsValue(r.Types)
			}
			if r.Varlength() {
				hops := map[string]any{}
				if r.MinHops != nil {
					hops["min"] = *r.MinHops
				}
				if r.MaxHops != nil {
					hops["max"] = *r.MaxHops
				}
				rel["hops"] = hops
			}
			rels[i] = rel
		}
		out["relationships"] = rels
	}
	if len(g.Predicates) > 0 {
		preds := make([]any, len(g.Predicates))
		for i, p := range g.Predicates {
			preds[i] = map[string]any{
				"expr": exprText(p.Expr),
				"deps": stringsValue(p.Dependencies),
			}
		}
		out["predicates"] = preds
	}
	if len(g.Optionals) > 0 {
		opts := make([]any, len(g.Optionals))
		for i, o := range g.Optionals {
			opts[i] = graphValue(o)
		}
		out["optionals"] = opts
	}
	return out
}

func horizonValue(h Horizon) any {
	switch x := h.(type) {
	case *Projection:
		items := make([]any, len(x.Items))
		for i, item := range x.Items {
			items[i] = map[string]any{
				"alias": item.Alias,
				"expr":  exprText(item.Expr),
			}
		}
		out := map[string]any{
			"kind":  "projection",
			"items": items,
		}
		if x.Distinct {
			out["distinct"] = true
		}
		if x.Aggregating {
			out["aggregating"] = true
		}
		if x.Final {
			out["final"] = true
		}
		if len(x.OrderBy) > 0 {
			keys := make([]any, len(x.OrderBy))
			for i, k := range x.OrderBy {
				keys[i] = map[string]any{
					"expr":       exprText(k.Expr),
					"descending": k.Descending,
				}
			}
			out["orderBy"] = keys
		}
		if x.Skip != nil {
			out["skip"] = exprText(x.Skip)
		}
		if x.Limit != nil {
			out["limit"] = exprText(x.Limit)
		}
		return out
	case *Unwind:
		return map[string]any{
			"kind":  "unwind",
			"expr":  exprText(x.Expr),
			"alias": x.Alias,
		}
	case *ProcedureCall:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			args[i] = exprText(a)
		}
		yield := make([]any, len(x.Yield))
		for i, y := range x.Yield {
			yield[i] = map[string]any{"name": y.Name, "alias": y.Alias}
		}
		name := x.Name
		for i := len(x.Namespace) - 1; i >= 0; i-- {
			name = x.Namespace[i] + "." + name
		}
		return map[string]any{
			"kind":  "call",
			"name":  name,
			"args":  args,
			"yield": yield,
		}
	case *Subquery:
		return map[string]any{
			"kind":    "subquery",
			"columns": stringsValue(x.Columns),
			"inner":   queryValue(x.Inner),
		}
	default:
		return map[string]any{"kind": fmt.Sprintf("<%T>", h)}
	}
}

func updateValue(u UpdateOp) any {
	switch x := u.(type) {
	case *CreateOp:
		return map[string]any{
			"kind":          "create",
			"nodes":         createNodesValue(x.Nodes),
			"relationships": createRelsValue(x.Relationships),
		}
	case *MergeOp:
		out := map[string]any{
			"kind":          "merge",
			"nodes":         createNodesValue(x.Nodes),
			"relationships": createRelsValue(x.Relationships),
		}
		if len(x.OnCreate) > 0 {
			out["onCreate"] = setItemsValue(x.OnCreate)
		}
		if len(x.OnMatch) > 0 {
			out["onMatch"] = setItemsValue(x.OnMatch)
		}
		return out
	case *SetOp:
		return map[string]any{"kind": "set", "items": setItemsValue(x.Items)}
	case *RemoveOp:
		items := make([]any, len(x.Items))
		for i, item := range x.Items {
			m := map[string]any{"target": item.Target}
			if item.Property != "" {
				m["property"] = item.Property
			}
			if len(item.Labels) > 0 {
				m["labels"] = stringsValue(item.Labels)
			}
			items[i] = m
		}
		return map[string]any{"kind": "remove", "items": items}
	case *DeleteOp:
		exprs := make([]any, len(x.Exprs))
		for i, e := range x.Exprs {
			exprs[i] = exprText(e)
		}
		return map[string]any{
			"kind":   "delete",
			"detach": x.Detach,
			"exprs":  exprs,
		}
	default:
		return map[string]any{"kind": fmt.Sprintf("<%T>", u)}
	}
}

func createNodesValue(nodes []CreateNode) any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		m := map[string]any{"name": n.Name}
		if len(n.Labels) > 0 {
			m["labels"] = stringsValue(n.Labels)
		}
		if n.Properties != nil {
			m["properties"] = exprText(n.Properties)
		}
		out[i] = m
	}
	return out
}

func createRelsValue(rels []CreateRel) any {
	out := make([]any, len(rels))
	for i, r := range rels {
		m := map[string]any{
			"name":      r.Name,
			"start":     r.Start,
			"end":       r.End,
			"type":      r.Type,
			"direction": directionName(r.Direction),
		}
		if r.Properties != nil {
			m["properties"] = exprText(r.Properties)
		}
		out[i] = m
	}
	return out
}

func setItemsValue(items []SetItem) any {
	out := make([]any, len(items))
	for i, item := range items {
		m := map[string]any{"target": item.Target}
		switch item.Kind {
		case SetProperty:
			m["property"] = item.Property
			m["value"] = exprText(item.Value)
		case SetVariable:
			m["replace"] = exprText(item.Value)
		case SetMerge:
			m["merge"] = exprText(item.Value)
		case SetLabels:
			m["labels"] = stringsValue(item.Labels)
		}
		out[i] = m
	}
	return out
}

func directionName(d ast.Direction) string {
	switch d {
	case ast.DirOutgoing:
		return "outgoing"
	case ast.DirIncoming:
		return "incoming"
	default:
		return "both"
	}
}

func exprText(e ast.Expr) string {
	if e == nil {
		return ""
	}
	return ast.ExprString(e)
}

func stringsValue(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// marshalCanonical writes canonical JSON: sorted object keys, NFC
// normalized strings, no HTML escaping, no floats, no nulls. All
// numeric values in a snapshot are integers, so the float and null
// restrictions never bite in practice.
func marshalCanonical(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalCanonicalString(val)
	case int64:
		return []byte(fmt.Sprintf("%d", val)), nil
	case int:
		return []byte(fmt.Sprintf("%d", val)), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString encodes a string NFC normalized and without
// HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds a trailing newline.
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}
