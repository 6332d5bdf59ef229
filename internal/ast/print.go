package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExprString renders an expression to a canonical, deterministic text
// form. Binary and unary applications are always parenthesized, so the
// rendering is unambiguous without precedence knowledge. The canonical
// text is used for structural hashing, conjunct ordering and IR
// snapshots; it is not meant to round-trip through the parser
// unchanged, only to name one structure one way.
func ExprString(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch x := e.(type) {
	case *IntegerLit:
		sb.WriteString(strconv.FormatInt(x.Value, 10))
	case *FloatLit:
		sb.WriteString(strconv.FormatFloat(x.Value, 'g', -1, 64))
	case *StringLit:
		sb.WriteString(strconv.Quote(x.Value))
	case *BoolLit:
		if x.Value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case *NullLit:
		sb.WriteString("NULL")
	case *Variable:
		sb.WriteString(x.Name)
	case *Parameter:
		sb.WriteString("$")
		sb.WriteString(x.Name)
	case *PropertyAccess:
		writeExpr(sb, x.Subject)
		sb.WriteString(".")
		sb.WriteString(x.Key)
	case *FunctionCall:
		for _, ns := range x.Namespace {
			sb.WriteString(ns)
			sb.WriteString(".")
		}
		sb.WriteString(strings.ToLower(x.Name))
		sb.WriteString("(")
		if x.Distinct {
			sb.WriteString("DISTINCT ")
		}
		for i, arg := range x.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, arg)
		}
		sb.WriteString(")")
	case *CountStar:
		sb.WriteString("count(*)")
	case *Binary:
		sb.WriteString("(")
		writeExpr(sb, x.LHS)
		sb.WriteString(" ")
		sb.WriteString(x.Op.String())
		sb.WriteString(" ")
		writeExpr(sb, x.RHS)
		sb.WriteString(")")
	case *Unary:
		switch x.Op {
		case OpIsNull, OpIsNotNull:
			sb.WriteString("(")
			writeExpr(sb, x.Operand)
			sb.WriteString(" ")
			sb.WriteString(x.Op.String())
			sb.WriteString(")")
		default:
			sb.WriteString("(")
			sb.WriteString(x.Op.String())
			sb.WriteString(" ")
			writeExpr(sb, x.Operand)
			sb.WriteString(")")
		}
	case *ListLit:
		sb.WriteString("[")
		for i, item := range x.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, item)
		}
		sb.WriteString("]")
	case *MapLit:
		sb.WriteString("{")
		for i, entry := range x.Entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(entry.Key)
			sb.WriteString(": ")
			writeExpr(sb, entry.Value)
		}
		sb.WriteString("}")
	case *Index:
		writeExpr(sb, x.Subject)
		sb.WriteString("[")
		writeExpr(sb, x.Key)
		sb.WriteString("]")
	case *Slice:
		writeExpr(sb, x.Subject)
		sb.WriteString("[")
		if x.From != nil {
			writeExpr(sb, x.From)
		}
		sb.WriteString("..")
		if x.To != nil {
			writeExpr(sb, x.To)
		}
		sb.WriteString("]")
	case *ListComprehension:
		sb.WriteString("[")
		sb.WriteString(x.Variable)
		sb.WriteString(" IN ")
		writeExpr(sb, x.Source)
		if x.Where != nil {
			sb.WriteString(" WHERE ")
			writeExpr(sb, x.Where)
		}
		if x.Projection != nil {
			sb.WriteString(" | ")
			writeExpr(sb, x.Projection)
		}
		sb.WriteString("]")
	case *PatternComprehension:
		sb.WriteString("[")
		sb.WriteString(patternPartString(x.Part))
		if x.Where != nil {
			sb.WriteString(" WHERE ")
			writeExpr(sb, x.Where)
		}
		if x.Projection != nil {
			sb.WriteString(" | ")
			writeExpr(sb, x.Projection)
		}
		sb.WriteString("]")
	case *Case:
		sb.WriteString("CASE")
		if x.Test != nil {
			sb.WriteString(" ")
			writeExpr(sb, x.Test)
		}
		for _, alt := range x.Alternatives {
			sb.WriteString(" WHEN ")
			writeExpr(sb, alt.When)
			sb.WriteString(" THEN ")
			writeExpr(sb, alt.Then)
		}
		if x.Else != nil {
			sb.WriteString(" ELSE ")
			writeExpr(sb, x.Else)
		}
		sb.WriteString(" END")
	case *Exists:
		sb.WriteString("EXISTS { ")
		sb.WriteString(PatternString(x.Pattern))
		if x.Where != nil {
			sb.WriteString(" WHERE ")
			writeExpr(sb, x.Where)
		}
		sb.WriteString(" }")
	default:
		sb.WriteString(fmt.Sprintf("<%T>", e))
	}
}

// PatternString renders a pattern to canonical text.
func PatternString(p *Pattern) string {
	parts := make([]string, len(p.Parts))
	for i, part := range p.Parts {
		parts[i] = patternPartString(part)
	}
	return strings.Join(parts, ", ")
}

func patternPartString(part *PatternPart) string {
	var sb strings.Builder
	if part.Variable != "" {
		sb.WriteString(part.Variable)
		sb.WriteString(" = ")
	}
	for _, el := range part.Elements {
		switch x := el.(type) {
		case *NodePattern:
			sb.WriteString("(")
			sb.WriteString(x.Variable)
			writeLabels(&sb, x.Labels)
			if x.Properties != nil {
				sb.WriteString(" ")
				writeExpr(&sb, x.Properties)
			}
			if x.Predicate != nil {
				sb.WriteString(" WHERE ")
				writeExpr(&sb, x.Predicate)
			}
			sb.WriteString(")")
		case *RelationshipPattern:
			if x.Direction == DirIncoming {
				sb.WriteString("<-[")
			} else {
				sb.WriteString("-[")
			}
			sb.WriteString(x.Variable)
			writeRelTypes(&sb, x.Types)
			if x.VarLength != nil {
				sb.WriteString("*")
				if x.VarLength.Min != nil {
					sb.WriteString(strconv.FormatInt(*x.VarLength.Min, 10))
				}
				sb.WriteString("..")
				if x.VarLength.Max != nil {
					sb.WriteString(strconv.FormatInt(*x.VarLength.Max, 10))
				}
			}
			if x.Properties != nil {
				sb.WriteString(" ")
				writeExpr(&sb, x.Properties)
			}
			if x.Direction == DirOutgoing {
				sb.WriteString("]->")
			} else {
				sb.WriteString("]-")
			}
		}
	}
	return sb.String()
}

func writeLabels(sb *strings.Builder, labels []string) {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	for _, l := range sorted {
		sb.WriteString(":")
		sb.WriteString(l)
	}
}

func writeRelTypes(sb *strings.Builder, types []string) {
	for i, t := range types {
		if i == 0 {
			sb.WriteString(":")
		} else {
			sb.WriteString("|")
		}
		sb.WriteString(t)
	}
}
