package emitter

import (
	"fmt"
	"strings"
)

// Disassemble renders a described program in a readable text form, one
// statement per line. Intended for debugging and tooling; the output format
// is not stable.
func Disassemble(p *Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "program %s\n", p.Name)
	for i, l := range p.Locals {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("l%d", i)
		}
		fmt.Fprintf(&b, "  local %s %s\n", name, l.Type)
	}
	writeStmts(&b, p, p.Body, 1)
	return b.String()
}

func writeStmts(b *strings.Builder, p *Program, stmts []Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, st := range stmts {
		switch n := st.(type) {
		case DeclareLocal:
			if n.Init != nil {
				fmt.Fprintf(b, "%s%s = %s\n", indent, localName(p, n.ID), exprString(p, n.Init))
			} else {
				fmt.Fprintf(b, "%sdeclare %s\n", indent, localName(p, n.ID))
			}
		case Call:
			var args []string
			for _, a := range n.Args {
				args = append(args, exprString(p, a))
			}
			dst := ""
			if n.Result >= 0 {
				dst = localName(p, n.Result) + " = "
			}
			suffix := ""
			if n.ErrorsOut {
				suffix = " !err"
			}
			fmt.Fprintf(b, "%s%scall %s(%s)%s\n", indent, dst, exprString(p, n.Fn), strings.Join(args, ", "), suffix)
		case StoreSlot:
			fmt.Fprintf(b, "%sslot[%d] = %s\n", indent, n.Index, exprString(p, n.X))
		case SetResult:
			fmt.Fprintf(b, "%ssetresult %s\n", indent, exprString(p, n.X))
		case ReportNoTarget:
			fmt.Fprintf(b, "%sreport no-target %s\n", indent, n.Method)
		case Protected:
			fmt.Fprintf(b, "%sprotected {\n", indent)
			writeStmts(b, p, n.Body, depth+1)
			fmt.Fprintf(b, "%s} cleanup {\n", indent)
			writeStmts(b, p, n.Cleanup, depth+1)
			fmt.Fprintf(b, "%s}\n", indent)
		default:
			fmt.Fprintf(b, "%s%T\n", indent, st)
		}
	}
}

func exprString(p *Program, e Expr) string {
	switch n := e.(type) {
	case Literal:
		return fmt.Sprintf("lit(%v)", n.Value)
	case LoadSlot:
		return fmt.Sprintf("slot[%d]", n.Index)
	case LoadTarget:
		return "target"
	case LoadLocal:
		return localName(p, n.ID)
	case AddrOf:
		return "&" + localName(p, n.ID)
	case Convert:
		return fmt.Sprintf("conv(%s, %s)", exprString(p, n.X), n.To)
	case FuncRef:
		return "fn " + n.Fn.Type().String()
	default:
		return fmt.Sprintf("%T", e)
	}
}

func localName(p *Program, id LocalID) string {
	if int(id) < len(p.Locals) && p.Locals[id].Name != "" {
		return p.Locals[id].Name
	}
	return fmt.Sprintf("l%d", id)
}
