package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/callforge/callforge/descriptor"
	"github.com/callforge/callforge/emitter"
	"github.com/callforge/callforge/generator"
	"github.com/callforge/callforge/naming"
	"github.com/callforge/callforge/registry"
)

func main() {
	var (
		targetName  = flag.String("target", "", "Demo target (calculator, greeter, store)")
		methodName  = flag.String("method", "", "Method to forward through a generated type")
		argStr      = flag.String("args", "", "Comma-separated argument values")
		mutable     = flag.Bool("mutable", false, "Generate with the target-mutation capability")
		disasm      = flag.Bool("disasm", false, "Print the forwarding program")
		list        = flag.Bool("list", false, "List target methods and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose generation logging")
	)
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			emitter.SetLogger(l)
			generator.SetLogger(l)
		}
	}

	if *targetName == "" {
		fmt.Fprintln(os.Stderr, "Usage: forge -target <name> [-method name] [-args a,b] [-mutable] [-disasm]")
		fmt.Fprintln(os.Stderr, "       forge -target <name> -list")
		fmt.Fprintln(os.Stderr, "       forge -target <name> -i  (interactive mode)")
		fmt.Fprintf(os.Stderr, "Targets: %s\n", strings.Join(targetNames(), ", "))
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*targetName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*targetName, *methodName, *argStr, *mutable, *disasm, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(targetName, methodName, argStr string, mutable, disasm, listOnly bool) error {
	target, err := lookupTarget(targetName)
	if err != nil {
		return err
	}

	methods := targetMethods(target.value)
	fmt.Printf("Target: %s (%T)\n", target.name, target.value)
	fmt.Printf("\nMethods:\n")
	for _, mi := range methods {
		fmt.Printf("  %s\n", mi.signature())
	}
	if listOnly {
		return nil
	}

	if methodName == "" {
		if len(methods) == 1 {
			methodName = methods[0].name
		} else {
			fmt.Printf("\nNo method specified. Use -method to pick one.\n")
			return nil
		}
	}

	var mi *methodInfo
	for i := range methods {
		if methods[i].name == methodName {
			mi = &methods[i]
			break
		}
	}
	if mi == nil {
		return fmt.Errorf("target %s has no method %s", target.name, methodName)
	}

	tbl := registry.NewTable()
	scope := naming.NewScope()
	gt, err := ensureType(tbl, scope, target.value, mi, mutable)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	fmt.Printf("\nGenerated type: %s (mutable=%v)\n", gt.Name(), gt.IsMutable())
	if disasm {
		fmt.Printf("\n%s\n", emitter.Disassemble(gt.Program()))
	}

	args, err := parseArgs(argStr, mi)
	if err != nil {
		return err
	}

	inv, err := gt.New(target.value, nil, args)
	if err != nil {
		return fmt.Errorf("construct invocation: %w", err)
	}

	fmt.Printf("\nForwarding %s(%s)...\n", mi.name, argStr)
	if err := gt.Forward(inv); err != nil {
		return fmt.Errorf("forward %s: %w", mi.name, err)
	}

	if mi.method.Result != nil {
		fmt.Printf("Result: %v\n", inv.ReturnValue())
	} else {
		fmt.Printf("Done (no result).\n")
	}
	return nil
}

// ensureType generates the invocation type for mi once per table, reusing the
// cached type on later requests for the same method and capability.
func ensureType(tbl *registry.Table, scope *naming.Scope, target any, mi *methodInfo, mutable bool) (*generator.GeneratedType, error) {
	tt := reflect.TypeOf(target)
	key := registry.Key{
		Target:   tt,
		Method:   mi.name,
		Strategy: "target",
		Mutable:  mutable,
	}
	return tbl.Ensure(key, func() (*generator.GeneratedType, error) {
		cb, err := generator.MethodCallback(tt, mi.name)
		if err != nil {
			return nil, err
		}
		return generator.Generate(&generator.Context{
			Method:        mi.method,
			TargetType:    tt,
			Fallback:      cb,
			MutableTarget: mutable,
			Naming:        scope,
		})
	})
}

type demoTarget struct {
	name  string
	value any
}

// Calculator is a demo destination with value and error result shapes.
type Calculator struct {
	Memory float64
}

func (c *Calculator) Add(a, b float64) float64 { return a + b }

func (c *Calculator) Div(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

func (c *Calculator) Store(v float64) { c.Memory = v }

func (c *Calculator) Recall() float64 { return c.Memory }

// Greeter is a demo destination with string and variadic parameters.
type Greeter struct {
	Prefix string
}

func (g *Greeter) Greet(name string) string { return g.Prefix + ", " + name + "!" }

func (g *Greeter) GreetAll(names ...string) string {
	return g.Prefix + ", " + strings.Join(names, " and ") + "!"
}

// KeyStore is a demo destination with state and a lookup error path.
type KeyStore struct {
	entries map[string]string
}

func (s *KeyStore) Put(key, value string) {
	if s.entries == nil {
		s.entries = make(map[string]string)
	}
	s.entries[key] = value
}

func (s *KeyStore) Get(key string) (string, error) {
	v, ok := s.entries[key]
	if !ok {
		return "", fmt.Errorf("no entry for %q", key)
	}
	return v, nil
}

func (s *KeyStore) Len() int { return len(s.entries) }

func demoTargets() []demoTarget {
	return []demoTarget{
		{name: "calculator", value: &Calculator{}},
		{name: "greeter", value: &Greeter{Prefix: "Hello"}},
		{name: "store", value: &KeyStore{entries: map[string]string{"region": "eu-west-1"}}},
	}
}

func targetNames() []string {
	var names []string
	for _, t := range demoTargets() {
		names = append(names, t.name)
	}
	return names
}

func lookupTarget(name string) (demoTarget, error) {
	for _, t := range demoTargets() {
		if t.name == name {
			return t, nil
		}
	}
	return demoTarget{}, fmt.Errorf("unknown target %q (have: %s)", name, strings.Join(targetNames(), ", "))
}

type methodInfo struct {
	name   string
	method *descriptor.Method
}

func (mi methodInfo) signature() string {
	var params []string
	for i, p := range mi.method.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		pt, err := p.Type.Resolve(nil)
		if err != nil {
			params = append(params, name)
			continue
		}
		params = append(params, name+": "+pt.String())
	}
	result := ""
	if mi.method.Result != nil {
		if rt, err := mi.method.Result.Resolve(nil); err == nil {
			result = " -> " + rt.String()
		}
	}
	if mi.method.ReturnsError {
		result += " (may fail)"
	}
	return mi.name + "(" + strings.Join(params, ", ") + ")" + result
}

// targetMethods describes every exported method of target that the generator
// supports, sorted by name.
func targetMethods(target any) []methodInfo {
	tt := reflect.TypeOf(target)
	var out []methodInfo
	for i := 0; i < tt.NumMethod(); i++ {
		name := tt.Method(i).Name
		m, err := descriptor.FromMethod(tt, name)
		if err != nil {
			continue
		}
		out = append(out, methodInfo{name: name, method: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// parseArgs converts comma-separated flag input into slot values typed for
// the method's parameters.
func parseArgs(argStr string, mi *methodInfo) ([]any, error) {
	var raw []string
	if argStr != "" {
		raw = strings.Split(argStr, ",")
	}

	params := mi.method.Params
	variadic := false
	if n := len(params); n > 0 {
		if pt, err := params[n-1].Type.Resolve(nil); err == nil && pt.Kind() == reflect.Slice && len(raw) >= n-1 {
			variadic = true
		}
	}
	if !variadic && len(raw) != len(params) {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", mi.name, len(params), len(raw))
	}

	args := make([]any, len(params))
	for i, p := range params {
		pt, err := p.Type.Resolve(nil)
		if err != nil {
			return nil, err
		}
		if variadic && i == len(params)-1 {
			rest := raw[i:]
			slice := reflect.MakeSlice(pt, 0, len(rest))
			for _, r := range rest {
				v, err := parseScalar(strings.TrimSpace(r), pt.Elem())
				if err != nil {
					return nil, err
				}
				slice = reflect.Append(slice, reflect.ValueOf(v))
			}
			args[i] = slice.Interface()
			break
		}
		v, err := parseScalar(strings.TrimSpace(raw[i]), pt)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func parseScalar(value string, t reflect.Type) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Bool:
		return value == "true" || value == "1", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", value, err)
		}
		return reflect.ValueOf(v).Convert(t).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", value, err)
		}
		return reflect.ValueOf(v).Convert(t).Interface(), nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", value, err)
		}
		return reflect.ValueOf(v).Convert(t).Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s", t)
	}
}
