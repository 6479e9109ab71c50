package expressions

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/spf13/cast"

	"github.com/codx-dev/codx/pkg/schema"
)

// ConditionEvaluator decides recipe conditions such as
// `count > 3 and name == "test"` against a variable set.
//
// Expressions are parsed by the expr-lang parser and interpreted here with
// loose semantics: a missing variable is undefined instead of an error,
// `undefined`, `null` and `nil` all denote the absent value, and bare values
// follow JavaScript truthiness. Any parse or evaluation failure yields false.
//
// Thread-safe: parsed trees are cached and reused across goroutines.
type ConditionEvaluator struct {
	mu    sync.RWMutex
	cache map[string]ast.Node
}

// NewConditionEvaluator creates an evaluator with an empty parse cache.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{
		cache: make(map[string]ast.Node),
	}
}

// Evaluate reports whether condition holds for vars. It never fails.
func (e *ConditionEvaluator) Evaluate(condition string, vars map[string]any) bool {
	ok, err := e.Check(condition, vars)
	return err == nil && ok
}

// Check evaluates condition and returns the reason when it cannot be decided.
func (e *ConditionEvaluator) Check(condition string, vars map[string]any) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return false, schema.NewError(schema.ErrCodeValidation, "empty condition")
	}

	node, err := e.getOrParse(condition)
	if err != nil {
		return false, err
	}

	s := &evalScope{vars: vars, flat: Flatten(vars)}
	v, err := s.eval(node)
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"condition %q cannot be evaluated", condition).WithCause(err)
	}
	return truthy(v), nil
}

// getOrParse returns a cached tree or parses and caches a new one.
func (e *ConditionEvaluator) getOrParse(condition string) (ast.Node, error) {
	e.mu.RLock()
	if node, ok := e.cache[condition]; ok {
		e.mu.RUnlock()
		return node, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if node, ok := e.cache[condition]; ok {
		return node, nil
	}

	tree, err := parser.Parse(condition)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid condition %q", condition).WithCause(err)
	}

	e.cache[condition] = tree.Node
	return tree.Node, nil
}

// --- Evaluation ---

type evalScope struct {
	vars map[string]any
	flat map[string]any
}

// lookup resolves a name or dot path, flattened keys first.
func (s *evalScope) lookup(name string) (any, bool) {
	if v, ok := s.flat[name]; ok {
		return v, true
	}
	if v, ok := s.vars[name]; ok {
		return v, true
	}
	return nil, false
}

func (s *evalScope) eval(node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.NilNode:
		return nil, nil
	case *ast.BoolNode:
		return n.Value, nil
	case *ast.IntegerNode:
		return float64(n.Value), nil
	case *ast.FloatNode:
		return n.Value, nil
	case *ast.StringNode:
		return n.Value, nil
	case *ast.ConstantNode:
		return normalize(n.Value), nil
	case *ast.IdentifierNode:
		v, _ := s.lookup(n.Value)
		return normalize(v), nil
	case *ast.UnaryNode:
		return s.unary(n)
	case *ast.BinaryNode:
		return s.binary(n)
	case *ast.ChainNode:
		return s.eval(n.Node)
	case *ast.MemberNode:
		return s.member(n)
	case *ast.CallNode:
		return s.call(n)
	case *ast.BuiltinNode:
		return s.builtin(n)
	case *ast.ConditionalNode:
		c, err := s.eval(n.Cond)
		if err != nil {
			return nil, err
		}
		if truthy(c) {
			return s.eval(n.Exp1)
		}
		return s.eval(n.Exp2)
	case *ast.ArrayNode:
		items := make([]any, 0, len(n.Nodes))
		for _, child := range n.Nodes {
			v, err := s.eval(child)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	return nil, fmt.Errorf("unsupported expression %T", node)
}

func (s *evalScope) unary(n *ast.UnaryNode) (any, error) {
	v, err := s.eval(n.Node)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "not", "!":
		return !truthy(v), nil
	case "-", "+":
		f, ok := numberOf(v)
		if !ok {
			return nil, fmt.Errorf("operator %s needs a number, got %T", n.Operator, v)
		}
		if n.Operator == "-" {
			return -f, nil
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported operator %q", n.Operator)
}

func (s *evalScope) binary(n *ast.BinaryNode) (any, error) {
	l, err := s.eval(n.Left)
	if err != nil {
		return nil, err
	}

	// Short-circuit operators.
	switch n.Operator {
	case "and", "&&":
		if !truthy(l) {
			return false, nil
		}
		r, err := s.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	case "or", "||":
		if truthy(l) {
			return true, nil
		}
		r, err := s.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	case "??":
		if l != nil {
			return l, nil
		}
		return s.eval(n.Right)
	}

	r, err := s.eval(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Operator {
	case "==":
		return equal(l, r), nil
	case "!=":
		return !equal(l, r), nil
	case "<", ">", "<=", ">=":
		return compare(n.Operator, l, r)
	case "in":
		return contains(r, l), nil
	case "contains":
		return contains(l, r), nil
	case "startsWith":
		ls, rs, err := stringOperands(n.Operator, l, r)
		if err != nil {
			return nil, err
		}
		return strings.HasPrefix(ls, rs), nil
	case "endsWith":
		ls, rs, err := stringOperands(n.Operator, l, r)
		if err != nil {
			return nil, err
		}
		return strings.HasSuffix(ls, rs), nil
	case "matches":
		ls, rs, err := stringOperands(n.Operator, l, r)
		if err != nil {
			return nil, err
		}
		return regexp.MatchString(rs, ls)
	case "+":
		if ls, ok := l.(string); ok {
			return ls + cast.ToString(r), nil
		}
		if rs, ok := r.(string); ok {
			return cast.ToString(l) + rs, nil
		}
	}

	return arithmetic(n.Operator, l, r)
}

func (s *evalScope) member(n *ast.MemberNode) (any, error) {
	if path, ok := memberPath(n); ok {
		if v, found := s.lookup(path); found {
			return normalize(v), nil
		}
	}

	base, err := s.eval(n.Node)
	if err != nil {
		return nil, err
	}
	key, err := s.eval(n.Property)
	if err != nil {
		return nil, err
	}
	return normalize(property(base, key)), nil
}

func (s *evalScope) call(n *ast.CallNode) (any, error) {
	callee, ok := n.Callee.(*ast.IdentifierNode)
	if !ok {
		return nil, errors.New("method calls are not supported")
	}

	args := make([]any, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		v, err := s.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	switch callee.Value {
	case "instanceOf":
		return instanceOf(args)
	}
	return nil, fmt.Errorf("unknown function %q", callee.Value)
}

func (s *evalScope) builtin(n *ast.BuiltinNode) (any, error) {
	if len(n.Arguments) != 1 {
		return nil, fmt.Errorf("unsupported builtin %s", n.Name)
	}
	v, err := s.eval(n.Arguments[0])
	if err != nil {
		return nil, err
	}

	switch n.Name {
	case "len":
		if str, ok := v.(string); ok {
			return float64(len([]rune(str))), nil
		}
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return float64(rv.Len()), nil
		}
		return nil, fmt.Errorf("len of %T", v)
	case "lower":
		return strings.ToLower(cast.ToString(v)), nil
	case "upper":
		return strings.ToUpper(cast.ToString(v)), nil
	case "trim":
		return strings.TrimSpace(cast.ToString(v)), nil
	}
	return nil, fmt.Errorf("unsupported builtin %s", n.Name)
}

// memberPath renders identifier/property chains as a dot path ("user.name",
// "list.0"), so flattened keys resolve before structural access.
func memberPath(node ast.Node) (string, bool) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		return n.Value, true
	case *ast.ChainNode:
		return memberPath(n.Node)
	case *ast.MemberNode:
		base, ok := memberPath(n.Node)
		if !ok {
			return "", false
		}
		switch p := n.Property.(type) {
		case *ast.StringNode:
			return base + "." + p.Value, true
		case *ast.IntegerNode:
			return base + "." + strconv.Itoa(p.Value), true
		}
	}
	return "", false
}

// property reads key from a map, slice or error. Missing keys are undefined.
func property(base, key any) any {
	if base == nil {
		return nil
	}
	if err, ok := base.(error); ok {
		return errorFields(err)[cast.ToString(key)]
	}

	rv := reflect.ValueOf(base)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		v := rv.MapIndex(reflect.ValueOf(cast.ToString(key)).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	case reflect.Slice, reflect.Array:
		i, err := cast.ToIntE(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil
		}
		return rv.Index(i).Interface()
	}
	return nil
}

// instanceOf(value, "Kind") matches errors by kind: "Error" matches every
// error, "CodxError" every engine error, anything else the error's kind
// name (e.g. "FileNotFoundCodxError") or code (e.g. "FILE_NOT_FOUND").
func instanceOf(args []any) (bool, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("instanceOf takes 2 arguments, got %d", len(args))
	}
	kind, ok := args[1].(string)
	if !ok {
		return false, fmt.Errorf("instanceOf kind must be a string, got %T", args[1])
	}
	err, ok := args[0].(error)
	if !ok {
		return false, nil
	}

	if kind == "Error" {
		return true, nil
	}
	var cErr *schema.CodxError
	if !errors.As(err, &cErr) {
		return false, nil
	}
	return kind == "CodxError" || kind == cErr.Kind() || kind == cErr.Code, nil
}

// --- Value semantics ---

func numberOf(v any) (float64, bool) {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(v), true
	}
	return 0, false
}

// normalize maps every numeric type to float64.
func normalize(v any) any {
	if f, ok := numberOf(v); ok {
		return f
	}
	return v
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := numberOf(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := numberOf(a)
	bf, bNum := numberOf(b)
	if aNum && bNum {
		return af == bf
	}
	if aNum != bNum {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func compare(op string, a, b any) (bool, error) {
	var c int
	af, aNum := numberOf(a)
	bf, bNum := numberOf(b)
	as, aStr := a.(string)
	bs, bStr := b.(string)

	switch {
	case aNum && bNum:
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false, nil
		}
		switch {
		case af < bf:
			c = -1
		case af > bf:
			c = 1
		}
	case aStr && bStr:
		c = strings.Compare(as, bs)
	default:
		return false, fmt.Errorf("cannot compare %T %s %T", a, op, b)
	}

	switch op {
	case "<":
		return c < 0, nil
	case ">":
		return c > 0, nil
	case "<=":
		return c <= 0, nil
	default:
		return c >= 0, nil
	}
}

func arithmetic(op string, a, b any) (any, error) {
	af, aNum := numberOf(a)
	bf, bNum := numberOf(b)
	if !aNum || !bNum {
		return nil, fmt.Errorf("operator %s needs numbers, got %T and %T", op, a, b)
	}

	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		return af / bf, nil
	case "%":
		return math.Mod(af, bf), nil
	case "**", "^":
		return math.Pow(af, bf), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

// contains reports whether item is an element of a list, a key of a map or
// a substring of a string.
func contains(container, item any) bool {
	if container == nil {
		return false
	}
	if str, ok := container.(string); ok {
		sub, ok := item.(string)
		return ok && strings.Contains(str, sub)
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equal(normalize(rv.Index(i).Interface()), item) {
				return true
			}
		}
	case reflect.Map:
		key, ok := item.(string)
		if !ok || rv.Type().Key().Kind() != reflect.String {
			return false
		}
		return rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())).IsValid()
	}
	return false
}

func stringOperands(op string, a, b any) (string, string, error) {
	as, aOK := a.(string)
	bs, bOK := b.(string)
	if !aOK || !bOK {
		return "", "", fmt.Errorf("operator %s needs strings, got %T and %T", op, a, b)
	}
	return as, bs, nil
}
