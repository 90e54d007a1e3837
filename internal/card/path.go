package card

import (
	"strconv"
	"strings"

	"github.com/starford/cardbind/internal/jsonvalue"
)

// walkPath evaluates a bracket/dot path such as "hours[number.key].time"
// against root. Intermediate values are kept as JSON text on a stack; the
// path is valid only if exactly one value remains.
func walkPath(expr string, root *jsonvalue.Value) (string, bool) {
	var stack []string
	var key strings.Builder

	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch c {
		case '[':
			if key.Len() == 0 {
				return "", false
			}
			if !pushLookup(key.String(), &stack, root) {
				return "", false
			}
			key.Reset()
		case ']':
			k := key.String()
			key.Reset()
			switch {
			case isDigits(k):
				if !indexTop(k, &stack) {
					return "", false
				}
			case k == "" && len(stack) >= 2:
				inner := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !selectTop(inner, &stack) {
					return "", false
				}
			case k != "" && root.Contains(k):
				if !selectTop(root.Get(k).Text(), &stack) {
					return "", false
				}
			case strings.Contains(k, "."):
				// An unknown dotted key leaves the stack as is.
				if v := lookup(splitKeys(k), root); v.IsValid() {
					if !selectTop(v.Text(), &stack) {
						return "", false
					}
				}
			default:
				return "", false
			}
		default:
			key.WriteByte(c)
		}
	}
	if key.Len() > 0 && !pushLookup(key.String(), &stack, root) {
		return "", false
	}
	if len(stack) != 1 {
		return "", false
	}
	return stack[0], true
}

// pushLookup pushes the value of a dotted key. A leading '.' continues
// from the value on top of the stack.
func pushLookup(k string, stack *[]string, root *jsonvalue.Value) bool {
	base := root
	if strings.HasPrefix(k, ".") {
		if len(*stack) == 0 {
			return false
		}
		base = jsonvalue.ParseString((*stack)[len(*stack)-1])
		*stack = (*stack)[:len(*stack)-1]
	}
	v := lookup(splitKeys(k), base)
	if !v.IsValid() {
		return false
	}
	*stack = append(*stack, v.Text())
	return true
}

// selectTop replaces the top of the stack with its member k, or its
// element at index k.
func selectTop(k string, stack *[]string) bool {
	if len(*stack) == 0 {
		return false
	}
	top := jsonvalue.ParseString((*stack)[len(*stack)-1])
	if top.IsObject() && top.Contains(k) {
		(*stack)[len(*stack)-1] = top.Get(k).Text()
		return true
	}
	return indexTop(k, stack)
}

func indexTop(k string, stack *[]string) bool {
	if len(*stack) == 0 {
		return false
	}
	i, err := strconv.Atoi(k)
	if err != nil || i < 0 {
		return false
	}
	top := jsonvalue.ParseString((*stack)[len(*stack)-1])
	if !top.IsArray() || i >= top.Len() {
		return false
	}
	(*stack)[len(*stack)-1] = top.Index(i).Text()
	return true
}

// lookup follows keys through nested objects and arrays.
func lookup(keys []string, v *jsonvalue.Value) *jsonvalue.Value {
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		switch {
		case v.IsObject():
			v = v.Get(k)
		case v.IsArray():
			i, err := strconv.Atoi(k)
			if err != nil {
				return nil
			}
			v = v.Index(i)
		default:
			return nil
		}
	}
	return v
}

func splitKeys(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ".") {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
