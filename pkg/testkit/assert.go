package testkit

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertSubset fails t unless every key in expected appears in actual with
// an equal value. Objects are compared recursively; arrays must match in
// length and element-wise.
func AssertSubset(t testing.TB, name string, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}
	var exp, act any
	if err := json.Unmarshal(expected, &exp); err != nil {
		t.Fatalf("[%s] expect is not valid JSON: %v", name, err)
	}
	if !assert.NoError(t, json.Unmarshal(actual, &act), "[%s] response is not JSON: %s", name, actual) {
		return
	}
	for _, d := range diffSubset("", exp, act) {
		t.Errorf("[%s] %s", name, d)
	}
}

func diffSubset(path string, exp, act any) []string {
	switch e := exp.(type) {
	case map[string]any:
		a, ok := act.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected object, got %T", at(path), act)}
		}
		var diffs []string
		for k, ev := range e {
			av, ok := a[k]
			if !ok {
				diffs = append(diffs, fmt.Sprintf("%s.%s: missing", at(path), k))
				continue
			}
			diffs = append(diffs, diffSubset(path+"."+k, ev, av)...)
		}
		return diffs
	case []any:
		a, ok := act.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected array, got %T", at(path), act)}
		}
		if len(e) != len(a) {
			return []string{fmt.Sprintf("%s: expected %d elements, got %d", at(path), len(e), len(a))}
		}
		var diffs []string
		for i := range e {
			diffs = append(diffs, diffSubset(fmt.Sprintf("%s[%d]", path, i), e[i], a[i])...)
		}
		return diffs
	default:
		if fmt.Sprint(exp) != fmt.Sprint(act) {
			return []string{fmt.Sprintf("%s: expected %v, got %v", at(path), exp, act)}
		}
		return nil
	}
}

func at(path string) string {
	if path == "" {
		return "$"
	}
	return "$" + path
}
