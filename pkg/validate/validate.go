// Package validate provides struct-tag validation for request payloads.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required            field must not be zero/empty
//	nullable            if empty, skip all remaining rules for this field
//	email               valid email address
//	url                 valid URL (http/https)
//	uuid                canonical UUID
//	min=N               string: min char length | number: min value
//	max=N               string: max char length | number: max value
//	gt=N, gte=N         number > N, number >= N
//	lt=N, lte=N         number < N, number <= N
//	between=min,max     number or string length between min and max (inclusive)
//	in=a,b,c            value must be one of the listed items
//	dive                validate each element of a slice of structs
//
// Numeric rules also accept types whose String() is a decimal number,
// such as decimal.Decimal.
//
// Example:
//
//	type ItemInput struct {
//	    ProductID string `json:"product_id" validate:"required,uuid"`
//	    Quantity  int    `json:"quantity"   validate:"required,gte=1"`
//	}
//	type CreateOrderInput struct {
//	    ShopID string      `json:"shop_id" validate:"required,uuid"`
//	    Items  []ItemInput `json:"items"   validate:"required,dive"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of fieldName → error message; empty map means no errors.
// Elements validated through `dive` are keyed "items.0.quantity".
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	walk(reflect.ValueOf(v), "", errs)
	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func walk(rv reflect.Value, prefix string, errs map[string]string) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}
		value := rv.Field(i)
		name := prefix + jsonFieldName(field)
		rules := splitRules(tag)

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}

		failed := false
		for _, rule := range rules {
			if rule == "nullable" || rule == "dive" {
				continue
			}
			if msg := applyRule(rule, name, value); msg != "" {
				errs[name] = msg
				failed = true
				break // first failing rule per field
			}
		}

		if !failed && hasRule(rules, "dive") && value.Kind() == reflect.Slice {
			for j := 0; j < value.Len(); j++ {
				walk(value.Index(j), fmt.Sprintf("%s.%d.", name, j), errs)
			}
		}
	}
}

func applyRule(rule, field string, v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			if rule == "required" {
				return fmt.Sprintf("The %s field is required.", field)
			}
			return ""
		}
		v = v.Elem()
	}
	raw := fmt.Sprintf("%v", v.Interface())
	key, param, _ := strings.Cut(rule, "=")

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "uuid":
		if _, err := uuid.Parse(raw); err != nil || len(raw) != 36 {
			return fmt.Sprintf("The %s must be a valid UUID.", field)
		}
	case "min", "max":
		n := mustParseFloat(param)
		if f, ok := toFloat(v); ok {
			if (key == "min" && f < n) || (key == "max" && f > n) {
				return rangeMessage(key, field, param, false)
			}
			return ""
		}
		l := float64(length(v, raw))
		if (key == "min" && l < n) || (key == "max" && l > n) {
			return rangeMessage(key, field, param, true)
		}
	case "gt", "gte", "lt", "lte":
		n := mustParseFloat(param)
		f, ok := toFloat(v)
		if !ok {
			return fmt.Sprintf("The %s field must be a number.", field)
		}
		if !compare(key, f, n) {
			return fmt.Sprintf("The %s must be %s %s.", field, comparisonWords[key], param)
		}
	case "between":
		lo, hi, found := strings.Cut(param, ",")
		if !found {
			return ""
		}
		l, h := mustParseFloat(lo), mustParseFloat(hi)
		if f, ok := toFloat(v); ok {
			if f < l || f > h {
				return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
			}
			return ""
		}
		n := float64(length(v, raw))
		if n < l || n > h {
			return fmt.Sprintf("The %s must be between %s and %s characters.", field, lo, hi)
		}
	case "in":
		for _, a := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return ""
}

var comparisonWords = map[string]string{
	"gt":  "greater than",
	"gte": "greater than or equal to",
	"lt":  "less than",
	"lte": "less than or equal to",
}

func compare(op string, f, n float64) bool {
	switch op {
	case "gt":
		return f > n
	case "gte":
		return f >= n
	case "lt":
		return f < n
	default:
		return f <= n
	}
}

func rangeMessage(key, field, param string, chars bool) string {
	switch {
	case key == "min" && chars:
		return fmt.Sprintf("The %s must be at least %s characters.", field, param)
	case key == "min":
		return fmt.Sprintf("The %s must be at least %s.", field, param)
	case chars:
		return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
	default:
		return fmt.Sprintf("The %s must not be greater than %s.", field, param)
	}
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false // false is a valid boolean value, not empty
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func length(v reflect.Value, raw string) int {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len()
	}
	return len([]rune(raw))
}

// toFloat converts numeric kinds and fmt.Stringer values holding a number.
func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Struct:
		if s, ok := v.Interface().(fmt.Stringer); ok {
			f, err := strconv.ParseFloat(s.String(), 64)
			return f, err == nil
		}
	}
	return 0, false
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

// splitRules splits the tag by comma while keeping the parameters of
// in= and between= together: "required,in=a,b,max=3" → [required in=a,b max=3].
func splitRules(tag string) []string {
	var rules []string
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if len(rules) > 0 && !startsRule(part) {
			last := rules[len(rules)-1]
			if strings.HasPrefix(last, "in=") || strings.HasPrefix(last, "between=") {
				rules[len(rules)-1] = last + "," + part
				continue
			}
		}
		rules = append(rules, part)
	}
	return rules
}

var ruleNames = []string{
	"required", "nullable", "email", "url", "uuid", "dive",
	"min=", "max=", "gt=", "gte=", "lt=", "lte=", "between=", "in=",
}

func startsRule(s string) bool {
	for _, k := range ruleNames {
		if s == k || (strings.HasSuffix(k, "=") && strings.HasPrefix(s, k)) {
			return true
		}
	}
	return false
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}
