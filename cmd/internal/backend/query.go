package backend

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query is a nested query in the shape the backend expects. Values may be
// Query, map[string]any, []string, []any, string, bool or integer/float kinds.
//
//	Query{"filters": Query{"user": Query{"documentId": Query{"$eq": "u1"}}}}
//
// encodes as filters[user][documentId][$eq]=u1.
type Query map[string]any

// Encode flattens q with bracketed keys. Keys are emitted in sorted order and
// only values are percent-encoded.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	var pairs []string
	flatten("", map[string]any(q), &pairs)
	return strings.Join(pairs, "&")
}

// Merge returns a new Query with top-level keys of other overriding q.
func (q Query) Merge(other Query) Query {
	out := make(Query, len(q)+len(other))
	for k, v := range q {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func flatten(prefix string, v any, out *[]string) {
	switch t := v.(type) {
	case nil:
		return
	case Query:
		flatten(prefix, map[string]any(t), out)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(joinKey(prefix, k), t[k], out)
		}
	case []string:
		for i, s := range t {
			flatten(joinKey(prefix, strconv.Itoa(i)), s, out)
		}
	case []any:
		for i, s := range t {
			flatten(joinKey(prefix, strconv.Itoa(i)), s, out)
		}
	case string:
		*out = append(*out, prefix+"="+url.QueryEscape(t))
	case bool:
		*out = append(*out, prefix+"="+strconv.FormatBool(t))
	case int:
		*out = append(*out, prefix+"="+strconv.Itoa(t))
	case int64:
		*out = append(*out, prefix+"="+strconv.FormatInt(t, 10))
	case float64:
		*out = append(*out, prefix+"="+strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*out = append(*out, prefix+"="+url.QueryEscape(fmt.Sprint(t)))
	}
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "[" + k + "]"
}

// Eq is filters-shaped sugar: Eq("user", "documentId", v) -> {user:{documentId:{$eq:v}}}.
func Eq(v any, path ...string) Query {
	var node any = Query{"$eq": v}
	for i := len(path) - 1; i >= 0; i-- {
		node = Query{path[i]: node}
	}
	q, _ := node.(Query)
	return q
}

// Fields returns {fields: names}.
func Fields(names ...string) Query {
	return Query{"fields": names}
}
