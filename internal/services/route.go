// Route dispatching: declared endpoints turned into HTTP calls
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/desertthunder/scarchive/internal/shared"
	"github.com/go-playground/validator/v10"
)

var (
	placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	validate      = validator.New(validator.WithRequiredStructEnabled())
)

// Route declares a single API endpoint: verb, path template and default query values.
//
// Path placeholders use the {name} syntax and are filled from [Args.Params].
type Route struct {
	Name     string
	Method   string
	Path     string
	Defaults map[string]any
}

// Args carries the caller-supplied arguments of one call.
type Args struct {
	Params map[string]any // path and query values, keyed by name; a nil value drops the key
	Body   any            // optional request payload, validated and JSON encoded
	Header http.Header    // passthrough headers, win over client defaults
}

// RequestParams is the result of splitting [Args] against a [Route].
type RequestParams struct {
	Path    string
	Query   url.Values
	Content []byte
	Header  http.Header
}

// CompilePath returns the placeholder names of a path template in order of appearance.
func CompilePath(path string) []string {
	matches := placeholderRe.FindAllStringSubmatch(path, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// FormatPath substitutes every placeholder in template with its value.
//
// A placeholder without a value is reported as [shared.ErrMissingPathParam].
func FormatPath(template string, values map[string]string) (string, error) {
	var missing []string
	formatted := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingPathParam, strings.Join(missing, ", "))
	}
	return formatted, nil
}

// SplitParams partitions args into path values, query values, encoded body and headers.
//
// Query values merge left to right: base (client defaults), then the route's
// defaults, then the caller's params. Later values win.
func SplitParams(r Route, base url.Values, args Args) (*RequestParams, error) {
	pathNames := CompilePath(r.Path)
	isPath := make(map[string]bool, len(pathNames))
	for _, n := range pathNames {
		isPath[n] = true
	}

	pathValues := make(map[string]string, len(pathNames))
	query := url.Values{}
	for k, vs := range base {
		query[k] = append([]string(nil), vs...)
	}

	for _, layer := range []map[string]any{r.Defaults, args.Params} {
		for _, k := range sortedKeys(layer) {
			v := layer[k]
			if isPath[k] {
				if v != nil {
					pathValues[k] = formatValue(v)
				}
				continue
			}
			if v == nil {
				query.Del(k)
				continue
			}
			query.Set(k, formatValue(v))
		}
	}

	path, err := FormatPath(r.Path, pathValues)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name, err)
	}

	params := &RequestParams{Path: path, Query: query, Header: args.Header}
	if args.Body != nil {
		if err := validateValue(args.Body); err != nil {
			return nil, fmt.Errorf("%w: %s body: %v", shared.ErrInvalidInput, r.Name, err)
		}
		content, err := json.Marshal(args.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %s body: %v", shared.ErrInvalidInput, r.Name, err)
		}
		params.Content = content
	}

	return params, nil
}

// Call executes the route and returns the decoded JSON without schema validation.
//
// The status code is not inspected: any JSON body, including an API error
// payload, is returned as is. A body that is not JSON is logged and reported
// as (nil, nil).
func (r Route) Call(ctx context.Context, c *Client, args Args) (any, error) {
	resp, err := c.Do(ctx, r, args)
	if err != nil {
		return nil, err
	}

	var data any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		c.logger.Error("Failed to decode response", "route", r.Name, "status", resp.StatusCode, "body", truncate(resp.Body, 512))
		return nil, nil
	}

	return data, nil
}

// Endpoint binds a [Route] to the response schema T.
type Endpoint[T any] struct {
	Route
}

// Call executes the endpoint and validates the response against T.
//
// Unparseable bodies are a soft failure (nil, nil). JSON that does not match T
// is a hard failure wrapping [shared.ErrSchemaValidation].
func (e Endpoint[T]) Call(ctx context.Context, c *Client, args Args) (*T, error) {
	resp, err := c.Do(ctx, e.Route, args)
	if err != nil {
		return nil, err
	}

	if !json.Valid(resp.Body) {
		c.logger.Error("Failed to decode response", "route", e.Name, "status", resp.StatusCode, "body", truncate(resp.Body, 512))
		return nil, nil
	}

	if err := resp.checkStatus(e.Route); err != nil {
		return nil, err
	}

	var result T
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrSchemaValidation, e.Name, err)
	}
	if err := validateValue(&result); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrSchemaValidation, e.Name, err)
	}

	return &result, nil
}

// validateValue runs struct validation on v, descending into slices of structs.
func validateValue(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return validate.Struct(rv.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := validateValue(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []int:
		return JoinIDs(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// JoinIDs renders ids as the comma separated list expected by bulk endpoints.
func JoinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
