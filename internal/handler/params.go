package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/labstack/echo/v4"
)

// fieldValue is one scalar request parameter. JSON null is kept apart from the empty
// string so updates can clear optional columns.
type fieldValue struct {
	null bool
	text string
}

func (v fieldValue) blank() bool {
	return v.null || strings.TrimSpace(v.text) == ""
}

// nestedKey matches form keys such as property[title] and property[images][]
var nestedKey = regexp.MustCompile(`^([^\[\]]+)\[([^\[\]]+)\](\[\])?$`)

// requestParams is a request body read as flat values plus one level of nested groups,
// whatever its encoding.
type requestParams struct {
	values map[string]fieldValue
	nested map[string]map[string]fieldValue
	files  map[string]map[string][]*multipart.FileHeader
	keys   []string
}

func newRequestParams() *requestParams {
	return &requestParams{
		values: map[string]fieldValue{},
		nested: map[string]map[string]fieldValue{},
		files:  map[string]map[string][]*multipart.FileHeader{},
	}
}

// readParams parses a JSON, urlencoded or multipart body
func readParams(c echo.Context) (*requestParams, error) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, apperror.BadRequest("Malformed multipart body")
		}
		p := newRequestParams()
		p.addForm(form.Value)
		p.addFiles(form.File)
		p.sortKeys()
		return p, nil
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		values, err := c.FormParams()
		if err != nil {
			return nil, apperror.BadRequest("Malformed form body")
		}
		p := newRequestParams()
		p.addForm(values)
		p.sortKeys()
		return p, nil
	default:
		return readJSONParams(c.Request().Body)
	}
}

func readJSONParams(body io.Reader) (*requestParams, error) {
	p := newRequestParams()
	if body == nil {
		return p, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperror.BadRequest("Unable to read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return p, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, apperror.BadRequest("Malformed JSON body")
	}
	for key, raw := range top {
		p.keys = append(p.keys, key)
		var group map[string]json.RawMessage
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &group) == nil {
			fields := map[string]fieldValue{}
			for name, v := range group {
				fields[name] = jsonField(v)
			}
			p.nested[key] = fields
			continue
		}
		p.values[key] = jsonField(raw)
	}
	p.sortKeys()
	return p, nil
}

func jsonField(raw json.RawMessage) fieldValue {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || string(t) == "null" {
		return fieldValue{null: true}
	}
	if t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			return fieldValue{text: s}
		}
	}
	return fieldValue{text: string(t)}
}

func (p *requestParams) addKey(key string) {
	for _, k := range p.keys {
		if k == key {
			return
		}
	}
	p.keys = append(p.keys, key)
}

func (p *requestParams) addForm(values url.Values) {
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		if m := nestedKey.FindStringSubmatch(key); m != nil {
			p.addKey(m[1])
			if p.nested[m[1]] == nil {
				p.nested[m[1]] = map[string]fieldValue{}
			}
			p.nested[m[1]][m[2]] = fieldValue{text: vals[0]}
			continue
		}
		p.addKey(key)
		p.values[key] = fieldValue{text: vals[0]}
	}
}

func (p *requestParams) addFiles(files map[string][]*multipart.FileHeader) {
	for key, headers := range files {
		m := nestedKey.FindStringSubmatch(key)
		if m == nil {
			p.addKey(key)
			continue
		}
		p.addKey(m[1])
		if p.files[m[1]] == nil {
			p.files[m[1]] = map[string][]*multipart.FileHeader{}
		}
		p.files[m[1]][m[2]] = append(p.files[m[1]][m[2]], headers...)
	}
}

func (p *requestParams) sortKeys() {
	sort.Strings(p.keys)
}

// require returns the fields nested under root. A missing or empty group is a
// ParameterMissingError listing what was received instead.
func (p *requestParams) require(root string) (map[string]fieldValue, error) {
	fields := p.nested[root]
	if len(fields) == 0 && len(p.files[root]) == 0 {
		received := p.keys
		if received == nil {
			received = []string{}
		}
		return nil, &apperror.ParameterMissingError{Param: root, Received: received}
	}
	if fields == nil {
		fields = map[string]fieldValue{}
	}
	return fields, nil
}

// filesOf returns the uploads sent as root[field] or root[field][]
func (p *requestParams) filesOf(root, field string) []*multipart.FileHeader {
	return p.files[root][field]
}

// value returns a flat parameter, trimmed
func (p *requestParams) value(name string) string {
	return strings.TrimSpace(p.values[name].text)
}

// text returns a pointer to a field's text when the field is present and not null
func text(fields map[string]fieldValue, name string) *string {
	v, ok := fields[name]
	if !ok || v.null {
		return nil
	}
	s := v.text
	return &s
}
