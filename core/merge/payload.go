package merge

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"permsync/core/fault"
)

// Payload is one resource version flattened to its elements: identifier to
// serialized value. Repeated elements (fieldPermissions, objectPermissions
// and the like) are distinguished by the text of their first child, scalar
// elements by their name alone.
type Payload map[string]string

// elementNode captures one direct child of the resource root verbatim.
type elementNode struct {
	XMLName xml.Name
	Inner   string `xml:",innerxml"`
}

// Parse flattens an XML resource payload into its element map. The root
// element name is returned alongside so Render can reconstruct the
// document.
func Parse(data []byte) (Payload, string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var rootName string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, "", fault.User("payload is not valid XML", "check the resource file for truncation")
		}
		if start, ok := tok.(xml.StartElement); ok {
			rootName = start.Name.Local
			break
		}
	}

	out := Payload{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fault.User("payload is not valid XML", "check the resource file for truncation")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var n elementNode
		if err := dec.DecodeElement(&n, &start); err != nil {
			return nil, "", fault.User("payload is not valid XML", "check the resource file for truncation")
		}
		key := elementKey(n.XMLName.Local, n.Inner)
		for i := 2; ; i++ {
			if _, dup := out[key]; !dup {
				break
			}
			key = fmt.Sprintf("%s#%d", elementKey(n.XMLName.Local, n.Inner), i)
		}
		out[key] = strings.TrimSpace(n.Inner)
	}
	if rootName == "" {
		return nil, "", fault.User("payload has no root element", "check the resource file for truncation")
	}
	return out, rootName, nil
}

// elementKey derives the identifier for one element: the element name,
// plus the text of its first child when the element nests further
// structure.
func elementKey(name, inner string) string {
	dec := xml.NewDecoder(strings.NewReader(inner))
	for {
		tok, err := dec.Token()
		if err != nil {
			return name
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &se); err != nil {
			return name
		}
		return name + ":" + strings.TrimSpace(text)
	}
}

// Render reconstructs an XML document from the payload under the given
// root element. Elements are emitted in sorted key order so output is
// deterministic.
func (p Payload) Render(root string) []byte {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteString(xml.Header)
	fmt.Fprintf(&b, "<%s>\n", root)
	for _, k := range keys {
		name := elementName(k)
		fmt.Fprintf(&b, "    <%s>%s</%s>\n", name, p[k], name)
	}
	fmt.Fprintf(&b, "</%s>\n", root)
	return b.Bytes()
}

// elementName strips the discriminator and duplicate suffix from a key.
func elementName(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	if i := strings.IndexByte(key, '#'); i >= 0 {
		return key[:i]
	}
	return key
}

// clone copies the payload.
func (p Payload) clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// equal reports element-wise equality.
func (p Payload) equal(other Payload) bool {
	if len(p) != len(other) {
		return false
	}
	for k, v := range p {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// validate checks the minimal structural shape of a merged payload. A
// violation here is a bug in the merge, never written out.
func (p Payload) validate() error {
	if len(p) == 0 {
		return fault.Internal("merged payload has no elements")
	}
	for k, v := range p {
		if strings.TrimSpace(elementName(k)) == "" {
			return fault.Internal("merged payload contains an unnamed element")
		}
		frag := fmt.Sprintf("<%s>%s</%s>", elementName(k), v, elementName(k))
		if err := checkWellFormed(frag); err != nil {
			return fault.Internal(fmt.Sprintf("merged element %q is not well-formed", k))
		}
	}
	return nil
}

func checkWellFormed(frag string) error {
	dec := xml.NewDecoder(strings.NewReader(frag))
	for {
		if _, err := dec.Token(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
