package f2x

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/puzpuzpuz/xsync/v3"
)

// Codec converts a category's message envelope to and from its XML payload.
//
// T is the envelope type of the category. Payload extracts the concrete message carried by an envelope;
// the concrete type selects the handler of unsolicited messages and is matched against the reply type
// expected by SendMessageAndGetReply.
type Codec[T any] interface {
	// Marshal serializes the envelope to UTF-8 XML without a byte-order mark.
	Marshal(msg T) ([]byte, error)
	// Unmarshal deserializes the XML payload into an envelope.
	Unmarshal(data []byte) (T, error)
	// Payload returns the concrete message carried by the envelope.
	Payload(msg T) any
}

// ErrUnknownElement indicates that an XML payload's root element has no registered type.
var ErrUnknownElement = errors.New("unknown XML root element")

// XMLCodec is a Codec for categories whose envelope is the message itself.
//
// Message types are registered up front; decoding looks at the root element name of the payload
// and unmarshals into a new value of the registered type. Decoded messages are returned as pointers.
type XMLCodec struct {
	types *xsync.MapOf[string, reflect.Type]
}

var _ Codec[any] = (*XMLCodec)(nil)

// NewXMLCodec creates an XMLCodec with the given message prototypes registered.
func NewXMLCodec(prototypes ...any) (*XMLCodec, error) {
	c := &XMLCodec{types: xsync.NewMapOf[string, reflect.Type]()}
	for _, p := range prototypes {
		if err := c.Register(p); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Register adds a message type. The prototype may be a value or a pointer to a struct.
//
// The root element name is the one encoding/xml produces for the type, so XMLName tags are honored.
func (c *XMLCodec) Register(prototype any) error {
	typ := reflect.TypeOf(prototype)
	if typ == nil {
		return errors.New("nil prototype")
	}
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("prototype %v is not a struct", typ)
	}

	data, err := xml.Marshal(reflect.New(typ).Interface())
	if err != nil {
		return fmt.Errorf("marshal prototype %v: %w", typ, err)
	}

	name, err := rootElementName(xml.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("prototype %v: %w", typ, err)
	}

	if prev, loaded := c.types.LoadOrStore(name.Local, typ); loaded && prev != typ {
		return fmt.Errorf("element %q already registered by %v", name.Local, prev)
	}

	return nil
}

// Marshal implements Codec.
func (c *XMLCodec) Marshal(msg any) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}

	return xml.Marshal(msg)
}

// Unmarshal implements Codec.
func (c *XMLCodec) Unmarshal(data []byte) (any, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("empty XML document")
			}
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		typ, ok := c.types.Load(start.Name.Local)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownElement, start.Name.Local)
		}

		v := reflect.New(typ).Interface()
		if err := dec.DecodeElement(v, &start); err != nil {
			return nil, err
		}

		return v, nil
	}
}

// Payload implements Codec. The envelope is the message.
func (c *XMLCodec) Payload(msg any) any { return msg }

func rootElementName(dec *xml.Decoder) (xml.Name, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.Name{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name, nil
		}
	}
}
