package dialect

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Load parses the catalog document at path, resolving <include> directives
// relative to the including file, and returns the combined immutable schema.
// It fails closed on any malformed or ambiguous input.
func Load(path string) (*Dialect, error) {
	l := newLoader()
	if err := l.loadFile(path); err != nil {
		return nil, err
	}
	return l.finish()
}

// Parse loads a single catalog document from r. Include directives are
// rejected since there is no base path to resolve them against.
func Parse(r io.Reader) (*Dialect, error) {
	l := newLoader()
	if err := l.parse(r, ""); err != nil {
		return nil, err
	}
	return l.finish()
}

type loader struct {
	visited map[string]struct{}
	msgs    map[uint32]*Message
	enums   map[string]*Enum
}

func newLoader() *loader {
	return &loader{
		visited: make(map[string]struct{}),
		msgs:    make(map[uint32]*Message),
		enums:   make(map[string]*Enum),
	}
}

func (l *loader) loadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, seen := l.visited[abs]; seen {
		zap.L().Debug("dialect already parsed", zap.String("file", abs))
		return nil
	}
	l.visited[abs] = struct{}{}

	zap.L().Info("parsing dialect definition", zap.String("file", abs))
	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("dialect: open %s: %w", path, err)
	}
	defer f.Close()

	if err := l.parse(f, filepath.Dir(abs)); err != nil {
		return fmt.Errorf("dialect: parse %s: %w", path, err)
	}
	return nil
}

func (l *loader) parse(r io.Reader, dir string) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "include":
			var include string
			if err := dec.DecodeElement(&include, &start); err != nil {
				return err
			}
			if dir == "" {
				return fmt.Errorf("dialect: include %q not resolvable without a base path", include)
			}
			if err := l.loadFile(filepath.Join(dir, strings.TrimSpace(include))); err != nil {
				return err
			}
		case "message":
			if err := l.parseMessage(dec, start); err != nil {
				return err
			}
		case "enum":
			if err := l.parseEnum(dec, start); err != nil {
				return err
			}
		}
	}
}

func (l *loader) parseMessage(dec *xml.Decoder, start xml.StartElement) error {
	m := &Message{}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			id, err := strconv.ParseUint(a.Value, 10, 32)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidMessageID, a.Value)
			}
			m.ID = uint32(id)
		case "name":
			m.Name = a.Value
		}
	}
	if !hasAttr(start, "id") {
		return ErrMessageWithoutID
	}
	if m.Name == "" {
		return ErrMessageWithoutName
	}

	inExtensions := false
	sawExtensions := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "field":
				f, err := parseField(dec, t, inExtensions)
				if err != nil {
					return err
				}
				m.Fields = append(m.Fields, f)
			case "extensions":
				if sawExtensions {
					return ErrMultipleExtensions
				}
				sawExtensions, inExtensions = true, true
				if err := dec.Skip(); err != nil {
					return err
				}
			default:
				if err := dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local != "message" {
				continue
			}
			if err := finishMessage(m); err != nil {
				return fmt.Errorf("message %q: %w", m.Name, err)
			}
			if _, dup := l.msgs[m.ID]; dup {
				return fmt.Errorf("%w: %d", ErrDuplicateMessageID, m.ID)
			}
			l.msgs[m.ID] = m
			return nil
		}
	}
}

func parseField(dec *xml.Decoder, start xml.StartElement, extension bool) (Field, error) {
	f := Field{Extension: extension}
	var typeDecl string
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "name":
			f.Name = a.Value
		case "type":
			typeDecl = a.Value
		case "enum":
			f.Enum = a.Value
		}
	}
	if err := dec.Skip(); err != nil {
		return f, err
	}
	if f.Name == "" {
		return f, ErrFieldWithoutName
	}
	if typeDecl == "" {
		return f, ErrFieldWithoutType
	}

	t, arrayLen, isArray, err := parseFieldType(typeDecl)
	if err != nil {
		return f, err
	}
	f.Type, f.ArrayLen, f.Array = t, arrayLen, isArray

	if f.Name == "target_system" || f.Name == "target_component" {
		if f.Type != TypeUint8 {
			return f, fmt.Errorf("%w: %s", ErrTargetFieldNotU8, f.Name)
		}
		if f.Array {
			return f, fmt.Errorf("%w: %s", ErrTargetFieldArray, f.Name)
		}
	}
	return f, nil
}

func (l *loader) parseEnum(dec *xml.Decoder, start xml.StartElement) error {
	e := &Enum{Entries: make(map[string]uint64)}
	for _, a := range start.Attr {
		if a.Name.Local == "name" {
			e.Name = a.Value
		}
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "entry" {
				if err := dec.Skip(); err != nil {
					return err
				}
				continue
			}
			var name string
			var value uint64
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "name":
					name = a.Value
				case "value":
					// Non-numeric values appear in some catalogs
					// and are ignored; only names are referenced.
					value, _ = strconv.ParseUint(a.Value, 10, 64)
				}
			}
			if name != "" {
				e.Entries[name] = value
			}
			if err := dec.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "enum" {
				if e.Name != "" {
					l.enums[e.Name] = e
				}
				return nil
			}
		}
	}
}

// finish validates cross-references and seals the schema.
func (l *loader) finish() (*Dialect, error) {
	for _, m := range l.msgs {
		for _, f := range m.Fields {
			if f.Enum == "" {
				continue
			}
			if _, ok := l.enums[f.Enum]; !ok {
				return nil, fmt.Errorf("%w: message %q field %q references %q",
					ErrUndefinedEnum, m.Name, f.Name, f.Enum)
			}
		}
	}
	zap.L().Info("dialect loaded",
		zap.Int("messages", len(l.msgs)),
		zap.Int("enums", len(l.enums)))
	return &Dialect{msgs: l.msgs, enums: l.enums}, nil
}

func hasAttr(e xml.StartElement, name string) bool {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}
