package protocol

import (
	"github.com/astei/voxelwire/codec"
	"github.com/astei/voxelwire/nbt"
	"github.com/goccy/go-json"
)

// Text is a chat component. The login and status phases carry it as JSON, configuration and play
// as a network NBT tag.
type Text struct {
	Text          string `json:"text" nbt:"text"`
	Color         string `json:"color,omitempty" nbt:"color,omitempty"`
	Bold          bool   `json:"bold,omitempty" nbt:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty" nbt:"italic,omitempty"`
	Underlined    bool   `json:"underlined,omitempty" nbt:"underlined,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty" nbt:"strikethrough,omitempty"`
	Obfuscated    bool   `json:"obfuscated,omitempty" nbt:"obfuscated,omitempty"`
	Extra         []Text `json:"extra,omitempty" nbt:"extra,omitempty"`
}

func PlainText(s string) Text {
	return Text{Text: s}
}

// String returns the text without formatting.
func (t Text) String() string {
	s := t.Text
	for _, e := range t.Extra {
		s += e.String()
	}
	return s
}

// UnmarshalJSON accepts the full object form as well as a bare string.
func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text{Text: s}
		return nil
	}
	type plain Text
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Text(p)
	return nil
}

func (t Text) Tag() (nbt.Tag, error) {
	return nbt.Marshal(t)
}

// TextFromTag converts a network tag back into a component. A string tag is a plain text.
func TextFromTag(tag nbt.Tag) (Text, error) {
	switch v := tag.(type) {
	case nbt.String:
		return Text{Text: string(v)}, nil
	case *nbt.Compound:
		var t Text
		if s, ok := v.Get("text"); ok {
			str, ok := s.(nbt.String)
			if !ok {
				return t, codec.Errorf("text component has a %s text", nbt.TagName(s.ID()))
			}
			t.Text = string(str)
		}
		if s, ok := v.Get("color"); ok {
			if str, ok := s.(nbt.String); ok {
				t.Color = string(str)
			}
		}
		flag := func(name string) bool {
			b, ok := v.Get(name)
			if !ok {
				return false
			}
			n, ok := b.(nbt.Byte)
			return ok && n != 0
		}
		t.Bold = flag("bold")
		t.Italic = flag("italic")
		t.Underlined = flag("underlined")
		t.Strikethrough = flag("strikethrough")
		t.Obfuscated = flag("obfuscated")
		if e, ok := v.Get("extra"); ok {
			list, ok := e.(nbt.List)
			if !ok {
				return t, codec.Errorf("text component extra is a %s", nbt.TagName(e.ID()))
			}
			for _, child := range list.Values {
				c, err := TextFromTag(child)
				if err != nil {
					return t, err
				}
				t.Extra = append(t.Extra, c)
			}
		}
		return t, nil
	}
	if tag == nil {
		return Text{}, codec.Errorf("missing text component")
	}
	return Text{}, codec.Errorf("text component is a %s", nbt.TagName(tag.ID()))
}

func writeTextNBT(w *codec.Writer, t Text) error {
	tag, err := t.Tag()
	if err != nil {
		return err
	}
	return nbt.WriteNetwork(w, tag)
}

func readTextNBT(r *codec.Reader) (Text, error) {
	tag, err := nbt.ReadNetwork(r)
	if err != nil {
		return Text{}, err
	}
	return TextFromTag(tag)
}

func writeTextJSON(w *codec.Writer, t Text) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	w.String(string(b))
	return nil
}

const maxTextJSON = 262144

func readTextJSON(r *codec.Reader) (Text, error) {
	s, err := r.String(maxTextJSON)
	if err != nil {
		return Text{}, err
	}
	var t Text
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		return Text{}, codec.Errorf("text component: %v", err)
	}
	return t, nil
}
